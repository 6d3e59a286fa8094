package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"newschain/internal/logging"
	"newschain/internal/metrics"
)

type Deps struct {
	News    NewsService
	Metrics *metrics.Metrics
	// Health is called by /healthz when set.
	Health         func(ctx context.Context) error
	Logger         *zap.Logger
	MaxUploadBytes int64
	CORSOrigins    []string
}

func NewRouter(d Deps) http.Handler {
	logger := logging.OrNop(d.Logger)

	r := mux.NewRouter()
	r.Use(requestID, observe(logger, d.Metrics))

	r.HandleFunc("/", root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz(d.Health, logger)).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	h := &newsHandler{svc: d.News, maxUpload: d.MaxUploadBytes, logger: logger}
	r.HandleFunc("/news", h.create).Methods(http.MethodPost)
	r.HandleFunc("/news", h.list).Methods(http.MethodGet)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
		handlers.ExposedHeaders([]string{RequestIDHeader}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(logger.Named("recovery"))),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}
