package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"newschain/internal/news"
)

type NewsService interface {
	Create(ctx context.Context, in news.CreateInput) (*news.Created, error)
	List(ctx context.Context) ([]any, error)
}

type createResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	News    *news.News `json:"news"`
	TxnHash string     `json:"txnhash"`
}

type listResponse struct {
	Success   bool  `json:"success"`
	NewsItems []any `json:"newsItems"`
}

type newsHandler struct {
	svc       NewsService
	maxUpload int64
	logger    *zap.Logger
}

func (h *newsHandler) create(w http.ResponseWriter, r *http.Request) {
	in, err := parseSubmission(w, r, h.maxUpload)
	if err != nil {
		writeError(w, loggerFor(r, h.logger), err)
		return
	}

	out, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, loggerFor(r, h.logger), err)
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Success: true,
		Message: "News created successfully",
		News:    out.News,
		TxnHash: out.TxnHash,
	})
}

func (h *newsHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, loggerFor(r, h.logger), err)
		return
	}
	if items == nil {
		items = []any{}
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, NewsItems: items})
}

func root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"msg": "hi"})
}

func healthz(check func(ctx context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				loggerFor(r, logger).Warn("health check failed", zap.Error(err))
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
