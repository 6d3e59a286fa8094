package event

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"newschain/internal/logging"
	"newschain/internal/news"
)

type Publisher interface {
	PublishNewsCreated(ctx context.Context, n *news.News) error
}

// Finder loads a document when the change event carries no full document.
type Finder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*news.News, error)
}

// changeStream is the part of *mongo.ChangeStream the watch loop uses.
type changeStream interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

type watchFunc func(ctx context.Context) (changeStream, error)

type Service struct {
	watch     watchFunc
	finder    Finder
	publisher Publisher
	logger    *zap.Logger
}

func NewService(col *mongo.Collection, finder Finder, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		watch:     watchInserts(col),
		finder:    finder,
		publisher: publisher,
		logger:    logging.OrNop(logger),
	}
}

func watchInserts(col *mongo.Collection) watchFunc {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": "insert"}}},
	}
	return func(ctx context.Context) (changeStream, error) {
		stream, err := col.Watch(ctx, pipeline)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}
}

type changeEvent struct {
	OperationType string     `bson:"operationType"`
	FullDocument  *news.News `bson:"fullDocument"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
}

// Run publishes every inserted news document until ctx is done or the stream ends.
// Change streams need a replica set; on a standalone server Run logs and returns.
func (s *Service) Run(ctx context.Context) {
	stream, err := s.watch(ctx)
	if err != nil {
		s.logger.Error("failed to open change stream", zap.Error(err))
		return
	}
	defer stream.Close(context.WithoutCancel(ctx))

	s.logger.Info("watching news change stream")

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			s.logger.Warn("failed decoding change event", zap.Error(err))
			continue
		}
		s.handle(ctx, ev)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		s.logger.Error("change stream closed with error", zap.Error(err))
	} else {
		s.logger.Info("change stream stopped")
	}
}

func (s *Service) handle(ctx context.Context, ev changeEvent) {
	n, err := s.resolve(ctx, ev)
	if err != nil {
		s.logger.Warn("failed fetching inserted news",
			zap.String("id", ev.DocumentKey.ID.Hex()),
			zap.Error(err),
		)
		return
	}
	if n == nil {
		s.logger.Debug("skip event missing document key", zap.String("operation", ev.OperationType))
		return
	}

	if err := s.publisher.PublishNewsCreated(ctx, n); err != nil {
		s.logger.Error("failed publishing news",
			zap.String("id", n.ID.Hex()),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("published news to message bus", zap.String("id", n.ID.Hex()))
}

func (s *Service) resolve(ctx context.Context, ev changeEvent) (*news.News, error) {
	if ev.FullDocument != nil {
		return ev.FullDocument, nil
	}
	if ev.DocumentKey.ID.IsZero() {
		return nil, nil
	}
	return s.finder.FindByID(ctx, ev.DocumentKey.ID)
}
