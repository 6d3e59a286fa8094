package news

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"newschain/internal/apperr"
	"newschain/internal/chain"
	"newschain/internal/insights"
	"newschain/internal/logging"
	"newschain/internal/metrics"
	"newschain/internal/pinning"
)

type Pinner interface {
	PinFile(ctx context.Context, u pinning.Upload) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, req insights.Request) (insights.Result, error)
}

type Chain interface {
	CreateNews(ctx context.Context, p chain.NewsPayload) (string, error)
	ListNews(ctx context.Context) ([]any, error)
}

type Recorder interface {
	ObserveStep(step string, d time.Duration, err error)
	NewsCreated()
}

// CreateInput is one submission as received from the client.
type CreateInput struct {
	Title       string
	Description string
	Thumbnail   *pinning.Upload
	Files       []pinning.Upload
}

type Created struct {
	News    *News
	TxnHash string
}

type ServiceConfig struct {
	Gateway  string
	Pinner   Pinner
	Analyzer Analyzer
	Chain    Chain
	Repo     Repository
	Metrics  Recorder
}

// Service runs the submission pipeline. Pinner, Analyzer, Chain and Metrics
// may be nil: a missing pinner fails every submission, the others are skipped.
type Service struct {
	gateway  string
	pinner   Pinner
	analyzer Analyzer
	chain    Chain
	repo     Repository
	metrics  Recorder
	logger   *zap.Logger
}

func NewService(cfg ServiceConfig, logger *zap.Logger) *Service {
	return &Service{
		gateway:  cfg.Gateway,
		pinner:   cfg.Pinner,
		analyzer: cfg.Analyzer,
		chain:    cfg.Chain,
		repo:     cfg.Repo,
		metrics:  cfg.Metrics,
		logger:   logging.OrNop(logger),
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Created, error) {
	n := &News{Title: in.Title, Description: in.Description}

	err := s.step(metrics.StepValidate, func() error {
		return validate.StructPartial(n, "Title", "Description")
	})
	if err != nil {
		return nil, err
	}

	if s.pinner == nil {
		return nil, apperr.New("Pinata JWT not set", http.StatusInternalServerError)
	}
	err = s.step(metrics.StepPin, func() error {
		return s.pinUploads(ctx, n, in)
	})
	if err != nil {
		return nil, err
	}

	if s.analyzer != nil {
		err = s.step(metrics.StepInsights, func() error {
			return s.classify(ctx, n, in)
		})
		if err != nil {
			return nil, err
		}
	} else {
		s.logger.Debug("insights disabled, skipping classification")
	}

	// The chain write cannot be undone, so the document must already pass
	// every constraint the insert enforces.
	err = s.step(metrics.StepValidate, func() error {
		n.normalize()
		return Validate(n)
	})
	if err != nil {
		return nil, err
	}

	var txnHash string
	if s.chain != nil {
		err = s.step(metrics.StepChain, func() error {
			var err error
			txnHash, err = s.chain.CreateNews(ctx, payloadOf(n))
			if err != nil {
				return fmt.Errorf("create news on chain: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		n.TxnHash = txnHash
	} else {
		s.logger.Debug("chain disabled, skipping transaction")
	}

	err = s.step(metrics.StepStore, func() error {
		return s.repo.Create(ctx, n)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.NewsCreated()
	}
	s.logger.Info("news created",
		zap.String("id", n.ID.Hex()),
		zap.Int("files", len(n.Files)),
		zap.String("txn_hash", txnHash),
	)
	return &Created{News: n, TxnHash: txnHash}, nil
}

// List returns the on-chain news collection as the node renders it.
func (s *Service) List(ctx context.Context) ([]any, error) {
	if s.chain == nil {
		return nil, apperr.New("Blockchain module not configured", http.StatusServiceUnavailable)
	}

	var items []any
	err := s.step(metrics.StepList, func() error {
		var err error
		items, err = s.chain.ListNews(ctx)
		if err != nil {
			return fmt.Errorf("list news on chain: %w", err)
		}
		return nil
	})
	return items, err
}

// pinUploads pins files in order, then the thumbnail. Earlier pins are kept
// when a later one fails.
func (s *Service) pinUploads(ctx context.Context, n *News, in CreateInput) error {
	n.Files = make([]string, 0, len(in.Files))
	for _, f := range in.Files {
		c, err := s.pinner.PinFile(ctx, f)
		if err != nil {
			return fmt.Errorf("pin %s: %w", f.Name, err)
		}
		n.Files = append(n.Files, pinning.GatewayURL(s.gateway, c))
	}

	if in.Thumbnail != nil {
		c, err := s.pinner.PinFile(ctx, *in.Thumbnail)
		if err != nil {
			return fmt.Errorf("pin thumbnail %s: %w", in.Thumbnail.Name, err)
		}
		n.Thumbnail = pinning.GatewayURL(s.gateway, c)
	}
	return nil
}

func (s *Service) classify(ctx context.Context, n *News, in CreateInput) error {
	res, err := s.analyzer.Analyze(ctx, insights.Request{
		Title:       in.Title,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		Files:       in.Files,
	})
	if err != nil {
		return fmt.Errorf("request insights: %w", err)
	}
	if !res.OK() {
		s.logger.Warn("insights request rejected",
			zap.String("status", res.Status),
			zap.String("error", res.Error),
		)
		return apperr.WithDetail("Failed to get news insights", http.StatusBadGateway, res.Error)
	}

	n.Insights = res.Insights
	n.Score = res.Score
	n.ScoreReasoning = res.ScoreReasoning
	n.Category = res.Category
	n.SubCategory = res.SubCategory
	n.Labels = res.Labels
	return nil
}

func (s *Service) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if s.metrics != nil {
		s.metrics.ObserveStep(name, time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn("pipeline step failed", zap.String("step", name), zap.Error(err))
	}
	return err
}

func payloadOf(n *News) chain.NewsPayload {
	files := n.Files
	if files == nil {
		files = []string{}
	}
	labels := n.Labels
	if labels == nil {
		labels = []string{}
	}
	return chain.NewsPayload{
		Title:       n.Title,
		Description: n.Description,
		Thumbnail:   n.Thumbnail,
		Files:       files,
		Category:    n.Category,
		SubCategory: n.SubCategory,
		Labels:      labels,
		Score:       n.Score,
	}
}
