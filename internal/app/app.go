// Package app builds the analysis pipeline from configuration. It is shared
// by the HTTP server and the command-line client.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fnolguard/internal/config"
	"fnolguard/internal/domain"
	"fnolguard/internal/email/noop"
	"fnolguard/internal/email/ses"
	"fnolguard/internal/invoker"
	"fnolguard/internal/invoker/builtin"
	"fnolguard/internal/metadata"
	"fnolguard/internal/port"
	"fnolguard/internal/service"
	"fnolguard/internal/storage/minio"
	s3storage "fnolguard/internal/storage/s3"
)

// Storage and escalation providers.
const (
	StorageS3     = "s3"
	StorageMinio  = "minio"
	EscalationSES = "ses"
	EscalationLog = "noop"
)

// App holds the wired components.
type App struct {
	Store    port.BlobStore
	Models   *invoker.Registry
	Analysis service.AnalysisService
}

// New wires storage, the model registry, the escalation notifier, and the
// analysis service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	escalateAt := domain.ParseFraudScore(cfg.Escalation.MinScore)
	if escalateAt == domain.FraudScoreUnknown {
		return nil, fmt.Errorf("invalid escalation min_score %q", cfg.Escalation.MinScore)
	}

	store, err := NewBlobStore(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	extractor := metadata.NewExtractor()

	builtin.Register()
	models := invoker.NewRegistry(cfg.Models, invoker.Deps{
		Store:           store,
		Text:            extractor,
		Logger:          log,
		PresignExpiry:   cfg.Storage.PresignDuration(),
		InlineTextLimit: cfg.Analysis.InlineTextLimit,
	})
	for _, m := range models.List() {
		if !m.Available {
			log.Warn("app.New: model not available", zap.String("model", m.ID), zap.String("reason", m.Reason))
		}
	}

	notifier, err := NewNotifier(ctx, &cfg.Escalation, log)
	if err != nil {
		return nil, err
	}

	analysis := service.NewAnalysisService(models, store, extractor, notifier, service.AnalysisConfig{
		MaxFiles:        cfg.Analysis.MaxFiles,
		MaxFileBytes:    cfg.Analysis.MaxFileBytes(),
		FileConcurrency: cfg.Analysis.FileConcurrency,
		KeyPrefix:       cfg.Storage.KeyPrefix,
		PreviewChars:    cfg.Analysis.PreviewChars,
		EscalateAt:      escalateAt,
	}, log)

	return &App{Store: store, Models: models, Analysis: analysis}, nil
}

// NewBlobStore selects the blob store for the configured provider.
func NewBlobStore(ctx context.Context, cfg *config.StorageConfig) (port.BlobStore, error) {
	switch cfg.Provider {
	case StorageS3, "":
		store, err := s3storage.NewS3Client(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		return store, nil
	case StorageMinio:
		store, err := minio.NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
	}
}

// NewNotifier selects the escalation notifier for the configured provider.
func NewNotifier(ctx context.Context, cfg *config.EscalationConfig, log *zap.Logger) (port.EscalationNotifier, error) {
	switch cfg.Provider {
	case EscalationLog, "":
		return noop.NewNoopNotifier(log), nil
	case EscalationSES:
		n, err := ses.NewSESNotifier(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported escalation provider %q", cfg.Provider)
	}
}
