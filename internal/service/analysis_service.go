package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"fnolguard/internal/assessment"
	"fnolguard/internal/domain"
	"fnolguard/internal/invoker"
	"fnolguard/internal/metrics"
	"fnolguard/internal/port"
	"fnolguard/internal/prompt"
	"fnolguard/internal/storage"
)

// Label used on metrics before a model identity has been resolved.
const unresolvedModel = "unresolved"

const narrativeExcerptLen = 400

// AnalysisConfig holds the limits applied to every analysis.
type AnalysisConfig struct {
	MaxFiles          int
	MaxFileBytes      int64
	FileConcurrency   int
	KeyPrefix         string
	PreviewChars      int
	EscalateAt        domain.FraudScore
	SystemInstruction string
}

// AnalysisService defines the claim analysis contract.
type AnalysisService interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error)
}

type analysisService struct {
	models    port.ModelResolver
	store     port.BlobStore
	extractor port.MetadataExtractor
	notifier  port.EscalationNotifier
	cfg       AnalysisConfig
	log       *zap.Logger
}

// NewAnalysisService creates a new AnalysisService implementation.
func NewAnalysisService(
	models port.ModelResolver,
	store port.BlobStore,
	extractor port.MetadataExtractor,
	notifier port.EscalationNotifier,
	cfg AnalysisConfig,
	log *zap.Logger,
) AnalysisService {
	if cfg.FileConcurrency <= 0 {
		cfg.FileConcurrency = 1
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = assessment.DefaultPreviewChars
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = prompt.SystemInstruction
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &analysisService{
		models:    models,
		store:     store,
		extractor: extractor,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

func (s *analysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	inv, err := s.validate(req)
	if err != nil {
		label, outcome := unresolvedModel, metrics.OutcomeInvalidInput
		var cfgErr *domain.ModelConfigError
		if errors.As(err, &cfgErr) {
			outcome = metrics.OutcomeModelConfig
			if !cfgErr.Unknown {
				label = req.Model
			}
		}
		metrics.AnalysesTotal.WithLabelValues(label, outcome).Inc()
		s.log.Info("analysisService.Analyze: request rejected",
			zap.String("model", req.Model), zap.Int("files", len(req.Files)), zap.Error(err))
		return nil, err
	}

	s.log.Info("analysisService.Analyze: starting",
		zap.String("model", req.Model), zap.Int("files", len(req.Files)), zap.Int("narrative_chars", len(req.Narrative)))

	files := s.processFiles(ctx, req.Files)

	warnings := make([]domain.FileWarning, 0)
	refs := make([]domain.StoredFileRef, 0, len(files))
	for i := range files {
		if w, ok := warningFor(files[i]); ok {
			warnings = append(warnings, w)
		}
		if files[i].Ref != nil {
			refs = append(refs, *files[i].Ref)
		}
	}

	if err := ctx.Err(); err != nil {
		metrics.AnalysesTotal.WithLabelValues(req.Model, metrics.OutcomeInternalError).Inc()
		return nil, fmt.Errorf("processing files: %w", err)
	}

	promptText := prompt.Assemble(s.cfg.SystemInstruction, req.Narrative, files)

	start := time.Now()
	reply, err := inv.Invoke(ctx, port.InvokeInput{Prompt: promptText, Files: refs})
	metrics.ModelInvocationDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		err = invoker.AsInvocationError(req.Model, err)
		outcome := metrics.OutcomeModelFailure
		if errors.Is(err, domain.ErrModelConfig) {
			outcome = metrics.OutcomeModelConfig
		}
		metrics.AnalysesTotal.WithLabelValues(req.Model, outcome).Inc()
		s.log.Error("analysisService.Analyze: model invocation failed",
			zap.String("model", req.Model), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, err
	}

	result := assessment.Parse(reply.RawText, s.cfg.PreviewChars)
	metrics.AssessmentScores.WithLabelValues(string(result.Score)).Inc()
	metrics.AnalysesTotal.WithLabelValues(req.Model, metrics.OutcomeSuccess).Inc()

	s.log.Info("analysisService.Analyze: completed",
		zap.String("model", req.Model),
		zap.String("model_used", reply.ModelUsed),
		zap.String("score", string(result.Score)),
		zap.Int("rationale_items", len(result.Rationale)),
		zap.Int("file_warnings", len(warnings)),
		zap.Duration("elapsed", time.Since(start)))

	s.escalate(ctx, req, result, files)

	return &domain.AnalysisResult{
		Assessment:   result,
		FileWarnings: warnings,
		Files:        files,
		Model:        req.Model,
	}, nil
}

// validate checks the request and resolves the model before any file is
// touched, so an unusable request never causes storage or model traffic.
func (s *analysisService) validate(req domain.AnalysisRequest) (port.ModelInvoker, error) {
	if strings.TrimSpace(req.Narrative) == "" {
		return nil, domain.ErrEmptyNarrative
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, domain.ErrMissingModel
	}
	if s.cfg.MaxFiles > 0 && len(req.Files) > s.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: %d submitted, limit is %d", domain.ErrTooManyFiles, len(req.Files), s.cfg.MaxFiles)
	}
	return s.models.Resolve(req.Model)
}

// processFiles stores and describes every file with bounded concurrency.
// Results are written by index so submission order is preserved.
func (s *analysisService) processFiles(ctx context.Context, files []domain.UploadedFile) []domain.FileMetadata {
	out := make([]domain.FileMetadata, len(files))
	sem := make(chan struct{}, s.cfg.FileConcurrency)
	var wg sync.WaitGroup

	for i := range files {
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release
			out[i] = s.processFile(ctx, i, files[i])
		}(i)
	}
	wg.Wait()
	return out
}

func (s *analysisService) processFile(ctx context.Context, idx int, f domain.UploadedFile) domain.FileMetadata {
	name := f.Filename
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("unnamed-%d", idx+1)
	}
	contentType := s.extractor.ResolveContentType(f.Data, f.ContentType)
	meta := domain.FileMetadata{OriginalName: name, ContentType: contentType}

	size := int64(len(f.Data))
	switch {
	case size == 0:
		meta.UploadError = domain.ErrFileEmpty.Error()
	case s.cfg.MaxFileBytes > 0 && size > s.cfg.MaxFileBytes:
		meta.UploadError = fmt.Sprintf("%s (%d bytes, limit %d)", domain.ErrFileTooLarge, size, s.cfg.MaxFileBytes)
	}
	if meta.UploadError != "" {
		metrics.FileFailures.WithLabelValues(metrics.StageUpload).Inc()
		s.log.Warn("analysisService.processFile: file rejected",
			zap.String("filename", name), zap.Int64("size", size), zap.String("reason", meta.UploadError))
		return meta
	}

	out, err := s.store.Put(ctx, port.PutInput{
		Key:         storage.NewObjectKey(s.cfg.KeyPrefix, name),
		Body:        bytes.NewReader(f.Data),
		ContentType: contentType,
		Size:        size,
	})
	if err != nil {
		metrics.FileFailures.WithLabelValues(metrics.StageUpload).Inc()
		s.log.Warn("analysisService.processFile: upload failed",
			zap.String("filename", name), zap.Error(err))
		meta.UploadError = err.Error()
		return meta
	}
	meta.Ref = &domain.StoredFileRef{
		Location:     out.Location,
		ContentType:  contentType,
		OriginalName: name,
	}

	ex := s.extractor.Extract(f.Data, f.ContentType)
	meta.Facts = ex.Facts
	meta.ExtractionError = ex.Err
	if ex.Err != "" {
		metrics.FileFailures.WithLabelValues(metrics.StageExtract).Inc()
		s.log.Warn("analysisService.processFile: metadata extraction failed",
			zap.String("filename", name), zap.String("location", out.Location), zap.String("error", ex.Err))
	} else {
		s.log.Debug("analysisService.processFile: file processed",
			zap.String("filename", name), zap.String("location", out.Location), zap.Int("facts", len(ex.Facts)))
	}
	return meta
}

func warningFor(m domain.FileMetadata) (domain.FileWarning, bool) {
	switch {
	case m.UploadError != "":
		return domain.FileWarning{Filename: m.OriginalName, Error: "upload failed: " + m.UploadError}, true
	case m.ExtractionError != "":
		return domain.FileWarning{Filename: m.OriginalName, Error: "metadata extraction failed: " + m.ExtractionError}, true
	default:
		return domain.FileWarning{}, false
	}
}

// escalate notifies investigators about high-risk assessments. Delivery
// failures are logged and never fail the analysis.
func (s *analysisService) escalate(ctx context.Context, req domain.AnalysisRequest, a domain.FraudAssessment, files []domain.FileMetadata) {
	if s.notifier == nil || !a.Score.AtLeast(s.cfg.EscalateAt) {
		return
	}
	names := make([]string, len(files))
	for i := range files {
		names[i] = files[i].OriginalName
	}
	err := s.notifier.NotifyEscalation(ctx, port.Escalation{
		Model:            req.Model,
		Score:            a.Score,
		Rationale:        a.Rationale,
		Files:            names,
		NarrativeExcerpt: excerpt(strings.TrimSpace(req.Narrative), narrativeExcerptLen),
	})
	if err != nil {
		s.log.Error("analysisService.escalate: notification failed",
			zap.String("model", req.Model), zap.String("score", string(a.Score)), zap.Error(err))
		return
	}
	s.log.Info("analysisService.escalate: escalation sent",
		zap.String("model", req.Model), zap.String("score", string(a.Score)))
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
