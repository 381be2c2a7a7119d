package check

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

// Config bounds the pipeline's latency and cost under concurrent load.
// Zero values fall back to production defaults.
type Config struct {
	MaxConcurrent   int
	PipelineTimeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration

	EmbeddingTTL   time.Duration
	SimilarityTTL  time.Duration
	QueueStatusTTL time.Duration

	// Similarity search bounds. Long inputs shrink the search text,
	// lower the candidate cap and relax the vector threshold.
	TopK                int
	MaxEmbeddingRunes   int
	LongTextRunes       int
	VectorThreshold     float64
	VectorThresholdLong float64
	LexicalThreshold    float64
	MaxCandidates       int
	MaxCandidatesLong   int
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = 3
	}
	if out.PipelineTimeout <= 0 {
		out.PipelineTimeout = 120 * time.Second
	}
	if out.MaxRetries <= 0 {
		out.MaxRetries = 2
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = time.Second
	}
	if out.EmbeddingTTL <= 0 {
		out.EmbeddingTTL = 15 * time.Minute
	}
	if out.SimilarityTTL <= 0 {
		out.SimilarityTTL = 5 * time.Minute
	}
	if out.QueueStatusTTL <= 0 {
		out.QueueStatusTTL = 2 * time.Second
	}
	if out.TopK <= 0 {
		out.TopK = 20
	}
	if out.MaxEmbeddingRunes <= 0 {
		out.MaxEmbeddingRunes = 4000
	}
	if out.LongTextRunes <= 0 {
		out.LongTextRunes = 2000
	}
	if out.VectorThreshold <= 0 {
		out.VectorThreshold = 0.75
	}
	if out.VectorThresholdLong <= 0 {
		out.VectorThresholdLong = 0.65
	}
	if out.LexicalThreshold <= 0 {
		out.LexicalThreshold = 0.5
	}
	if out.MaxCandidates <= 0 {
		out.MaxCandidates = 50
	}
	if out.MaxCandidatesLong <= 0 {
		out.MaxCandidatesLong = 30
	}
	return out
}

// Service owns the check-processing pipeline: admission control, the
// per-check stage sequence, and the read operations the HTTP layer
// consumes.
type Service struct {
	checks    ports.CheckRepository
	dict      ports.DictionaryRepository
	orgs      ports.OrganizationRepository
	uow       ports.UnitOfWork
	cache     ports.Cache
	embedder  ports.Embedder
	extractor ports.TextExtractor
	completer ports.CompletionService

	cfg   Config
	queue *QueueManager
	now   func() time.Time
}

type Deps struct {
	Checks    ports.CheckRepository
	Dict      ports.DictionaryRepository
	Orgs      ports.OrganizationRepository
	UoW       ports.UnitOfWork
	Cache     ports.Cache
	Embedder  ports.Embedder
	Extractor ports.TextExtractor
	Completer ports.CompletionService
}

func NewService(deps Deps, cfg Config) (*Service, error) {
	if deps.Checks == nil {
		return nil, errors.New("check repository is required")
	}
	if deps.Dict == nil {
		return nil, errors.New("dictionary repository is required")
	}
	if deps.Orgs == nil {
		return nil, errors.New("organization repository is required")
	}
	if deps.UoW == nil {
		return nil, errors.New("unit of work is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if deps.Completer == nil {
		return nil, errors.New("completion service is required")
	}

	s := &Service{
		checks:    deps.Checks,
		dict:      deps.Dict,
		orgs:      deps.Orgs,
		uow:       deps.UoW,
		cache:     deps.Cache,
		embedder:  deps.Embedder,
		extractor: deps.Extractor,
		completer: deps.Completer,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
	s.queue = NewQueueManager(s.cfg.MaxConcurrent, s.runPipeline)
	return s, nil
}

// Close stops admitting new checks. In-flight pipelines run to completion.
func (s *Service) Close() {
	s.queue.Close()
}

type SubmitCheckInput struct {
	OrganizationID string
	UserID         string
	InputType      string
	Text           string
	ImageRef       string
}

type SubmitCheckResult struct {
	CheckID string
	Status  string
}

// SubmitCheck validates the request, persists a pending check and hands it
// to the admission controller. It returns immediately; callers observe
// progress through GetCheck.
func (s *Service) SubmitCheck(ctx context.Context, in SubmitCheckInput) (SubmitCheckResult, error) {
	if ctx == nil {
		return SubmitCheckResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return SubmitCheckResult{}, errs.Wrap(err, "check context")
	}

	normalized, err := normalizeSubmitInput(in)
	if err != nil {
		return SubmitCheckResult{}, err
	}

	row := ports.Check{
		CheckID:        uuid.NewString(),
		OrganizationID: normalized.OrganizationID,
		UserID:         normalized.UserID,
		InputType:      normalized.InputType,
		OriginalText:   normalized.Text,
		Status:         string(domaincheck.StatusPending),
		CreatedAt:      s.now().UTC().Format(time.RFC3339Nano),
	}
	if normalized.InputType == string(domaincheck.InputTypeImage) {
		imageRef := normalized.ImageRef
		row.ImageRef = &imageRef
	}

	created, err := s.checks.CreateCheck(ctx, row)
	if err != nil {
		return SubmitCheckResult{}, errs.Wrap(err, "create check")
	}

	s.queue.Submit(created.CheckID)
	logging.Info(ctx, "check submitted",
		slog.String("check_id", created.CheckID),
		slog.String("organization_id", created.OrganizationID),
		slog.String("input_type", created.InputType),
	)

	return SubmitCheckResult{CheckID: created.CheckID, Status: created.Status}, nil
}

func normalizeSubmitInput(in SubmitCheckInput) (SubmitCheckInput, error) {
	out := in
	out.OrganizationID = strings.TrimSpace(out.OrganizationID)
	out.UserID = strings.TrimSpace(out.UserID)
	out.InputType = strings.TrimSpace(out.InputType)
	out.Text = strings.TrimSpace(out.Text)
	out.ImageRef = strings.TrimSpace(out.ImageRef)

	if out.OrganizationID == "" {
		return SubmitCheckInput{}, errs.Wrap(domaincheck.ErrInvalidInput, "organization id is required")
	}
	if out.UserID == "" {
		return SubmitCheckInput{}, errs.Wrap(domaincheck.ErrInvalidInput, "user id is required")
	}
	if !domaincheck.ValidInputType(domaincheck.InputType(out.InputType)) {
		return SubmitCheckInput{}, errs.Wrapf(domaincheck.ErrInvalidInput, "unsupported input type %q", in.InputType)
	}

	switch domaincheck.InputType(out.InputType) {
	case domaincheck.InputTypeText:
		if out.Text == "" {
			return SubmitCheckInput{}, errs.Wrap(domaincheck.ErrInvalidInput, "text is required for text input")
		}
	case domaincheck.InputTypeImage:
		if out.ImageRef == "" {
			return SubmitCheckInput{}, errs.Wrap(domaincheck.ErrInvalidInput, "image ref is required for image input")
		}
	}
	return out, nil
}
