package check

import (
	"context"
	"log/slog"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

// runDetectionStage calls the completion service with the analyzed text
// and the NG reference phrases, retrying transient failures. This stage
// dominates the per-check latency budget; its retries spend the same
// timeout budget as everything else because ctx carries the deadline.
func (s *Service) runDetectionStage(ctx context.Context, text string, references []ports.NGReference) (ports.DetectionResult, error) {
	result, err := retryWithBackoff(ctx, s.cfg.MaxRetries, s.cfg.RetryBaseDelay,
		func(attemptCtx context.Context) (ports.DetectionResult, error) {
			return s.completer.Detect(attemptCtx, ports.DetectionInput{
				Text:       text,
				References: references,
			})
		})
	if err != nil {
		return ports.DetectionResult{}, errs.Wrapf(domaincheck.ErrCompletionFailed, "detect violations: %v", err)
	}

	logging.Info(ctx, "detection stage completed",
		slog.Int("reference_count", len(references)),
		slog.Int("violation_count", len(result.Violations)),
	)
	return result, nil
}
