package check

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

const failWriteTimeout = 10 * time.Second

// runPipeline executes one check's full stage sequence inside the timeout
// envelope. It is the queue runner: it blocks until the check reaches a
// terminal status, and the context it creates is passed into every stage
// so a fired timeout cancels in-flight I/O instead of racing it.
func (s *Service) runPipeline(checkID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PipelineTimeout)
	defer cancel()

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "check.pipeline"),
		slog.String("check_id", checkID),
	)

	started := s.now()
	err := s.process(logCtx, checkID)
	if err == nil {
		logging.Info(logCtx, "check pipeline completed",
			slog.Duration("elapsed", s.now().Sub(started)),
		)
		return
	}

	if errors.Is(err, ports.ErrStaleStatus) {
		// Another writer already finalized this check; nothing to do.
		logging.Warn(logCtx, "check already finalized", slog.Any("err", errs.Loggable(err)))
		return
	}

	// The envelope deadline firing wins over whatever stage error it
	// provoked: the user-facing classification must say timeout.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = errs.Wrapf(domaincheck.ErrCheckTimeout, "pipeline deadline exceeded: %v", err)
	}

	logging.Error(logCtx, "check pipeline failed", slog.Any("err", errs.Loggable(err)))
	s.markFailed(checkID, err)
}

func (s *Service) process(ctx context.Context, checkID string) error {
	chk, err := s.checks.GetCheck(ctx, checkID)
	if err != nil {
		return errs.Wrapf(domaincheck.ErrRepository, "load check: %v", err)
	}
	if domaincheck.Status(chk.Status).Terminal() {
		return nil
	}

	if err := s.checks.MarkCheckProcessing(ctx, checkID); err != nil {
		if errors.Is(err, ports.ErrStaleStatus) {
			return err
		}
		return errs.Wrapf(domaincheck.ErrRepository, "mark processing: %v", err)
	}

	text := chk.OriginalText
	if chk.InputType == string(domaincheck.InputTypeImage) {
		extracted, err := s.runOCRStage(ctx, chk)
		if err != nil {
			return err
		}
		text = extracted
	}

	references := s.referencePhrases(ctx, chk.OrganizationID, text)

	result, err := s.runDetectionStage(ctx, text, references)
	if err != nil {
		return err
	}

	violations := s.usableViolations(ctx, chk.CheckID, text, result.Violations)
	if err := s.persistResult(ctx, chk.CheckID, result.ModifiedText, violations); err != nil {
		return err
	}

	s.incrementUsageBestEffort(chk.OrganizationID)
	return nil
}

// markFailed persists the terminal failed status with a classified message.
// It runs on a detached context so the write succeeds even when the
// pipeline's own context is the thing that expired.
func (s *Service) markFailed(checkID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), failWriteTimeout)
	defer cancel()

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "check.pipeline"),
		slog.String("check_id", checkID),
	)

	message := domaincheck.ClassifyFailure(cause)
	if err := s.checks.FailCheck(ctx, checkID, message); err != nil {
		if errors.Is(err, ports.ErrStaleStatus) {
			logging.Warn(logCtx, "check already terminal, skip fail write")
			return
		}
		logging.Error(logCtx, "persist failed status", slog.Any("err", errs.Loggable(err)))
	}
}

// usableViolations validates AI-reported offsets against the analyzed text
// and drops what cannot be repaired. The completion service is known to
// return positions that do not line up with the text.
func (s *Service) usableViolations(ctx context.Context, checkID string, text string, detected []ports.DetectedViolation) []ports.ViolationCreate {
	out := make([]ports.ViolationCreate, 0, len(detected))
	for _, v := range detected {
		start, end, ok := domaincheck.RepairOffsets(text, v.StartPos, v.EndPos, v.Quote)
		if !ok {
			logging.Warn(ctx, "drop violation with unrepairable offsets",
				slog.Int("start_pos", v.StartPos),
				slog.Int("end_pos", v.EndPos),
				slog.String("quote", v.Quote),
			)
			continue
		}

		create := ports.ViolationCreate{
			CheckID:  checkID,
			StartPos: start,
			EndPos:   end,
			Reason:   v.Reason,
		}
		if v.DictionaryID != "" {
			dictionaryID := v.DictionaryID
			create.DictionaryID = &dictionaryID
		}
		out = append(out, create)
	}
	return out
}
