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

// persistResult writes the detection outcome atomically: violation rows
// and the completed status land in one transaction, so a reader can never
// observe violations on a non-completed check or a completed check missing
// its violations.
func (s *Service) persistResult(ctx context.Context, checkID string, modifiedText string, violations []ports.ViolationCreate) error {
	completedAt := s.now().UTC().Format(time.RFC3339Nano)

	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if len(violations) > 0 {
			if err := s.checks.CreateViolations(txCtx, violations); err != nil {
				return err
			}
		}
		return s.checks.CompleteCheck(txCtx, checkID, modifiedText, completedAt)
	})
	if err != nil {
		if errors.Is(err, ports.ErrStaleStatus) {
			// A competing writer (timeout path) already finalized the
			// check; the transaction rolled back, so no violations leaked.
			return err
		}
		return errs.Wrapf(domaincheck.ErrRepository, "persist check result: %v", err)
	}
	return nil
}

// incrementUsageBestEffort bumps the organization counter after the check
// is already completed. This is the one write whose failure never reverts
// the check; it is logged and dropped.
func (s *Service) incrementUsageBestEffort(organizationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), failWriteTimeout)
	defer cancel()

	if err := s.orgs.IncrementUsage(ctx, organizationID); err != nil {
		logging.Warn(logging.WithAttrs(ctx, slog.String("component", "check.pipeline")),
			"increment organization usage failed",
			slog.String("organization_id", organizationID),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}
