package check

import (
	"context"
	"encoding/json"
	"errors"

	"adcheck/internal/errs"
)

type ViolationItem struct {
	ViolationID  uint64 `json:"violation_id"`
	StartPos     int    `json:"start_pos"`
	EndPos       int    `json:"end_pos"`
	Reason       string `json:"reason"`
	DictionaryID string `json:"dictionary_id,omitempty"`
}

type CheckDetail struct {
	CheckID        string          `json:"check_id"`
	OrganizationID string          `json:"organization_id"`
	UserID         string          `json:"user_id"`
	InputType      string          `json:"input_type"`
	OriginalText   string          `json:"original_text"`
	ExtractedText  string          `json:"extracted_text,omitempty"`
	ModifiedText   string          `json:"modified_text,omitempty"`
	Status         string          `json:"status"`
	OCRStatus      string          `json:"ocr_status,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      string          `json:"created_at"`
	CompletedAt    string          `json:"completed_at,omitempty"`
	Violations     []ViolationItem `json:"violations"`
}

// GetCheck is the polling surface the UI layer consumes: current status
// plus violations once the check completes.
func (s *Service) GetCheck(ctx context.Context, checkID string) (CheckDetail, error) {
	if ctx == nil {
		return CheckDetail{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return CheckDetail{}, errs.Wrap(err, "check context")
	}

	chk, err := s.checks.GetCheck(ctx, checkID)
	if err != nil {
		return CheckDetail{}, err
	}

	violations, err := s.checks.ListViolations(ctx, checkID)
	if err != nil {
		return CheckDetail{}, err
	}

	detail := CheckDetail{
		CheckID:        chk.CheckID,
		OrganizationID: chk.OrganizationID,
		UserID:         chk.UserID,
		InputType:      chk.InputType,
		OriginalText:   chk.OriginalText,
		ExtractedText:  derefString(chk.ExtractedText),
		ModifiedText:   derefString(chk.ModifiedText),
		Status:         chk.Status,
		OCRStatus:      derefString(chk.OCRStatus),
		ErrorMessage:   derefString(chk.ErrorMessage),
		CreatedAt:      chk.CreatedAt,
		CompletedAt:    derefString(chk.CompletedAt),
		Violations:     make([]ViolationItem, 0, len(violations)),
	}
	for _, v := range violations {
		detail.Violations = append(detail.Violations, ViolationItem{
			ViolationID:  v.ViolationID,
			StartPos:     v.StartPos,
			EndPos:       v.EndPos,
			Reason:       v.Reason,
			DictionaryID: derefString(v.DictionaryID),
		})
	}
	return detail, nil
}

type QueueStatusDetail struct {
	QueueLength     int   `json:"queue_length"`
	ProcessingCount int   `json:"processing_count"`
	MaxConcurrent   int   `json:"max_concurrent"`
	UsageCount      int64 `json:"usage_count"`
	MonthlyLimit    int64 `json:"monthly_limit"`
}

// QueueStatus projects the admission controller's live counters plus the
// organization's usage, cached briefly per organization because the UI
// polls it aggressively.
func (s *Service) QueueStatus(ctx context.Context, organizationID string) (QueueStatusDetail, error) {
	if ctx == nil {
		return QueueStatusDetail{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return QueueStatusDetail{}, errs.Wrap(err, "check context")
	}

	cacheKey := "queue:" + organizationID
	if cached, found, err := s.cache.Get(ctx, cacheKey); err == nil && found {
		var detail QueueStatusDetail
		if err := json.Unmarshal([]byte(cached), &detail); err == nil {
			return detail, nil
		}
		_ = s.cache.Delete(ctx, cacheKey)
	}

	org, err := s.orgs.GetOrganization(ctx, organizationID)
	if err != nil {
		return QueueStatusDetail{}, err
	}

	status := s.queue.Status()
	detail := QueueStatusDetail{
		QueueLength:     status.QueueLength,
		ProcessingCount: status.ProcessingCount,
		MaxConcurrent:   status.MaxConcurrent,
		UsageCount:      org.UsageCount,
		MonthlyLimit:    org.MonthlyLimit,
	}

	if raw, err := json.Marshal(detail); err == nil {
		_ = s.cache.Set(ctx, cacheKey, string(raw), s.cfg.QueueStatusTTL)
	}
	return detail, nil
}

// QueueSnapshot exposes the raw admission counters without the cached
// organization projection, for process-level introspection.
func (s *Service) QueueSnapshot() QueueStatus {
	return s.queue.Status()
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
