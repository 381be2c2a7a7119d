package check

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

type ocrMeta struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	Confidence       float64 `json:"confidence"`
	ProcessingTimeMS int64   `json:"processing_time_ms"`
	Error            string  `json:"error,omitempty"`
}

// runOCRStage resolves an image check's ocr_* substate before any other
// stage runs. Failure is fatal for the whole check: no fallback text is
// ever substituted.
func (s *Service) runOCRStage(ctx context.Context, chk ports.Check) (string, error) {
	if s.extractor == nil {
		return "", errs.Wrap(domaincheck.ErrOCRFailed, "no text extractor configured")
	}
	if chk.ImageRef == nil || strings.TrimSpace(*chk.ImageRef) == "" {
		return "", errs.Wrap(domaincheck.ErrOCRFailed, "image check has no image ref")
	}

	if err := s.checks.SetOCRStatus(ctx, ports.OCRUpdate{
		CheckID:   chk.CheckID,
		OCRStatus: string(domaincheck.OCRStatusProcessing),
	}); err != nil {
		return "", errs.Wrapf(domaincheck.ErrRepository, "mark ocr processing: %v", err)
	}

	result, err := s.extractor.ExtractText(ctx, *chk.ImageRef)
	if err != nil {
		s.persistOCRFailure(chk.CheckID, err.Error())
		return "", errs.Wrapf(domaincheck.ErrOCRFailed, "extract text: %v", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		s.persistOCRFailure(chk.CheckID, "empty extraction result")
		return "", errs.Wrap(domaincheck.ErrOCRFailed, "extraction returned no text")
	}

	confidence := domaincheck.OCRConfidence(result.Text, result.Width, result.Height)
	meta := ocrMeta{
		Provider:         result.Provider,
		Model:            result.Model,
		Confidence:       confidence,
		ProcessingTimeMS: result.ProcessingTimeMS,
	}
	metaJSON := marshalOCRMeta(ctx, meta)

	text := result.Text
	if err := s.checks.SetOCRStatus(ctx, ports.OCRUpdate{
		CheckID:       chk.CheckID,
		OCRStatus:     string(domaincheck.OCRStatusCompleted),
		ExtractedText: &text,
		MetaJSON:      metaJSON,
	}); err != nil {
		return "", errs.Wrapf(domaincheck.ErrRepository, "persist ocr result: %v", err)
	}

	logging.Info(ctx, "ocr stage completed",
		slog.Float64("confidence", confidence),
		slog.Int64("processing_time_ms", result.ProcessingTimeMS),
	)
	return text, nil
}

// persistOCRFailure is best effort; the fatal OCR error is what decides
// the check's fate. It writes on a detached context so the ocr_status row
// is not stranded at processing when the pipeline deadline is what killed
// the extraction.
func (s *Service) persistOCRFailure(checkID string, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), failWriteTimeout)
	defer cancel()

	metaJSON := marshalOCRMeta(ctx, ocrMeta{Provider: "unknown", Error: reason})
	if err := s.checks.SetOCRStatus(ctx, ports.OCRUpdate{
		CheckID:   checkID,
		OCRStatus: string(domaincheck.OCRStatusFailed),
		MetaJSON:  metaJSON,
	}); err != nil {
		logging.Error(ctx, "persist ocr failure", slog.Any("err", errs.Loggable(err)))
	}
}

func marshalOCRMeta(ctx context.Context, meta ocrMeta) *string {
	raw, err := json.Marshal(meta)
	if err != nil {
		logging.Warn(ctx, "encode ocr metadata", slog.Any("err", errs.Loggable(err)))
		return nil
	}
	encoded := string(raw)
	return &encoded
}
