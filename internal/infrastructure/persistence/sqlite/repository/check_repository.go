package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/infrastructure/persistence/sqlite/model"
	"adcheck/internal/ports"
)

type CheckRepository struct {
	db *gorm.DB
}

var _ ports.CheckRepository = (*CheckRepository)(nil)

func NewCheckRepository(db *gorm.DB) *CheckRepository {
	return &CheckRepository{db: db}
}

func (r *CheckRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *CheckRepository) CreateCheck(ctx context.Context, input ports.Check) (ports.Check, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Check{}, err
	}

	row := checkToModel(input)
	if err := db.Create(&row).Error; err != nil {
		return ports.Check{}, errs.Wrap(err, "insert check")
	}
	return checkToPort(row), nil
}

func (r *CheckRepository) GetCheck(ctx context.Context, checkID string) (ports.Check, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Check{}, err
	}

	var row model.Check
	if err := db.Where("check_id = ?", checkID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Check{}, ports.ErrCheckNotFound
		}
		return ports.Check{}, errs.Wrap(err, "query check by id")
	}
	return checkToPort(row), nil
}

// MarkCheckProcessing is a conditional update so the pending->processing
// transition can never fire twice and never resurrect a terminal check.
func (r *CheckRepository) MarkCheckProcessing(ctx context.Context, checkID string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Check{}).
		Where("check_id = ? AND status = ?", checkID, string(domaincheck.StatusPending)).
		Update("status", string(domaincheck.StatusProcessing))
	if res.Error != nil {
		return errs.Wrap(res.Error, "mark check processing")
	}
	if res.RowsAffected == 0 {
		return r.staleOrMissing(db, checkID)
	}
	return nil
}

func (r *CheckRepository) SetOCRStatus(ctx context.Context, input ports.OCRUpdate) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	updates := map[string]any{"ocr_status": input.OCRStatus}
	if input.ExtractedText != nil {
		updates["extracted_text"] = *input.ExtractedText
	}
	if input.MetaJSON != nil {
		updates["ocr_meta_json"] = *input.MetaJSON
	}

	res := db.Model(&model.Check{}).Where("check_id = ?", input.CheckID).Updates(updates)
	if res.Error != nil {
		return errs.Wrap(res.Error, "set check ocr status")
	}
	if res.RowsAffected == 0 {
		return ports.ErrCheckNotFound
	}
	return nil
}

// CompleteCheck requires status=processing at update time. Zero rows
// affected means a competing writer (usually the timeout path) already
// finished this check; callers must discard their result.
func (r *CheckRepository) CompleteCheck(ctx context.Context, checkID string, modifiedText string, completedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Check{}).
		Where("check_id = ? AND status = ?", checkID, string(domaincheck.StatusProcessing)).
		Updates(map[string]any{
			"status":        string(domaincheck.StatusCompleted),
			"modified_text": modifiedText,
			"completed_at":  completedAt,
			"error_message": nil,
		})
	if res.Error != nil {
		return errs.Wrap(res.Error, "complete check")
	}
	if res.RowsAffected == 0 {
		return r.staleOrMissing(db, checkID)
	}
	return nil
}

func (r *CheckRepository) FailCheck(ctx context.Context, checkID string, errorMessage string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Check{}).
		Where("check_id = ? AND status IN ?", checkID, []string{
			string(domaincheck.StatusPending),
			string(domaincheck.StatusProcessing),
		}).
		Updates(map[string]any{
			"status":        string(domaincheck.StatusFailed),
			"error_message": errorMessage,
		})
	if res.Error != nil {
		return errs.Wrap(res.Error, "fail check")
	}
	if res.RowsAffected == 0 {
		return r.staleOrMissing(db, checkID)
	}
	return nil
}

func (r *CheckRepository) CreateViolations(ctx context.Context, inputs []ports.ViolationCreate) error {
	if len(inputs) == 0 {
		return nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.Violation, 0, len(inputs))
	for _, input := range inputs {
		rows = append(rows, model.Violation{
			CheckID:      input.CheckID,
			StartPos:     input.StartPos,
			EndPos:       input.EndPos,
			Reason:       input.Reason,
			DictionaryID: input.DictionaryID,
		})
	}

	if err := db.Create(&rows).Error; err != nil {
		return errs.Wrap(err, "insert violations")
	}
	return nil
}

func (r *CheckRepository) ListViolations(ctx context.Context, checkID string) ([]ports.Violation, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Violation
	if err := db.
		Where("check_id = ?", checkID).
		Order("start_pos asc, violation_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query violations")
	}

	items := make([]ports.Violation, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Violation{
			ViolationID:  row.ViolationID,
			CheckID:      row.CheckID,
			StartPos:     row.StartPos,
			EndPos:       row.EndPos,
			Reason:       row.Reason,
			DictionaryID: row.DictionaryID,
		})
	}
	return items, nil
}

func (r *CheckRepository) staleOrMissing(db *gorm.DB, checkID string) error {
	var count int64
	if err := db.Model(&model.Check{}).Where("check_id = ?", checkID).Count(&count).Error; err != nil {
		return errs.Wrap(err, "count check rows")
	}
	if count == 0 {
		return ports.ErrCheckNotFound
	}
	return ports.ErrStaleStatus
}

func checkToModel(input ports.Check) model.Check {
	return model.Check{
		CheckID:        input.CheckID,
		OrganizationID: input.OrganizationID,
		UserID:         input.UserID,
		InputType:      input.InputType,
		OriginalText:   input.OriginalText,
		ImageRef:       input.ImageRef,
		ExtractedText:  input.ExtractedText,
		ModifiedText:   input.ModifiedText,
		Status:         input.Status,
		OCRStatus:      input.OCRStatus,
		ErrorMessage:   input.ErrorMessage,
		OCRMetaJSON:    input.OCRMetaJSON,
		CreatedAt:      input.CreatedAt,
		CompletedAt:    input.CompletedAt,
	}
}

func checkToPort(row model.Check) ports.Check {
	return ports.Check{
		CheckID:        row.CheckID,
		OrganizationID: row.OrganizationID,
		UserID:         row.UserID,
		InputType:      row.InputType,
		OriginalText:   row.OriginalText,
		ImageRef:       row.ImageRef,
		ExtractedText:  row.ExtractedText,
		ModifiedText:   row.ModifiedText,
		Status:         row.Status,
		OCRStatus:      row.OCRStatus,
		ErrorMessage:   row.ErrorMessage,
		OCRMetaJSON:    row.OCRMetaJSON,
		CreatedAt:      row.CreatedAt,
		CompletedAt:    row.CompletedAt,
	}
}
