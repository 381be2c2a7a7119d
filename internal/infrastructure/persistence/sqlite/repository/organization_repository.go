package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"adcheck/internal/errs"
	"adcheck/internal/infrastructure/persistence/sqlite/model"
	"adcheck/internal/ports"
)

type OrganizationRepository struct {
	db *gorm.DB
}

var _ ports.OrganizationRepository = (*OrganizationRepository)(nil)

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *OrganizationRepository) GetOrganization(ctx context.Context, organizationID string) (ports.Organization, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Organization{}, err
	}

	var row model.Organization
	if err := db.Where("organization_id = ?", organizationID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Organization{}, ports.ErrOrganizationNotFound
		}
		return ports.Organization{}, errs.Wrap(err, "query organization")
	}
	return orgToPort(row), nil
}

func (r *OrganizationRepository) EnsureOrganization(ctx context.Context, organizationID string, name string) (ports.Organization, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Organization{}, err
	}

	row := model.Organization{
		OrganizationID: organizationID,
		Name:           name,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "organization_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return ports.Organization{}, errs.Wrap(err, "ensure organization")
	}

	return r.GetOrganization(ctx, organizationID)
}

// IncrementUsage runs as a single UPDATE expression so concurrent check
// completions for the same organization cannot lose counts.
func (r *OrganizationRepository) IncrementUsage(ctx context.Context, organizationID string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&model.Organization{}).
		Where("organization_id = ?", organizationID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return errs.Wrap(res.Error, "increment organization usage")
	}
	if res.RowsAffected == 0 {
		return ports.ErrOrganizationNotFound
	}
	return nil
}

func orgToPort(row model.Organization) ports.Organization {
	return ports.Organization{
		OrganizationID: row.OrganizationID,
		Name:           row.Name,
		UsageCount:     row.UsageCount,
		MonthlyLimit:   row.MonthlyLimit,
	}
}
