package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"adcheck/internal/errs"
	"adcheck/internal/infrastructure/persistence/sqlite/model"
	"adcheck/internal/ports"
)

type DictionaryRepository struct {
	db *gorm.DB
}

var _ ports.DictionaryRepository = (*DictionaryRepository)(nil)

func NewDictionaryRepository(db *gorm.DB) *DictionaryRepository {
	return &DictionaryRepository{db: db}
}

func (r *DictionaryRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
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

func (r *DictionaryRepository) ListEntries(ctx context.Context, organizationID string) ([]ports.DictionaryEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.DictionaryEntry
	if err := db.
		Where("organization_id = ?", organizationID).
		Order("entry_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query dictionary entries")
	}

	items := make([]ports.DictionaryEntry, 0, len(rows))
	for _, row := range rows {
		item, err := entryToPort(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *DictionaryRepository) ListEntriesMissingEmbedding(ctx context.Context, organizationID string) ([]ports.DictionaryEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.DictionaryEntry
	if err := db.
		Where("organization_id = ? AND embedding_json = ''", organizationID).
		Order("entry_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query entries missing embedding")
	}

	items := make([]ports.DictionaryEntry, 0, len(rows))
	for _, row := range rows {
		item, err := entryToPort(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *DictionaryRepository) CreateEntry(ctx context.Context, input ports.DictionaryEntry) (ports.DictionaryEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.DictionaryEntry{}, err
	}

	embeddingJSON, err := marshalEmbedding(input.Embedding)
	if err != nil {
		return ports.DictionaryEntry{}, err
	}

	row := model.DictionaryEntry{
		EntryID:        input.EntryID,
		OrganizationID: input.OrganizationID,
		Phrase:         input.Phrase,
		Category:       input.Category,
		Notes:          input.Notes,
		EmbeddingJSON:  embeddingJSON,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.DictionaryEntry{}, errs.Wrap(err, "insert dictionary entry")
	}
	return entryToPort(row)
}

func (r *DictionaryRepository) UpdateEntryEmbedding(ctx context.Context, entryID string, embedding []float32) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	embeddingJSON, err := marshalEmbedding(embedding)
	if err != nil {
		return err
	}

	res := db.Model(&model.DictionaryEntry{}).
		Where("entry_id = ?", entryID).
		Update("embedding_json", embeddingJSON)
	if res.Error != nil {
		return errs.Wrap(res.Error, "update entry embedding")
	}
	if res.RowsAffected == 0 {
		return ports.ErrDictionaryEntryNotFound
	}
	return nil
}

func entryToPort(row model.DictionaryEntry) (ports.DictionaryEntry, error) {
	item := ports.DictionaryEntry{
		EntryID:        row.EntryID,
		OrganizationID: row.OrganizationID,
		Phrase:         row.Phrase,
		Category:       row.Category,
		Notes:          row.Notes,
	}
	if row.EmbeddingJSON != "" {
		if err := json.Unmarshal([]byte(row.EmbeddingJSON), &item.Embedding); err != nil {
			return ports.DictionaryEntry{}, errs.Wrapf(err, "decode embedding for entry %s", row.EntryID)
		}
	}
	return item, nil
}

func marshalEmbedding(embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(embedding)
	if err != nil {
		return "", errs.Wrap(err, "encode embedding")
	}
	return string(raw), nil
}
