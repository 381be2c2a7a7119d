package ports

import (
	"context"
	"errors"
)

var ErrDictionaryEntryNotFound = errors.New("dictionary entry not found")

type DictionaryEntry struct {
	EntryID        string
	OrganizationID string
	Phrase         string
	Category       string
	Notes          string
	Embedding      []float32
}

// DictionaryRepository is read-mostly from the pipeline's perspective;
// writes exist for the offline import/embedding precompute commands.
type DictionaryRepository interface {
	ListEntries(ctx context.Context, organizationID string) ([]DictionaryEntry, error)
	ListEntriesMissingEmbedding(ctx context.Context, organizationID string) ([]DictionaryEntry, error)
	CreateEntry(ctx context.Context, input DictionaryEntry) (DictionaryEntry, error)
	UpdateEntryEmbedding(ctx context.Context, entryID string, embedding []float32) error
}
