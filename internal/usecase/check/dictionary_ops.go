package check

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

type AddDictionaryEntryInput struct {
	OrganizationID   string
	OrganizationName string
	Phrase           string
	Category         string
	Notes            string
}

// AddDictionaryEntry registers one organization-scoped phrase rule. The
// vector is left empty until PrecomputeEmbeddings runs.
func (s *Service) AddDictionaryEntry(ctx context.Context, in AddDictionaryEntryInput) (ports.DictionaryEntry, error) {
	if ctx == nil {
		return ports.DictionaryEntry{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return ports.DictionaryEntry{}, errs.Wrap(err, "check context")
	}

	organizationID := strings.TrimSpace(in.OrganizationID)
	phrase := strings.TrimSpace(in.Phrase)
	category := strings.ToUpper(strings.TrimSpace(in.Category))

	if organizationID == "" {
		return ports.DictionaryEntry{}, errs.Wrap(domaincheck.ErrInvalidInput, "organization id is required")
	}
	if phrase == "" {
		return ports.DictionaryEntry{}, errs.Wrap(domaincheck.ErrInvalidInput, "phrase is required")
	}
	if category != domaincheck.CategoryNG && category != domaincheck.CategoryAllow {
		return ports.DictionaryEntry{}, errs.Wrapf(domaincheck.ErrInvalidInput, "unsupported category %q", in.Category)
	}

	if _, err := s.orgs.EnsureOrganization(ctx, organizationID, strings.TrimSpace(in.OrganizationName)); err != nil {
		return ports.DictionaryEntry{}, errs.Wrap(err, "ensure organization")
	}

	return s.dict.CreateEntry(ctx, ports.DictionaryEntry{
		EntryID:        uuid.NewString(),
		OrganizationID: organizationID,
		Phrase:         phrase,
		Category:       category,
		Notes:          strings.TrimSpace(in.Notes),
	})
}

func (s *Service) ListDictionaryEntries(ctx context.Context, organizationID string) ([]ports.DictionaryEntry, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	return s.dict.ListEntries(ctx, strings.TrimSpace(organizationID))
}

// PrecomputeEmbeddings is the offline embedding pass: every entry still
// missing a vector gets one. Returns how many entries were embedded.
func (s *Service) PrecomputeEmbeddings(ctx context.Context, organizationID string) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if s.embedder == nil {
		return 0, errors.New("embedder is required for precompute")
	}

	entries, err := s.dict.ListEntriesMissingEmbedding(ctx, strings.TrimSpace(organizationID))
	if err != nil {
		return 0, err
	}

	embedded := 0
	for _, entry := range entries {
		vector, err := s.embedder.EmbedText(ctx, entry.Phrase)
		if err != nil {
			return embedded, errs.Wrapf(err, "embed phrase %q", entry.Phrase)
		}
		if err := s.dict.UpdateEntryEmbedding(ctx, entry.EntryID, vector); err != nil {
			return embedded, err
		}
		embedded++
	}

	logging.Info(ctx, "dictionary embeddings precomputed",
		slog.String("organization_id", organizationID),
		slog.Int("embedded", embedded),
	)
	return embedded, nil
}
