package check

import (
	"context"
	"errors"
	"testing"

	domaincheck "adcheck/internal/domain/check"
)

func TestAddDictionaryEntryNormalizesAndPersists(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeEmbedder{vector: []float32{1, 0, 0}}, nil, echoCompleter())
	ctx := context.Background()

	entry, err := env.svc.AddDictionaryEntry(ctx, AddDictionaryEntryInput{
		OrganizationID:   " org-1 ",
		OrganizationName: "テスト組織",
		Phrase:           " がんが治る ",
		Category:         "ng",
		Notes:            "効能効果",
	})
	if err != nil {
		t.Fatalf("AddDictionaryEntry() error = %v", err)
	}
	if entry.Phrase != "がんが治る" || entry.Category != domaincheck.CategoryNG {
		t.Fatalf("entry = %+v, want trimmed phrase and upper-cased category", entry)
	}

	if _, err := env.orgs.GetOrganization(ctx, "org-1"); err != nil {
		t.Fatalf("organization was not ensured: %v", err)
	}

	listed, err := env.svc.ListDictionaryEntries(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListDictionaryEntries() error = %v", err)
	}
	if len(listed) != 1 || listed[0].EntryID != entry.EntryID {
		t.Fatalf("listed entries = %+v, want the created one", listed)
	}
}

func TestAddDictionaryEntryRejectsUnknownCategory(t *testing.T) {
	env := newTestEnv(t, Config{}, &fakeEmbedder{}, nil, echoCompleter())

	_, err := env.svc.AddDictionaryEntry(context.Background(), AddDictionaryEntryInput{
		OrganizationID: "org-1",
		Phrase:         "がんが治る",
		Category:       "maybe",
	})
	if !errors.Is(err, domaincheck.ErrInvalidInput) {
		t.Fatalf("AddDictionaryEntry() error = %v, want ErrInvalidInput", err)
	}
}

func TestPrecomputeEmbeddingsFillsMissingVectors(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.2, 0.8, 0}}
	env := newTestEnv(t, Config{}, embedder, nil, echoCompleter())
	env.seedOrganization(t, "org-1")
	env.seedNGEntry(t, "org-1", "dict-has-vector", "完治を保証", []float32{1, 0, 0})
	env.seedNGEntry(t, "org-1", "dict-missing", "がんが治る", nil)

	embedded, err := env.svc.PrecomputeEmbeddings(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("PrecomputeEmbeddings() error = %v", err)
	}
	if embedded != 1 {
		t.Fatalf("embedded = %d, want only the entry missing a vector", embedded)
	}
	if embedder.callCount() != 1 {
		t.Fatalf("embedder called %d times, want 1", embedder.callCount())
	}

	entries, err := env.dict.ListEntries(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	for _, entry := range entries {
		if len(entry.Embedding) == 0 {
			t.Fatalf("entry %s still has no embedding", entry.EntryID)
		}
	}
}
