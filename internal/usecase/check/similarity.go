package check

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"

	"adcheck/internal/bootstrap/logging"
	domaincheck "adcheck/internal/domain/check"
	"adcheck/internal/errs"
	"adcheck/internal/ports"
)

// scoredCandidate is the cached form of one hybrid search hit.
type scoredCandidate struct {
	EntryID  string  `json:"entry_id"`
	Phrase   string  `json:"phrase"`
	Category string  `json:"category"`
	Notes    string  `json:"notes"`
	Score    float64 `json:"score"`
}

// referencePhrases returns the top-K NG dictionary phrases plausibly
// relevant to the text. The whole stage is non-fatal: any failure logs and
// returns an empty list, degrading the check to pure-AI analysis.
func (s *Service) referencePhrases(ctx context.Context, organizationID string, text string) []ports.NGReference {
	fp := fingerprint(text)
	simKey := "sim:" + organizationID + ":" + fp

	if cached, found, err := s.cache.Get(ctx, simKey); err == nil && found {
		var candidates []scoredCandidate
		if err := json.Unmarshal([]byte(cached), &candidates); err == nil {
			return filterTopNG(candidates, s.cfg.TopK)
		}
		_ = s.cache.Delete(ctx, simKey)
	}

	vector, err := s.embeddingFor(ctx, fp, text)
	if err != nil {
		// Embedding failure degrades to AI-only analysis.
		logging.Warn(ctx, "embedding unavailable, continue without references",
			slog.Any("err", errs.Loggable(errs.Wrap(domaincheck.ErrEmbeddingFailed, err.Error()))),
		)
		return nil
	}

	entries, err := s.dict.ListEntries(ctx, organizationID)
	if err != nil {
		logging.Warn(ctx, "dictionary unavailable, continue without references",
			slog.Any("err", errs.Loggable(err)),
		)
		return nil
	}

	candidates := s.hybridSearch(text, vector, entries)

	if raw, err := json.Marshal(candidates); err == nil {
		_ = s.cache.Set(ctx, simKey, string(raw), s.cfg.SimilarityTTL)
	}

	return filterTopNG(candidates, s.cfg.TopK)
}

// embeddingFor resolves the text's embedding through the cache, truncating
// very long text to a bounded prefix before calling the external service.
func (s *Service) embeddingFor(ctx context.Context, fp string, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errs.Wrap(domaincheck.ErrEmbeddingFailed, "no embedder configured")
	}

	embKey := "emb:" + fp
	if cached, found, err := s.cache.Get(ctx, embKey); err == nil && found {
		var vector []float32
		if err := json.Unmarshal([]byte(cached), &vector); err == nil {
			return vector, nil
		}
		_ = s.cache.Delete(ctx, embKey)
	}

	vector, err := s.embedder.EmbedText(ctx, truncateRunes(text, s.cfg.MaxEmbeddingRunes))
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(vector); err == nil {
		_ = s.cache.Set(ctx, embKey, string(raw), s.cfg.EmbeddingTTL)
	}
	return vector, nil
}

// hybridSearch blends a lexical n-gram score and a vector cosine score
// into one ranked list. Entries hit by both paths keep the maximum score.
// Long inputs search a shrunken prefix with a lower cap and a relaxed
// vector threshold to bound latency.
func (s *Service) hybridSearch(text string, vector []float32, entries []ports.DictionaryEntry) []scoredCandidate {
	searchText := text
	vectorThreshold := s.cfg.VectorThreshold
	maxCandidates := s.cfg.MaxCandidates
	if runeLen(text) > s.cfg.LongTextRunes {
		searchText = truncateRunes(text, s.cfg.LongTextRunes)
		vectorThreshold = s.cfg.VectorThresholdLong
		maxCandidates = s.cfg.MaxCandidatesLong
	}

	best := make(map[string]scoredCandidate, len(entries))
	keep := func(entry ports.DictionaryEntry, score float64) {
		current, ok := best[entry.EntryID]
		if ok && current.Score >= score {
			return
		}
		best[entry.EntryID] = scoredCandidate{
			EntryID:  entry.EntryID,
			Phrase:   entry.Phrase,
			Category: entry.Category,
			Notes:    entry.Notes,
			Score:    score,
		}
	}

	for _, entry := range entries {
		if lexical := domaincheck.LexicalSimilarity(searchText, entry.Phrase); lexical >= s.cfg.LexicalThreshold {
			keep(entry, lexical)
		}
		if len(entry.Embedding) > 0 {
			if cosine := domaincheck.CosineSimilarity(vector, entry.Embedding); cosine >= vectorThreshold {
				keep(entry, cosine)
			}
		}
	}

	merged := make([]scoredCandidate, 0, len(best))
	for _, candidate := range best {
		merged = append(merged, candidate)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].EntryID < merged[j].EntryID
	})

	if len(merged) > maxCandidates {
		merged = merged[:maxCandidates]
	}
	return merged
}

// filterTopNG keeps prohibited phrases only, already ranked, truncated to
// top-K to bound the detection stage's input size.
func filterTopNG(candidates []scoredCandidate, topK int) []ports.NGReference {
	refs := make([]ports.NGReference, 0, topK)
	for _, candidate := range candidates {
		if candidate.Category != domaincheck.CategoryNG {
			continue
		}
		refs = append(refs, ports.NGReference{
			EntryID: candidate.EntryID,
			Phrase:  candidate.Phrase,
			Notes:   candidate.Notes,
		})
		if len(refs) == topK {
			break
		}
	}
	return refs
}

// fingerprint is the cheap content hash used as the cache key for both the
// embedding and similarity families.
func fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func truncateRunes(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func runeLen(text string) int {
	return len([]rune(text))
}
