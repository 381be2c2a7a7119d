package check

import "math"

// LexicalSimilarity scores how strongly a dictionary phrase appears in the
// search text, as the fraction of the phrase's character bigrams present in
// the text (n-gram containment). Single-rune phrases fall back to exact
// containment. Returns a value in [0,1].
func LexicalSimilarity(text string, phrase string) float64 {
	phraseRunes := []rune(phrase)
	if len(phraseRunes) == 0 {
		return 0
	}
	if len(phraseRunes) == 1 {
		if containsRune([]rune(text), phraseRunes[0]) {
			return 1
		}
		return 0
	}

	textGrams := bigramSet([]rune(text))
	matched := 0
	total := 0
	for i := 0; i+1 < len(phraseRunes); i++ {
		total++
		if _, ok := textGrams[[2]rune{phraseRunes[i], phraseRunes[i+1]}]; ok {
			matched++
		}
	}
	return float64(matched) / float64(total)
}

// CosineSimilarity between two embedding vectors; 0 when either is empty
// or dimensions disagree.
func CosineSimilarity(a []float32, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func bigramSet(runes []rune) map[[2]rune]struct{} {
	grams := make(map[[2]rune]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		grams[[2]rune{runes[i], runes[i+1]}] = struct{}{}
	}
	return grams
}

func containsRune(runes []rune, target rune) bool {
	for _, r := range runes {
		if r == target {
			return true
		}
	}
	return false
}
