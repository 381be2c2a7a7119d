package check

import (
	"math"
	"testing"
)

func TestLexicalSimilarityContainedPhrase(t *testing.T) {
	got := LexicalSimilarity("このサプリはがんが治ると評判です", "がんが治る")
	if got != 1 {
		t.Fatalf("fully contained phrase score = %v, want 1", got)
	}
}

func TestLexicalSimilarityUnrelatedPhrase(t *testing.T) {
	got := LexicalSimilarity("毎日の健康維持に", "痩せる")
	if got != 0 {
		t.Fatalf("unrelated phrase score = %v, want 0", got)
	}
}

func TestLexicalSimilarityPartialOverlap(t *testing.T) {
	got := LexicalSimilarity("がんに効くとは言えません", "がんが治る")
	if got <= 0 || got >= 1 {
		t.Fatalf("partial overlap score = %v, want in (0,1)", got)
	}
}

func TestLexicalSimilarityEmptyPhrase(t *testing.T) {
	if got := LexicalSimilarity("テキスト", ""); got != 0 {
		t.Fatalf("empty phrase score = %v, want 0", got)
	}
}

func TestLexicalSimilaritySingleRunePhrase(t *testing.T) {
	if got := LexicalSimilarity("癌の話", "癌"); got != 1 {
		t.Fatalf("single rune hit = %v, want 1", got)
	}
	if got := LexicalSimilarity("健康の話", "癌"); got != 0 {
		t.Fatalf("single rune miss = %v, want 0", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	if got := CosineSimilarity(a, []float32{1, 0, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors = %v, want 1", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1, 0}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors = %v, want 0", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1}); got != 0 {
		t.Fatalf("dimension mismatch = %v, want 0", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Fatalf("empty vectors = %v, want 0", got)
	}
	if got := CosineSimilarity(a, []float32{0, 0, 0}); got != 0 {
		t.Fatalf("zero vector = %v, want 0", got)
	}
}
