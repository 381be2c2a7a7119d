package check

import (
	"unicode"
	"unicode/utf8"
)

const (
	confidenceBase       = 0.5
	minAdequateRunes     = 10
	minAdequatePixels    = 200 * 200
	replacementRune      = utf8.RuneError
	repetitionRunPenalty = 4 // runs longer than this count as unnatural
)

// OCRConfidence scores extracted text in [0,1] from cheap heuristics:
// how much of it is recognizable language, whether it carries corrupted
// replacement characters, whether it degenerates into repetition, and
// whether the text and the source image are large enough to trust.
// Width/height may be zero when the extractor does not report them.
func OCRConfidence(text string, width int, height int) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}

	recognizable := 0
	corrupted := 0
	longestRun := 1
	run := 1
	for i, r := range runes {
		if isRecognizable(r) {
			recognizable++
		}
		if r == replacementRune {
			corrupted++
		}
		if i > 0 && runes[i] == runes[i-1] && !unicode.IsSpace(r) {
			run++
			if run > longestRun {
				longestRun = run
			}
		} else {
			run = 1
		}
	}

	score := confidenceBase
	score += 0.4 * (float64(recognizable) / float64(len(runes)))
	score -= 0.5 * (float64(corrupted) / float64(len(runes)))

	if longestRun > repetitionRunPenalty {
		score -= 0.1 * float64(longestRun-repetitionRunPenalty)
	}

	if len(runes) >= minAdequateRunes {
		score += 0.05
	}
	if width > 0 && height > 0 && width*height >= minAdequatePixels {
		score += 0.05
	}

	return clamp01(score)
}

func isRecognizable(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
		return true
	}
	return unicode.IsPunct(r) || unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
