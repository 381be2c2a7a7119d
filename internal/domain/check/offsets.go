package check

// RepairOffsets validates AI-reported violation offsets against the analyzed
// text and repairs them when possible. Offsets are rune positions into text.
// The completion service is known to return inconsistent positions, so:
//   - reversed offsets are swapped,
//   - offsets whose substring does not match the quoted phrase are re-located
//     by substring search,
//   - offsets out of range with no findable quote are rejected.
//
// Returns the corrected [start,end) pair and whether the violation is usable.
func RepairOffsets(text string, start int, end int, quote string) (int, int, bool) {
	runes := []rune(text)

	if start > end {
		start, end = end, start
	}

	inRange := start >= 0 && end <= len(runes) && start < end
	if inRange && (quote == "" || string(runes[start:end]) == quote) {
		return start, end, true
	}

	if quote == "" {
		return 0, 0, false
	}

	if idx := runeIndex(runes, []rune(quote)); idx >= 0 {
		return idx, idx + len([]rune(quote)), true
	}
	return 0, 0, false
}

func runeIndex(haystack []rune, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
