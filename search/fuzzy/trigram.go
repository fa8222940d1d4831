package fuzzy

// trigrams returns the distinct three-rune grams of term padded with one
// space on each side, so every non-empty term has at least one gram.
func trigrams(term string) []string {
	runes := []rune(" " + term + " ")
	if len(runes) < 3 {
		return nil
	}

	seen := make(map[string]bool, len(runes)-2)
	grams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		g := string(runes[i : i+3])
		if seen[g] {
			continue
		}
		seen[g] = true
		grams = append(grams, g)
	}

	return grams
}
