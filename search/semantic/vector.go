package semantic

import "math"

// ContentVector is the derived representation of one item.
// Magnitude is always the Euclidean norm of TFIDF.
type ContentVector struct {
	TFIDF            map[string]float64
	Magnitude        float64
	SemanticKeywords []string
	Concepts         []string
}

// termFrequencies returns count/len for every token.
func termFrequencies(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	if len(tokens) == 0 {
		return tf
	}
	for _, t := range tokens {
		tf[t]++
	}
	n := float64(len(tokens))
	for t := range tf {
		tf[t] /= n
	}
	return tf
}

// weigh turns term frequencies into tf*ln(N/df) weights. Terms unknown to the
// corpus are dropped.
func weigh(tf map[string]float64, df map[string]int, n int) (map[string]float64, float64) {
	weights := make(map[string]float64, len(tf))
	var sum float64
	for term, f := range tf {
		d := df[term]
		if d == 0 {
			continue
		}
		w := f * math.Log(float64(n)/float64(d))
		weights[term] = w
		sum += w * w
	}
	return weights, math.Sqrt(sum)
}

// Cosine returns the cosine similarity of two content vectors, or 0 when
// either has zero magnitude.
func Cosine(a, b ContentVector) float64 {
	if a.Magnitude == 0 || b.Magnitude == 0 {
		return 0
	}

	small, large := a.TFIDF, b.TFIDF
	if len(small) > len(large) {
		small, large = large, small
	}

	var dot float64
	for term, w := range small {
		dot += w * large[term]
	}
	return dot / (a.Magnitude * b.Magnitude)
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}

	union := len(set)
	inter := 0
	seen := make(map[string]bool, len(b))
	for _, s := range b {
		if seen[s] {
			continue
		}
		seen[s] = true
		if set[s] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
