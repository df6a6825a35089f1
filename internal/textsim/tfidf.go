package textsim

import "math"

// TFIDFCosine fits TF-IDF on the pair {a, b} and returns their cosine.
// IDF is smoothed (ln((1+n)/(1+df)) + 1) and vectors are L2-normalized.
// Stop words and single characters are ignored; if either side has no
// content terms the similarity is 0.
func TFIDFCosine(a, b string) float64 {
	ta, tb := termCounts(contentTokens(a)), termCounts(contentTokens(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	idf := func(term string) float64 {
		df := 0
		if _, ok := ta[term]; ok {
			df++
		}
		if _, ok := tb[term]; ok {
			df++
		}
		return math.Log(3.0/float64(1+df)) + 1
	}

	var dot, na, nb float64
	for term, c := range ta {
		w := float64(c) * idf(term)
		na += w * w
		if cb, ok := tb[term]; ok {
			dot += w * float64(cb) * idf(term)
		}
	}
	for term, c := range tb {
		w := float64(c) * idf(term)
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func termCounts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

// Faithfulness is mean TF-IDF cosine between each prediction and its best
// reference.
func Faithfulness(predictions []string, references [][]string) (float64, error) {
	return meanOver(predictions, references, func(p string, refs []string) float64 {
		best := 0.0
		for _, r := range refs {
			best = max(best, TFIDFCosine(r, p))
		}
		return best
	})
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
