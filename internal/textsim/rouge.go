package textsim

// Score holds precision, recall and F1 for one comparison.
type Score struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

func newScore(overlap, predTotal, refTotal int) Score {
	var s Score
	if predTotal > 0 {
		s.Precision = float64(overlap) / float64(predTotal)
	}
	if refTotal > 0 {
		s.Recall = float64(overlap) / float64(refTotal)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// RougeN scores n-gram overlap between prediction and reference.
func RougeN(prediction, reference string, n int) Score {
	pred := ngrams(Tokenize(prediction), n)
	ref := ngrams(Tokenize(reference), n)

	overlap, predTotal, refTotal := 0, 0, 0
	for g, c := range pred {
		predTotal += c
		overlap += min(c, ref[g])
	}
	for _, c := range ref {
		refTotal += c
	}
	return newScore(overlap, predTotal, refTotal)
}

// RougeL scores the longest common subsequence of tokens.
func RougeL(prediction, reference string) Score {
	pred := Tokenize(prediction)
	ref := Tokenize(reference)
	return newScore(lcs(pred, ref), len(pred), len(ref))
}

func lcs(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// bestF1 takes the best F1 over references, as multi-reference ROUGE does.
func bestF1(prediction string, refs []string, score func(pred, ref string) Score) float64 {
	best := 0.0
	for _, ref := range refsOrEmpty(refs) {
		best = max(best, score(prediction, ref).F1)
	}
	return best
}

func meanOver(predictions []string, references [][]string, per func(pred string, refs []string) float64) (float64, error) {
	if err := checkLengths(predictions, references); err != nil {
		return 0, err
	}
	if len(predictions) == 0 {
		return 0, nil
	}
	var sum float64
	for i, p := range predictions {
		sum += per(p, references[i])
	}
	return sum / float64(len(predictions)), nil
}

// Rouge1 is mean ROUGE-1 F1.
func Rouge1(predictions []string, references [][]string) (float64, error) {
	return meanOver(predictions, references, func(p string, refs []string) float64 {
		return bestF1(p, refs, func(a, b string) Score { return RougeN(a, b, 1) })
	})
}

// Rouge2 is mean ROUGE-2 F1.
func Rouge2(predictions []string, references [][]string) (float64, error) {
	return meanOver(predictions, references, func(p string, refs []string) float64 {
		return bestF1(p, refs, func(a, b string) Score { return RougeN(a, b, 2) })
	})
}

// RougeLCorpus is mean ROUGE-L F1.
func RougeLCorpus(predictions []string, references [][]string) (float64, error) {
	return meanOver(predictions, references, func(p string, refs []string) float64 {
		return bestF1(p, refs, RougeL)
	})
}
