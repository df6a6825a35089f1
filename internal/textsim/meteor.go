package textsim

import "math"

// METEOR parameters, matching the usual exact-match defaults.
const (
	meteorAlpha = 0.9
	meteorBeta  = 3.0
	meteorGamma = 0.5
)

// MeteorScore is exact-match METEOR for one prediction and one reference.
func MeteorScore(prediction, reference string) float64 {
	pred := Tokenize(prediction)
	ref := Tokenize(reference)
	if len(pred) == 0 || len(ref) == 0 {
		return 0
	}

	// Greedy alignment: each prediction token takes the earliest unused
	// equal reference token.
	type pair struct{ pred, ref int }
	used := make([]bool, len(ref))
	align := make([]pair, 0, len(pred))
	for i, tok := range pred {
		for j, r := range ref {
			if !used[j] && r == tok {
				used[j] = true
				align = append(align, pair{i, j})
				break
			}
		}
	}

	m := len(align)
	if m == 0 {
		return 0
	}

	// A chunk is a run adjacent in both prediction and reference.
	chunks := 1
	for i := 1; i < m; i++ {
		if align[i].pred != align[i-1].pred+1 || align[i].ref != align[i-1].ref+1 {
			chunks++
		}
	}

	precision := float64(m) / float64(len(pred))
	recall := float64(m) / float64(len(ref))
	fmean := precision * recall / (meteorAlpha*precision + (1-meteorAlpha)*recall)
	penalty := meteorGamma * math.Pow(float64(chunks)/float64(m), meteorBeta)
	return fmean * (1 - penalty)
}

// Meteor is mean METEOR with the best reference per prediction.
func Meteor(predictions []string, references [][]string) (float64, error) {
	return meanOver(predictions, references, func(p string, refs []string) float64 {
		best := 0.0
		for _, r := range refsOrEmpty(refs) {
			best = max(best, MeteorScore(p, r))
		}
		return best
	})
}
