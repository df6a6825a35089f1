package textsim

import "math"

const bleuMaxOrder = 4

// BLEU is corpus-level BLEU on a 0-1 scale with up to 4-grams, clipped
// multi-reference counts, closest-reference brevity penalty and
// exponential smoothing for orders with no matches.
func BLEU(predictions []string, references [][]string) (float64, error) {
	if err := checkLengths(predictions, references); err != nil {
		return 0, err
	}

	var (
		matches [bleuMaxOrder]int
		totals  [bleuMaxOrder]int
		sysLen  int
		refLen  int
	)

	for i, p := range predictions {
		pred := Tokenize(p)
		refs := make([][]string, 0, len(references[i]))
		for _, r := range refsOrEmpty(references[i]) {
			refs = append(refs, Tokenize(r))
		}

		sysLen += len(pred)
		refLen += closestLength(len(pred), refs)

		for n := 1; n <= bleuMaxOrder; n++ {
			predCounts := ngrams(pred, n)
			maxRef := make(map[string]int)
			for _, ref := range refs {
				for g, c := range ngrams(ref, n) {
					maxRef[g] = max(maxRef[g], c)
				}
			}
			for g, c := range predCounts {
				matches[n-1] += min(c, maxRef[g])
			}
			totals[n-1] += max(len(pred)-n+1, 0)
		}
	}

	if sysLen == 0 {
		return 0, nil
	}

	var (
		logSum float64
		orders int
		smooth = 1.0
	)
	for n := 0; n < bleuMaxOrder; n++ {
		if totals[n] == 0 {
			break
		}
		orders++
		if matches[n] == 0 {
			smooth *= 2
			logSum += math.Log(1 / (smooth * float64(totals[n])))
			continue
		}
		logSum += math.Log(float64(matches[n]) / float64(totals[n]))
	}

	bp := 1.0
	if sysLen < refLen {
		bp = math.Exp(1 - float64(refLen)/float64(sysLen))
	}
	return bp * math.Exp(logSum/float64(orders)), nil
}

// closestLength picks the reference length nearest to predLen, shorter on ties.
func closestLength(predLen int, refs [][]string) int {
	best := -1
	for _, r := range refs {
		l := len(r)
		if best < 0 {
			best = l
			continue
		}
		d, bd := abs(l-predLen), abs(best-predLen)
		if d < bd || (d == bd && l < best) {
			best = l
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
