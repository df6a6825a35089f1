package textsim

import (
	"math"
	"sort"
	"strings"
)

// textFeatures are the surface features compared by STSSpearman.
func textFeatures(s string) [5]float64 {
	distinct := make(map[rune]struct{})
	for _, r := range strings.ToLower(s) {
		distinct[r] = struct{}{}
	}
	return [5]float64{
		float64(len([]rune(s))),
		float64(strings.Count(s, " ")),
		float64(strings.Count(s, ".")),
		float64(strings.Count(s, "?")),
		float64(len(distinct)),
	}
}

// STSSpearman correlates surface features of prompts and predictions across
// the batch. For each feature it takes the Spearman correlation of prompt
// values against prediction values, then averages the features whose
// correlation is defined. Fewer than two samples, or no defined feature,
// gives 0.
func STSSpearman(prompts, predictions []string) (float64, error) {
	if len(prompts) != len(predictions) {
		return 0, &LengthMismatchError{Predictions: len(predictions), References: len(prompts)}
	}
	n := len(prompts)
	if n < 2 {
		return 0, nil
	}

	var (
		sum     float64
		defined int
	)
	for f := 0; f < 5; f++ {
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := 0; i < n; i++ {
			xs[i] = textFeatures(prompts[i])[f]
			ys[i] = textFeatures(predictions[i])[f]
		}
		rho := Spearman(xs, ys)
		if math.IsNaN(rho) {
			continue
		}
		sum += rho
		defined++
	}
	if defined == 0 {
		return 0, nil
	}
	return sum / float64(defined), nil
}

// Spearman is the rank correlation of xs and ys with average ranks for
// ties. It returns NaN when either side is constant.
func Spearman(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}
	return pearson(ranks(xs), ranks(ys))
}

func ranks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })

	r := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			r[idx[k]] = avg
		}
		i = j + 1
	}
	return r
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}
