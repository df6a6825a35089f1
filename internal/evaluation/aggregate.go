package evaluation

import (
	"github.com/gaugekit/gauge/internal/sample"
)

// Mean averages score over qualifying samples in batch order.
// With no qualifying samples the result is exactly 0.
func Mean(batch []sample.EvalSample, score func(retrieved []string, relevant Set) float64) float64 {
	var (
		sum float64
		n   int
	)
	for _, s := range batch {
		if !s.Qualifies() {
			continue
		}
		sum += score(s.RetrievedIDs(), s.RelevantIDs())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Recall is mean Recall@k.
func Recall(batch []sample.EvalSample, k int) float64 {
	return Mean(batch, func(r []string, rel Set) float64 { return RecallAtK(r, rel, k) })
}

// Precision is mean Precision@k.
func Precision(batch []sample.EvalSample, k int) float64 {
	return Mean(batch, func(r []string, rel Set) float64 { return PrecisionAtK(r, rel, k) })
}

// MRR is mean reciprocal rank over the full retrieval list.
func MRR(batch []sample.EvalSample) float64 {
	return Mean(batch, ReciprocalRank)
}

// MeanNDCG is mean nDCG@k.
func MeanNDCG(batch []sample.EvalSample, k int) float64 {
	return Mean(batch, func(r []string, rel Set) float64 { return NDCG(BinaryRelevance(r, rel), k) })
}

// MAP is mean average precision over the full retrieval list.
func MAP(batch []sample.EvalSample) float64 {
	return Mean(batch, AveragePrecision)
}

// CoverageOf counts qualifying and excluded samples.
func CoverageOf(batch []sample.EvalSample) Coverage {
	c := Coverage{Total: len(batch)}
	for _, s := range batch {
		if s.Qualifies() {
			c.Qualifying++
		}
	}
	c.Excluded = c.Total - c.Qualifying
	return c
}

// Breakdown scores every sample at cutoff k. Non-qualifying samples are
// listed with zero scores so the output lines up with the batch.
func Breakdown(batch []sample.EvalSample, k int) []SampleResult {
	out := make([]SampleResult, len(batch))
	for i, s := range batch {
		r := SampleResult{QueryID: s.ID(), Qualifies: s.Qualifies(), K: k}
		retrieved := s.RetrievedIDs()
		r.ResultCount = len(retrieved)
		if r.Qualifies {
			rel := s.RelevantIDs()
			r.Recall = RecallAtK(retrieved, rel, k)
			r.Precision = PrecisionAtK(retrieved, rel, k)
			r.NDCG = NDCG(BinaryRelevance(retrieved, rel), k)
			r.MRR = ReciprocalRank(retrieved, rel)
			r.AP = AveragePrecision(retrieved, rel)
		}
		out[i] = r
	}
	return out
}

// Summarize aggregates a breakdown over its qualifying rows.
func Summarize(results []SampleResult) Summary {
	var sum Summary
	for _, r := range results {
		if sum.K == 0 {
			sum.K = r.K
		}
		if !r.Qualifies {
			continue
		}
		sum.QueryCount++
		sum.MeanRecall += r.Recall
		sum.MeanPrecision += r.Precision
		sum.MeanNDCG += r.NDCG
		sum.MeanMRR += r.MRR
		sum.MAP += r.AP
	}
	if sum.QueryCount == 0 {
		return sum
	}

	n := float64(sum.QueryCount)
	sum.MeanRecall /= n
	sum.MeanPrecision /= n
	sum.MeanNDCG /= n
	sum.MeanMRR /= n
	sum.MAP /= n
	return sum
}
