// Package evaluation implements ranking metrics over binary relevance.
//
// A sample's relevance is derived from its retrieval in rank order: the
// chunk at position i is relevant when its ID is one of the sample's
// references. Retrieval order is never changed.
package evaluation

import (
	"math"
	"sort"
)

// Set is a set of relevant IDs.
type Set = map[string]struct{}

// BinaryRelevance maps retrieved IDs to 1 (relevant) or 0, position by position.
func BinaryRelevance(retrieved []string, relevant Set) []int {
	rel := make([]int, len(retrieved))
	for i, id := range retrieved {
		if _, ok := relevant[id]; ok {
			rel[i] = 1
		}
	}
	return rel
}

// truncate returns the first min(k, len) items.
func truncate(retrieved []string, k int) []string {
	if k < 0 {
		k = 0
	}
	if k > len(retrieved) {
		k = len(retrieved)
	}
	return retrieved[:k]
}

// distinctHits counts distinct relevant IDs in retrieved.
func distinctHits(retrieved []string, relevant Set) int {
	seen := make(map[string]struct{}, len(retrieved))
	hits := 0
	for _, id := range retrieved {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevant[id]; ok {
			hits++
		}
	}
	return hits
}

// RecallAtK is the share of relevant IDs found in the top k.
// A relevant ID retrieved twice counts once.
func RecallAtK(retrieved []string, relevant Set, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(distinctHits(truncate(retrieved, k), relevant)) / float64(len(relevant))
}

// PrecisionAtK is the share of the top min(k, len) positions holding a
// distinct relevant ID.
func PrecisionAtK(retrieved []string, relevant Set, k int) float64 {
	top := truncate(retrieved, k)
	if len(top) == 0 {
		return 0
	}
	return float64(distinctHits(top, relevant)) / float64(len(top))
}

// ReciprocalRank is 1/position of the first relevant ID, or 0.
func ReciprocalRank(retrieved []string, relevant Set) float64 {
	for i, id := range retrieved {
		if _, ok := relevant[id]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// NDCG calculates Normalized Discounted Cumulative Gain at K over a
// relevance vector. The ideal ordering is the same truncated vector sorted
// descending, so NDCG is 1.0 whenever relevant items precede the rest.
func NDCG(relevances []int, k int) float64 {
	if k > len(relevances) {
		k = len(relevances)
	}
	if k <= 0 {
		return 0
	}

	top := relevances[:k]
	dcg := discountedGain(top)

	ideal := make([]int, k)
	copy(ideal, top)
	sort.SliceStable(ideal, func(i, j int) bool { return ideal[i] > ideal[j] })
	idcg := discountedGain(ideal)

	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

func discountedGain(rel []int) float64 {
	var sum float64
	for i, r := range rel {
		sum += float64(r) / math.Log2(float64(i+2))
	}
	return sum
}

// AveragePrecision averages precision at each first occurrence of a
// relevant ID, over the number of relevant IDs.
func AveragePrecision(retrieved []string, relevant Set) float64 {
	if len(relevant) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(retrieved))
	hits := 0
	sum := 0.0
	for i, id := range retrieved {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := relevant[id]; ok {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}
