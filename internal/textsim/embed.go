package textsim

import (
	"context"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Embedder turns texts into vectors of equal length.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder builds the embedder named by provider. "none" returns a nil
// embedder, which leaves semantic metrics unavailable.
func NewEmbedder(provider string, dimensions int) (Embedder, error) {
	switch provider {
	case "", "none":
		return nil, nil
	case "hashing":
		return NewHashingEmbedder(dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// HashingEmbedder is a local bag-of-words embedder using the hashing trick:
// each token adds a signed unit to bucket xxhash(token) mod dim.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder. dim < 1 falls back to 256.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim < 1 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

// Dimensions returns the vector length.
func (h *HashingEmbedder) Dimensions() int { return h.dim }

// Embed returns one L2-normalized vector per text. Empty texts give zero vectors.
func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := make([]float32, h.dim)
		for _, tok := range Tokenize(text) {
			sum := xxhash.Sum64String(tok)
			sign := float32(1)
			if sum>>63 == 1 {
				sign = -1
			}
			v[sum%uint64(h.dim)] += sign
		}
		normalize(v)
		out[i] = v
	}
	return out, nil
}

func normalize(v []float32) {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sq))
	for i := range v {
		v[i] *= inv
	}
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SemanticSimilarity embeds every prediction and reference in one call and
// averages, per prediction, the best cosine against its references. A
// prediction without references scores 0. Negative cosines count as 0.
func SemanticSimilarity(ctx context.Context, e Embedder, predictions []string, references [][]string) (float64, error) {
	if err := checkLengths(predictions, references); err != nil {
		return 0, err
	}
	if len(predictions) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(predictions)*2)
	texts = append(texts, predictions...)
	for _, refs := range references {
		texts = append(texts, refs...)
	}

	vecs, err := e.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding texts: %w", err)
	}
	if len(vecs) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	var sum float64
	next := len(predictions)
	for i := range predictions {
		best := 0.0
		for range references[i] {
			best = max(best, Cosine(vecs[i], vecs[next]))
			next++
		}
		sum += best
	}
	return sum / float64(len(predictions)), nil
}
