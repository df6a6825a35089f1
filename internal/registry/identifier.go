package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gaugekit/gauge/internal/pkg/errors"
)

// parametrizedBases are the metric bases that accept an @k suffix.
var parametrizedBases = map[string]struct{}{
	"recall":    {},
	"ndcg":      {},
	"precision": {},
}

// IsParametrizedBase reports whether base accepts an @k suffix.
func IsParametrizedBase(base string) bool {
	_, ok := parametrizedBases[base]
	return ok
}

// Identifier is a parsed metric name such as "recall@10" or "rouge1".
type Identifier struct {
	// Raw is the name as requested. Result keys use Raw.
	Raw  string
	Base string
	K    int
	// HasK is true when the cutoff came from an explicit @k suffix.
	HasK bool
}

// ParseIdentifier parses a bare name or <base>@<k>. A parametrized base used
// bare gets defaultK. Whether the base exists, and whether it takes a
// cutoff, is checked by Registry.Resolve.
func ParseIdentifier(raw string, defaultK int) (Identifier, error) {
	base, suffix, hasAt := strings.Cut(raw, "@")
	if base == "" {
		return Identifier{}, errors.UnknownMetricError(raw)
	}

	if !hasAt {
		id := Identifier{Raw: raw, Base: base}
		if IsParametrizedBase(base) {
			id.K = defaultK
		}
		return id, nil
	}

	k, err := strconv.Atoi(suffix)
	if err != nil || strings.ContainsAny(suffix, "+-") {
		return Identifier{}, errors.InvalidMetricParameterError(raw, "cutoff must be an integer")
	}
	if k <= 0 {
		return Identifier{}, errors.InvalidMetricParameterError(raw, "cutoff must be positive")
	}
	return Identifier{Raw: raw, Base: base, K: k, HasK: true}, nil
}

// String implements fmt.Stringer for log output.
func (i Identifier) String() string {
	if i.HasK {
		return fmt.Sprintf("%s@%d", i.Base, i.K)
	}
	return i.Raw
}
