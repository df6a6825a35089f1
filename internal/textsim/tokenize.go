// Package textsim provides reference-based text similarity metrics.
//
// Corpus functions share one contract: predictions[i] is scored against
// references[i], a list of acceptable references. A prediction with no
// references is scored against the empty string. Scores are in [0, 1].
package textsim

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Func is the signature every corpus-level text metric implements.
type Func func(predictions []string, references [][]string) (float64, error)

// Tokenize folds case, applies NFKC and splits on anything that is not a
// letter or digit.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	// A Caser holds state, so one per call.
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// contentTokens drops single-character tokens and English stop words.
func contentTokens(s string) []string {
	tokens := Tokenize(s)
	out := tokens[:0]
	for _, t := range tokens {
		if len([]rune(t)) < 2 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

func checkLengths(predictions []string, references [][]string) error {
	if len(predictions) != len(references) {
		return &LengthMismatchError{Predictions: len(predictions), References: len(references)}
	}
	return nil
}

// refsOrEmpty gives a sample without references a single empty reference.
func refsOrEmpty(refs []string) []string {
	if len(refs) == 0 {
		return []string{""}
	}
	return refs
}

var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
a about above after again against all am an and any are as at be because been
before being below between both but by can could did do does doing down during
each few for from further had has have having he her here hers herself him
himself his how i if in into is it its itself just me more most my myself no nor
not now of off on once only or other our ours ourselves out over own same she
should so some such than that the their theirs them themselves then there these
they this those through to too under until up very was we were what when where
which while who whom why will with would you your yours yourself yourselves`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
