package textsim

import "fmt"

// LengthMismatchError reports predictions and references of different lengths.
type LengthMismatchError struct {
	Predictions int
	References  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("got %d predictions but %d reference lists", e.Predictions, e.References)
}
