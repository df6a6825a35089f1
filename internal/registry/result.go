package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Score is one named aggregate.
type Score struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Result is an ordered metric-name to score mapping. Iteration and JSON
// encoding follow insertion order.
type Result struct {
	names  []string
	scores map[string]float64
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{scores: make(map[string]float64)}
}

// Set stores a score. A new name is appended; an existing one keeps its position.
func (r *Result) Set(name string, value float64) {
	if _, ok := r.scores[name]; !ok {
		r.names = append(r.names, name)
	}
	r.scores[name] = value
}

// Get returns the score for name.
func (r *Result) Get(name string) (float64, bool) {
	v, ok := r.scores[name]
	return v, ok
}

// Names returns metric names in order.
func (r *Result) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of scores.
func (r *Result) Len() int { return len(r.names) }

// Scores returns name/value pairs in order.
func (r *Result) Scores() []Score {
	out := make([]Score, len(r.names))
	for i, name := range r.names {
		out[i] = Score{Name: name, Value: r.scores[name]}
	}
	return out
}

// Map returns an unordered copy of the scores.
func (r *Result) Map() map[string]float64 {
	out := make(map[string]float64, len(r.scores))
	for k, v := range r.scores {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes an object whose keys are in result order.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.scores[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping key order.
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("result: expected object, got %v", tok)
	}

	out := NewResult()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("result: expected key, got %v", tok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("result: metric %q: %w", name, err)
		}
		out.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = *out
	return nil
}
