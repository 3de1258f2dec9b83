package genome

import (
	"fmt"
	"strconv"
	"strings"
)

// ShapeError reports an upstream response missing an expected structural key.
type ShapeError struct {
	Source string // upstream service, e.g. "ucsc"
	Key    string // missing key
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: response missing %q", e.Source, e.Key)
}

// RequestError reports a non-success HTTP status from an upstream service.
type RequestError struct {
	Source     string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Source, e.StatusCode, e.Body)
}

// ValidationError reports input rejected before any network call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ValidateNucleotide checks that alt is exactly one of A, C, G or T.
// Case matters: callers upper-case user input first if they want to accept it.
func ValidateNucleotide(field, alt string) error {
	switch alt {
	case "A", "C", "G", "T":
		return nil
	}
	return &ValidationError{Field: field, Value: alt, Reason: "nucleotides must be A, C, G or T"}
}

// ParsePosition parses a 1-based genomic position.
func ParsePosition(s string) (int64, error) {
	pos, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "position", Value: s, Reason: "not a valid position number"}
	}
	if pos < 1 {
		return 0, &ValidationError{Field: "position", Value: s, Reason: "positions are 1-based"}
	}
	return pos, nil
}
