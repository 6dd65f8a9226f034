package model

import "fmt"

// SequenceGapError marks a delta whose orderliness check failed against
// the current revision. Callers can recover it with errors.As instead of
// string-matching a log line.
type SequenceGapError struct {
	Symbol   Symbol
	Expected int64
	Got      int64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("%s: sequence gap: expected %d, got %d", e.Symbol, e.Expected, e.Got)
}
