package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable is returned when the log source cannot be opened
	// or read. It is always fatal.
	ErrSourceUnavailable = errors.New("log source unavailable")

	// ErrMalformedRecord matches every *MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
)

// MalformedRecordError describes a data line that failed structural or
// numeric parsing.
type MalformedRecordError struct {
	Line   int    // 1-based physical line number
	Field  string // offending column, empty for structural errors
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed record at line %d", e.Line)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedRecord) match.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
