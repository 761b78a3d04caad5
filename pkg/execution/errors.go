// Package execution turns persisted execution records into a trace and its metadata.
package execution

import (
	"errors"
	"fmt"
)

// ErrMalformedTrace indicates execution data that is missing or cannot be parsed.
var ErrMalformedTrace = errors.New("malformed execution trace")

// MalformedTraceError carries the record id and the reason normalization failed.
type MalformedTraceError struct {
	ExecutionID string
	Reason      string
	Err         error
}

func (e *MalformedTraceError) Error() string {
	msg := fmt.Sprintf("malformed execution trace for %q: %s", e.ExecutionID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *MalformedTraceError) Unwrap() error {
	return e.Err
}

func (e *MalformedTraceError) Is(target error) bool {
	return target == ErrMalformedTrace
}

// IsMalformedTrace checks if an error is a normalization failure.
func IsMalformedTrace(err error) bool {
	return errors.Is(err, ErrMalformedTrace)
}
