package normalize

import (
	"errors"
	"fmt"
)

var ErrCaptureShape = errors.New("malformed capture record")

// CaptureShapeError describes a raw record that was dropped because it lacks
// something the canonical schema requires.
type CaptureShapeError struct {
	Source string
	Index  int
	Ref    string
	Reason string
}

func (e *CaptureShapeError) Error() string {
	ref := e.Ref
	if ref == "" {
		ref = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("malformed capture record %s (source %q): %s", ref, e.Source, e.Reason)
}

func (e *CaptureShapeError) Unwrap() error {
	return ErrCaptureShape
}
