package mlpcodec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadMagic      = errors.New("bad magic")
	ErrBadVersion    = errors.New("unsupported version")
	ErrTruncated     = errors.New("truncated data")
	ErrSizeMismatch  = errors.New("size mismatch")
	ErrLayerShape    = errors.New("invalid layer shape")
	ErrBadActivation = errors.New("invalid activation")
	ErrUnknownFormat = errors.New("unknown format")
)

// FormatError reports a weight file that does not match its declared layout.
// Expected and Actual carry the conflicting values (byte counts, magic,
// version, widths) so cross-implementation drift can be diagnosed from the
// message alone.
type FormatError struct {
	Path     string
	Op       string
	Field    string
	Expected uint64
	Actual   uint64
	Err      error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("mlpcodec: ")
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Field != "" {
		if errors.Is(e.Err, ErrBadMagic) {
			fmt.Fprintf(&b, ": %s expected 0x%08X, got 0x%08X", e.Field, e.Expected, e.Actual)
		} else {
			fmt.Fprintf(&b, ": %s expected %d, got %d", e.Field, e.Expected, e.Actual)
		}
	}
	return b.String()
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(op, field string, expected, actual uint64, err error) *FormatError {
	return &FormatError{Op: op, Field: field, Expected: expected, Actual: actual, Err: err}
}

func withPath(err error, path string) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		fe.Path = path
		return fe
	}
	return fmt.Errorf("%s: %w", path, err)
}
