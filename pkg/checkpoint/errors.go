package checkpoint

import (
	"fmt"

	"snapstore/pkg/types"
)

// Kind enumerates the error categories named in spec.md §7.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindAmbiguous          Kind = "ambiguous"
	KindCorruptObject      Kind = "corrupt_object"
	KindInvariantViolation Kind = "invariant_violation"
	KindIoTransient        Kind = "io_transient"
	KindIoPermanent        Kind = "io_permanent"
	KindCancelled          Kind = "cancelled"
	KindUnsupported        Kind = "unsupported"
)

// Error is the engine's public error type for the kinds above. Not every
// error the engine returns is one: errors from the object store, the
// reference store and the filesystem (for example objects.ErrNotFound or
// an *os.PathError) are returned as they are, without an Error wrapper.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkpoint: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("checkpoint: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func errWrongKind(h types.Hash, want, got types.Kind) error {
	return fmt.Errorf("object %s: expected kind %q, got %q", h, want, got)
}
