package gltf

import (
	"errors"
	"fmt"
	"strings"
)

// FormatErrorKind classifies a FormatError.
type FormatErrorKind int

const (
	// KindStructural covers bad magic, truncated headers or chunks and misplaced JSON chunks.
	KindStructural FormatErrorKind = iota
	// KindSyntax covers JSON that cannot be decoded into a Document.
	KindSyntax
	// KindReference covers out-of-range accessor, bufferView, node or other indices.
	KindReference
	// KindLayout covers data layouts the resolver does not decode (interleaved, sparse, unknown types).
	KindLayout
	// KindAvailability covers buffers that have no resident bytes (external .bin files).
	KindAvailability
	// KindBounds covers read ranges that exceed a buffer or buffer view.
	KindBounds
)

func (k FormatErrorKind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindSyntax:
		return "syntax"
	case KindReference:
		return "reference"
	case KindLayout:
		return "layout"
	case KindAvailability:
		return "availability"
	case KindBounds:
		return "bounds"
	default:
		return fmt.Sprintf("FormatErrorKind(%d)", int(k))
	}
}

// FormatError is the single error type returned by ParseContainer and ResolveAccessor.
// Offset and Index are -1 when they do not apply.
type FormatError struct {
	Kind    FormatErrorKind
	Message string
	Offset  int64
	Index   int
	Err     error
}

// NewFormatError creates a FormatError with no offset, index or cause.
//
// Parameters:
//   - kind: the error category
//   - format: a fmt format string for the message
//   - args: the format arguments
//
// Returns:
//   - *FormatError: the new error
func NewFormatError(kind FormatErrorKind, format string, args ...any) *FormatError {
	return &FormatError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
		Index:   -1,
	}
}

// AtOffset sets the byte offset at which the error was detected and returns the error.
func (e *FormatError) AtOffset(offset int64) *FormatError {
	e.Offset = offset
	return e
}

// AtIndex sets the offending index and returns the error.
func (e *FormatError) AtIndex(index int) *FormatError {
	e.Index = index
	return e
}

// Wrap records the underlying cause and returns the error.
func (e *FormatError) Wrap(err error) *FormatError {
	e.Err = err
	return e
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("gltf: ")
	b.WriteString(e.Message)
	if e.Index >= 0 {
		fmt.Fprintf(&b, " (index %d)", e.Index)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " (byte offset %d)", e.Offset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is, or wraps, a FormatError of the given kind.
//
// Parameters:
//   - err: the error to inspect
//   - kind: the kind to match
//
// Returns:
//   - bool: true when a FormatError of that kind is found in the chain
func IsKind(err error, kind FormatErrorKind) bool {
	var fe *FormatError
	return errors.As(err, &fe) && fe.Kind == kind
}
