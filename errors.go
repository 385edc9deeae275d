package filemap

import (
	"errors"
	"io/fs"
)

// Kind classifies the failure reported by an *Error.
type Kind uint8

const (
	// KindOpen means the file could not be opened (missing path,
	// permission denied, or any other open failure).
	KindOpen Kind = iota + 1

	// KindSize means the length of the file could not be determined.
	KindSize

	// KindMap means the OS refused to create the mapping or the view.
	KindMap

	// KindResize means the backing file could not be truncated or extended.
	KindResize
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open error"
	case KindSize:
		return "size error"
	case KindMap:
		return "map error"
	case KindResize:
		return "resize error"
	default:
		return "unknown error"
	}
}

// Error is returned by every operation that touches the OS.
//
// Use errors.Is with ErrOpen, ErrSize, ErrMap or ErrResize to test the kind,
// and errors.Is / errors.As on the wrapped error for the OS cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	s := "filemap: "
	if e.Op == "" {
		return s + e.Kind.String()
	}
	// An *fs.PathError already names the operation and the file.
	if pe, ok := e.Err.(*fs.PathError); ok && pe.Path == e.Path {
		return s + pe.Error()
	}
	s += e.Op
	if e.Path != "" {
		s += " " + e.Path
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind sentinel matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels
var (
	ErrOpen   = &Error{Kind: KindOpen}
	ErrSize   = &Error{Kind: KindSize}
	ErrMap    = &Error{Kind: KindMap}
	ErrResize = &Error{Kind: KindResize}
)

var (
	// ErrClosed is returned when operating on a released or moved-from handle.
	ErrClosed = errors.New("filemap: file is closed")

	// ErrInvalidSize is wrapped by resize errors for negative or
	// unaddressable lengths.
	ErrInvalidSize = errors.New("filemap: invalid size")

	// ErrOutOfRange is returned by ReadAt and WriteAt for offsets outside the view.
	ErrOutOfRange = errors.New("filemap: offset out of range")

	errNotRegular = errors.New("not a regular file")
	errTooLarge   = errors.New("file does not fit in the address space")
)
