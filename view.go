package filemap

import (
	"io"
	"unsafe"
)

// AccessPattern provides hints to the kernel about how the view will be accessed.
type AccessPattern int

const (
	AccessNormal AccessPattern = iota
	AccessSequential
	AccessRandom
	AccessWillNeed
	AccessDontNeed
)

func (v *view) bytes() []byte {
	if v.m == nil {
		return nil
	}
	return v.m.data
}

// Size returns the length of the view in bytes. It is 0 for an empty file
// and for a closed handle.
func (v *view) Size() int {
	if v.m == nil {
		return 0
	}
	return int(v.m.size)
}

// Path returns the path the handle was opened with, or "" once closed.
func (v *view) Path() string {
	if v.m == nil {
		return ""
	}
	return v.m.path
}

// Writable reports whether the view is mapped with write permission.
func (v *view) Writable() bool {
	return v.m != nil && v.m.writable
}

// At returns the byte at index i. An out-of-range index panics.
func (v *view) At(i int) byte {
	b := v.bytes()
	if debugChecks {
		checkIndex(i, len(b))
	}
	return b[i]
}

// Text returns the view as an immutable string without copying.
// The string aliases the mapping: it is valid only until the handle is
// closed, resized or moved.
func (v *view) Text() string {
	b := v.bytes()
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// ReadAt implements io.ReaderAt.
func (v *view) ReadAt(p []byte, off int64) (int, error) {
	if v.m == nil {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrOutOfRange
	}
	if off >= v.m.size {
		return 0, io.EOF
	}
	n := copy(p, v.m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteTo implements io.WriterTo, writing the whole view to w.
func (v *view) WriteTo(w io.Writer) (int64, error) {
	if v.m == nil {
		return 0, ErrClosed
	}
	if v.m.size == 0 {
		return 0, nil
	}
	n, err := w.Write(v.m.data)
	return int64(n), err
}

// NewReader returns an io.SectionReader over the current view. Like any
// reference into the view it must not be used after a resize.
func (v *view) NewReader() *io.SectionReader {
	return io.NewSectionReader(v, 0, int64(v.Size()))
}

// Advise provides hints to the kernel about how the view will be accessed.
// It is a no-op on Windows and for empty views.
func (v *view) Advise(pattern AccessPattern) error {
	if v.m == nil {
		return ErrClosed
	}
	if v.m.data == nil {
		return nil
	}
	return v.m.osAdvise(pattern)
}

// Lock locks the mapped pages in memory (prevents swapping).
func (v *view) Lock() error {
	if v.m == nil {
		return ErrClosed
	}
	if v.m.data == nil {
		return nil
	}
	return v.m.osLock()
}

// Unlock unlocks the mapped pages.
func (v *view) Unlock() error {
	if v.m == nil {
		return ErrClosed
	}
	if v.m.data == nil {
		return nil
	}
	return v.m.osUnlock()
}
