package filemap

import (
	"errors"
	"io"
)

// View is the read surface shared by ReadOnly and ReadWrite.
type View interface {
	io.ReaderAt
	io.WriterTo
	Size() int
	At(i int) byte
	Text() string
	Close() error
}

var (
	_ View = (*ReadOnly)(nil)
	_ View = (*ReadWrite)(nil)
)

// noCopy makes go vet's copylocks check reject copies of a handle.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// view holds the mapping owned by a handle. A nil mapping is the empty state
// of a closed or moved-from handle.
type view struct {
	noCopy noCopy
	m      *mapping
}

// ReadOnly is a file mapped with read protection only. It never hands out
// mutable memory.
type ReadOnly struct {
	view
}

// ReadWrite is a file mapped read-write as a shared mapping: writes through
// Bytes, Set and WriteAt reach the file and every other mapping of it.
type ReadWrite struct {
	view
}

// OpenReadOnly opens path and maps the whole file for reading.
func OpenReadOnly(path string) (*ReadOnly, error) {
	m, err := openMapping(path, false)
	if err != nil {
		return nil, err
	}
	return &ReadOnly{view{m: m}}, nil
}

// OpenReadWrite opens path for reading and writing and maps the whole file
// as a shared mapping.
func OpenReadWrite(path string) (*ReadWrite, error) {
	m, err := openMapping(path, true)
	if err != nil {
		return nil, err
	}
	return &ReadWrite{view{m: m}}, nil
}

// WithReadOnly opens path, calls fn and releases the mapping on every exit
// path, including a panic in fn. A release error is joined to fn's error.
func WithReadOnly(path string, fn func(*ReadOnly) error) (err error) {
	f, err := OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(f)
}

// WithReadWrite is WithReadOnly for a read-write mapping.
func WithReadWrite(path string, fn func(*ReadWrite) error) (err error) {
	f, err := OpenReadWrite(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(f)
}

// Close unmaps the view, closes the mapping object and closes the file.
// Closing a closed or moved-from handle does nothing and returns nil.
//
// Any slice or string obtained from the handle must not be used after Close.
func (v *view) Close() error {
	if v.m == nil {
		return nil
	}
	err := v.m.release()
	v.m = nil
	return err
}

// Closed reports whether the handle holds no resources.
func (v *view) Closed() bool {
	return v.m == nil
}

// Move transfers the mapping to a new handle and leaves f empty. No OS call
// is made.
func (f *ReadOnly) Move() *ReadOnly {
	dst := &ReadOnly{}
	dst.m, f.m = f.m, nil
	return dst
}

// Assign releases the mapping held by f, then moves src into f.
// f.Assign(f) does nothing.
func (f *ReadOnly) Assign(src *ReadOnly) error {
	if f == src {
		return nil
	}
	err := f.Close()
	f.m, src.m = src.m, nil
	return err
}

// Move transfers the mapping to a new handle and leaves f empty. No OS call
// is made.
func (f *ReadWrite) Move() *ReadWrite {
	dst := &ReadWrite{}
	dst.m, f.m = f.m, nil
	return dst
}

// Assign releases the mapping held by f, then moves src into f.
// f.Assign(f) does nothing.
func (f *ReadWrite) Assign(src *ReadWrite) error {
	if f == src {
		return nil
	}
	err := f.Close()
	f.m, src.m = src.m, nil
	return err
}
