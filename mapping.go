package filemap

import (
	"errors"
	"io"
	"math"
	"os"
	"runtime"
)

// mapping owns the OS resources behind a handle: the open file, the view and,
// on Windows, the mapping object. A mapping is either fully initialized
// (file != nil, len(data) == size) or released (file == nil, data == nil,
// size == 0).
type mapping struct {
	data     []byte // View; nil for zero-length files
	size     int64  // Length of the live view
	writable bool   // Mapped with write permission
	path     string
	handle
}

// openMapping opens path and maps the whole file. Any resource acquired
// before a failure is released before returning.
func openMapping(path string, writable bool) (*mapping, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &Error{Kind: KindOpen, Op: "open", Path: path, Err: err}
	}

	size, err := fileSize(f)
	if err != nil {
		f.Close()
		return nil, &Error{Kind: KindSize, Op: "size", Path: path, Err: err}
	}

	m := &mapping{
		writable: writable,
		path:     path,
	}
	m.file = f

	if err := m.mapView(size); err != nil {
		f.Close()
		m.file = nil
		return nil, &Error{Kind: KindMap, Op: "map", Path: path, Err: err}
	}

	runtime.SetFinalizer(m, (*mapping).finalize)
	return m, nil
}

// fileSize seeks to the end of f to find its length.
func fileSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !fi.Mode().IsRegular() {
		return 0, errNotRegular
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if uint64(size) > math.MaxInt {
		return 0, errTooLarge
	}
	return size, nil
}

// mapView maps size bytes of the file. A zero size holds no OS mapping.
func (m *mapping) mapView(size int64) error {
	if size == 0 {
		m.data = nil
		m.size = 0
		return nil
	}
	data, err := m.osMap(int(size))
	if err != nil {
		return err
	}
	m.data = data
	m.size = size
	return nil
}

// unmapView tears down the view and the mapping object, keeping the file
// open. The view is forgotten even if the OS call fails.
func (m *mapping) unmapView() error {
	if m.data == nil {
		m.size = 0
		return nil
	}
	err := m.osUnmap()
	m.data = nil
	m.size = 0
	return err
}

// resize changes the file length and re-establishes the view. A returned
// *Error of KindMap means the view is gone and the caller must release.
func (m *mapping) resize(size int64) error {
	if size < 0 || uint64(size) > math.MaxInt {
		return &Error{Kind: KindResize, Op: "resize", Path: m.path, Err: ErrInvalidSize}
	}

	if err := m.truncate(size); err != nil {
		if errors.Is(err, errViewLost) {
			return &Error{Kind: KindMap, Op: "remap", Path: m.path, Err: err}
		}
		return &Error{Kind: KindResize, Op: "truncate", Path: m.path, Err: err}
	}

	if size == m.size {
		return nil
	}

	if m.size > 0 && size > 0 {
		if data, err := m.tryMremap(int(size)); err == nil {
			m.data = data
			m.size = size
			return nil
		}
	}

	if err := m.unmapView(); err != nil {
		return &Error{Kind: KindMap, Op: "unmap", Path: m.path, Err: err}
	}
	if err := m.mapView(size); err != nil {
		return &Error{Kind: KindMap, Op: "remap", Path: m.path, Err: err}
	}
	return nil
}

// finalize runs when a handle is collected without Close. Slices and strings
// taken from the handle may outlive it, so the view stays mapped for the life
// of the process and only the file and the mapping object are closed.
func (m *mapping) finalize() {
	if m.file == nil {
		return
	}
	m.osDetach()
	m.file.Close()
	m.file = nil
}

// release unmaps the view, closes the mapping object and closes the file, in
// that order. It is a no-op on a released mapping.
func (m *mapping) release() error {
	if m.file == nil {
		return nil
	}
	runtime.SetFinalizer(m, nil)

	err := m.unmapView()
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	m.file = nil
	return err
}
