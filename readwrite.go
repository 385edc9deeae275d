package filemap

import "errors"

// Bytes returns the view as a mutable slice. Writes reach the file through
// the shared mapping.
//
// The slice aliases the mapping and is valid only until the handle is
// closed, resized or moved. Resize may move the mapping to a different
// address, so a slice kept across Resize points at unmapped memory.
func (f *ReadWrite) Bytes() []byte {
	return f.bytes()
}

// Set stores b at index i. An out-of-range index panics.
func (f *ReadWrite) Set(i int, b byte) {
	data := f.bytes()
	if debugChecks {
		checkIndex(i, len(data))
	}
	data[i] = b
}

// WriteAt implements io.WriterAt. It never grows the file: a write that does
// not fit in the view copies what fits and returns ErrOutOfRange.
func (f *ReadWrite) WriteAt(p []byte, off int64) (int, error) {
	if f.m == nil {
		return 0, ErrClosed
	}
	if off < 0 || off > f.m.size {
		return 0, ErrOutOfRange
	}
	n := copy(f.m.data[off:], p)
	if n < len(p) {
		return n, ErrOutOfRange
	}
	return n, nil
}

// Resize truncates or extends the file to size bytes and maps the new
// length. Bytes beyond the old length read as zero.
//
// Every slice, string or reader obtained before Resize is invalid afterwards,
// whether or not Resize succeeds: the mapping may have moved.
//
// Failures are asymmetric. If the file cannot be resized, the error has kind
// KindResize and the handle is unchanged and still usable. If the file was
// resized but the new view cannot be created, the error has kind KindMap and
// the handle has been released: it is closed and must not be used again.
func (f *ReadWrite) Resize(size int64) error {
	if f.m == nil {
		return ErrClosed
	}
	err := f.m.resize(size)
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok && e.Kind == KindMap {
		if rerr := f.m.release(); rerr != nil {
			e.Err = errors.Join(e.Err, rerr)
		}
		f.m = nil
	}
	return err
}

// Sync flushes writes through the view to the file.
func (f *ReadWrite) Sync() error {
	if f.m == nil {
		return ErrClosed
	}
	if f.m.data == nil {
		return nil
	}
	return f.m.osSync()
}
