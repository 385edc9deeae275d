package filemap

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dat")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.dat")

	_, err := OpenReadOnly(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrMap)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindOpen, e.Kind)
	assert.Equal(t, path, e.Path)

	_, err = OpenReadWrite(path)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpenDirectory(t *testing.T) {
	_, err := OpenReadOnly(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSize)
}

func TestReadOnly(t *testing.T) {
	content := []byte("hello world test data for mmap")
	path := writeTemp(t, content)

	f, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, len(content), f.Size())
	assert.Equal(t, string(content), f.Text())
	assert.Equal(t, path, f.Path())
	assert.False(t, f.Writable())
	assert.False(t, f.Closed())

	for i := range content {
		assert.Equal(t, content[i], f.At(i))
	}

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, buf.Bytes())

	got, err := io.ReadAll(f.NewReader())
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestReadAt(t *testing.T) {
	path := writeTemp(t, []byte("Hello, Mmap!"))

	f, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "Mmap!", string(buf))

	// Partial read
	buf = make([]byte, 10)
	n, err = f.ReadAt(buf, 7)
	assert.Equal(t, 5, n)
	assert.Equal(t, io.EOF, err)

	// Past the end
	n, err = f.ReadAt(buf, 100)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	_, err = f.ReadAt(buf, -1)
	assert.Equal(t, ErrOutOfRange, err)
}

func TestAtOutOfRangePanics(t *testing.T) {
	path := writeTemp(t, []byte("abc"))

	f, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Panics(t, func() { f.At(3) })
	assert.Panics(t, func() { f.At(-1) })
}

func TestReadWriteDurability(t *testing.T) {
	initial := make([]byte, 4096)
	copy(initial, "initial")
	path := writeTemp(t, initial)

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	assert.True(t, f.Writable())

	copy(f.Bytes(), "modified")
	f.Set(100, 0x7f)
	assert.Equal(t, byte(0x7f), f.At(100))
	assert.Equal(t, byte('m'), f.At(0))
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	r, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 4096, r.Size())
	assert.Equal(t, "modified", r.Text()[:8])
	assert.Equal(t, byte(0x7f), r.At(100))
}

func TestWriteAt(t *testing.T) {
	path := writeTemp(t, make([]byte, 16))

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.WriteAt([]byte("abcd"), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(f.Bytes()[4:8]))

	// Never grows the file
	n, err = f.WriteAt([]byte("0123456789"), 12)
	assert.Equal(t, 4, n)
	assert.Equal(t, ErrOutOfRange, err)
	assert.Equal(t, 16, f.Size())
	assert.Equal(t, "0123", string(f.Bytes()[12:]))

	_, err = f.WriteAt([]byte("x"), -1)
	assert.Equal(t, ErrOutOfRange, err)
	_, err = f.WriteAt([]byte("x"), 17)
	assert.Equal(t, ErrOutOfRange, err)
}

func TestResizeGrow(t *testing.T) {
	path := writeTemp(t, []byte("test data"))

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Resize(8192))
	assert.Equal(t, 8192, f.Size())
	assert.Equal(t, "test data", string(f.Bytes()[:9]))
	assert.Equal(t, make([]byte, 8192-9), f.Bytes()[9:])

	copy(f.Bytes()[4096:], "new region")
	require.NoError(t, f.Sync())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8192), fi.Size())
}

func TestResizeShrink(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 1000)
	path := writeTemp(t, content)

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Resize(25))
	assert.Equal(t, 25, f.Size())
	assert.Equal(t, content[:25], f.Bytes())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(25), fi.Size())

	// Same size is a no-op on the view
	require.NoError(t, f.Resize(25))
	assert.Equal(t, content[:25], f.Bytes())
}

func TestResizeToZero(t *testing.T) {
	path := writeTemp(t, []byte("some bytes"))

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Resize(0))
	assert.Equal(t, 0, f.Size())
	assert.Empty(t, f.Bytes())
	assert.Equal(t, "", f.Text())
	assert.False(t, f.Closed())

	require.NoError(t, f.Resize(3))
	assert.Equal(t, []byte{0, 0, 0}, f.Bytes())
}

func TestResizeInvalid(t *testing.T) {
	path := writeTemp(t, []byte("keep me"))

	f, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer f.Close()

	err = f.Resize(-1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResize)
	assert.ErrorIs(t, err, ErrInvalidSize)

	// Handle is untouched
	assert.False(t, f.Closed())
	assert.Equal(t, "keep me", f.Text())
}

func TestZeroLengthFile(t *testing.T) {
	path := writeTemp(t, nil)

	r, err := OpenReadOnly(path)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Size())
	assert.Equal(t, "", r.Text())
	assert.False(t, r.Closed())
	_, err = r.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, io.EOF, err)
	require.NoError(t, r.Advise(AccessSequential))
	require.NoError(t, r.Close())

	w, err := OpenReadWrite(path)
	require.NoError(t, err)
	defer w.Close()
	assert.Empty(t, w.Bytes())
	require.NoError(t, w.Sync())
}

func TestEndToEnd(t *testing.T) {
	path := writeTemp(t, nil)

	w, err := OpenReadWrite(path)
	require.NoError(t, err)
	require.NoError(t, w.Resize(4096))
	w.Set(0, 0xAB)
	w.Set(4095, 0xCD)
	require.NoError(t, w.Close())

	r, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 4096, r.Size())
	assert.Equal(t, byte(0xAB), r.At(0))
	assert.Equal(t, byte(0xCD), r.At(4095))
}

func TestClose(t *testing.T) {
	path := writeTemp(t, []byte("close test"))

	f, err := OpenReadWrite(path)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	assert.Nil(t, f.Bytes())
	assert.Equal(t, 0, f.Size())
	assert.Equal(t, "", f.Path())

	// Double close should be safe
	require.NoError(t, f.Close())

	assert.Equal(t, ErrClosed, f.Resize(10))
	assert.Equal(t, ErrClosed, f.Sync())
	assert.Equal(t, ErrClosed, f.Advise(AccessRandom))
	_, err = f.ReadAt(make([]byte, 1), 0)
	assert.Equal(t, ErrClosed, err)
	_, err = f.WriteAt([]byte("x"), 0)
	assert.Equal(t, ErrClosed, err)
	_, err = f.WriteTo(io.Discard)
	assert.Equal(t, ErrClosed, err)
}

func TestMove(t *testing.T) {
	content := []byte("move me")
	path := writeTemp(t, content)

	src, err := OpenReadWrite(path)
	require.NoError(t, err)

	dst := src.Move()
	defer dst.Close()

	assert.True(t, src.Closed())
	assert.Equal(t, 0, src.Size())
	assert.Nil(t, src.Bytes())
	require.NoError(t, src.Close())

	assert.Equal(t, len(content), dst.Size())
	assert.Equal(t, content, dst.Bytes())

	// Moving an empty handle yields an empty handle
	empty := src.Move()
	assert.True(t, empty.Closed())
}

func TestMoveReadOnly(t *testing.T) {
	path := writeTemp(t, []byte("read only"))

	src, err := OpenReadOnly(path)
	require.NoError(t, err)

	dst := src.Move()
	defer dst.Close()

	assert.True(t, src.Closed())
	assert.Equal(t, "read only", dst.Text())
}

func TestAssign(t *testing.T) {
	pathA := writeTemp(t, []byte("aaaa"))
	pathB := writeTemp(t, []byte("bbbbbb"))

	a, err := OpenReadOnly(pathA)
	require.NoError(t, err)
	b, err := OpenReadOnly(pathB)
	require.NoError(t, err)

	require.NoError(t, a.Assign(b))
	defer a.Close()

	assert.True(t, b.Closed())
	assert.Equal(t, "bbbbbb", a.Text())
	assert.Equal(t, pathB, a.Path())

	// Self-assignment keeps the mapping
	require.NoError(t, a.Assign(a))
	assert.Equal(t, "bbbbbb", a.Text())

	// Assigning into a closed handle
	var c ReadOnly
	require.NoError(t, c.Assign(a))
	defer c.Close()
	assert.True(t, a.Closed())
	assert.Equal(t, "bbbbbb", c.Text())
}

func TestAssignReadWrite(t *testing.T) {
	pathA := writeTemp(t, []byte("aaaa"))
	pathB := writeTemp(t, []byte("bbbb"))

	a, err := OpenReadWrite(pathA)
	require.NoError(t, err)
	b, err := OpenReadWrite(pathB)
	require.NoError(t, err)

	require.NoError(t, a.Assign(b))
	defer a.Close()

	a.Set(0, 'x')
	require.NoError(t, a.Close())

	got, err := os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "xbbb", string(got))

	got, err = os.ReadFile(pathA)
	require.NoError(t, err)
	assert.Equal(t, "aaaa", string(got))
}

func TestWithReadWrite(t *testing.T) {
	path := writeTemp(t, make([]byte, 8))

	var handle *ReadWrite
	err := WithReadWrite(path, func(f *ReadWrite) error {
		handle = f
		copy(f.Bytes(), "scoped")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, handle.Closed())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "scoped", string(got[:6]))

	errBoom := errors.New("boom")
	err = WithReadOnly(path, func(f *ReadOnly) error {
		assert.Equal(t, 8, f.Size())
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	err = WithReadOnly(filepath.Join(t.TempDir(), "missing"), func(*ReadOnly) error {
		t.Fatal("fn must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
}

func TestWithReadOnlyReleasesOnPanic(t *testing.T) {
	path := writeTemp(t, []byte("panic"))

	var handle *ReadOnly
	func() {
		defer func() { recover() }()
		WithReadOnly(path, func(f *ReadOnly) error {
			handle = f
			panic("boom")
		})
	}()
	require.NotNil(t, handle)
	assert.True(t, handle.Closed())
}

func TestWithMovedHandle(t *testing.T) {
	path := writeTemp(t, []byte("keep"))

	var kept *ReadOnly
	err := WithReadOnly(path, func(f *ReadOnly) error {
		kept = f.Move()
		return nil
	})
	require.NoError(t, err)
	defer kept.Close()
	assert.Equal(t, "keep", kept.Text())
}

func TestAdviseAndLock(t *testing.T) {
	path := writeTemp(t, make([]byte, 4096))

	f, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer f.Close()

	for _, p := range []AccessPattern{AccessNormal, AccessSequential, AccessRandom, AccessWillNeed, AccessDontNeed} {
		assert.NoError(t, f.Advise(p))
	}

	// mlock may be limited by RLIMIT_MEMLOCK
	if err := f.Lock(); err != nil {
		t.Skipf("Lock: %v", err)
	}
	assert.NoError(t, f.Unlock())
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindMap, Op: "map", Path: "/tmp/x", Err: errors.New("no memory")}
	assert.Equal(t, "filemap: map /tmp/x: no memory", err.Error())
	assert.Equal(t, "filemap: resize error", ErrResize.Error())
	assert.True(t, errors.Is(err, ErrMap))
	assert.False(t, errors.Is(err, &Error{Kind: KindMap, Op: "map"}))
}

func TestErrorStringNamesPathOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	_, err := OpenReadOnly(path)
	require.Error(t, err)

	var pe *fs.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, strings.Count(err.Error(), path), err.Error())
	assert.Equal(t, "filemap: "+pe.Error(), err.Error())
}
