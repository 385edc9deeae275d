// Package spill keeps fixed-size pages, keyed by page number, in
// memory-mapped files instead of the Go heap.
//
// A Buffer is a list of segments. Each segment is one file mapped read-write
// through filemap and sized once at creation; segments are never resized, so
// slices handed out by Put and Get stay valid until Close. When every
// segment is full a new one is appended.
package spill

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Giulio2002/filemap"
	"github.com/Giulio2002/filemap/internal/fastmap"
	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultSegmentCap is the default number of pages per segment.
const DefaultSegmentCap = 1024

// MaxSegments limits how many segment files a Buffer creates.
const MaxSegments = 256

var (
	// ErrBufferFull is returned by Put when MaxSegments are all full.
	ErrBufferFull = errors.New("spill: buffer full")
	// ErrClosed is returned by operations on a closed Buffer.
	ErrClosed = errors.New("spill: buffer closed")
)

type segment struct {
	f    *filemap.ReadWrite
	path string
	free *roaring.Bitmap
	cap  uint32
}

// Slot locates a page inside a Buffer.
type Slot struct {
	Segment uint16
	Index   uint32
}

// Buffer is a pool of page-sized slots backed by mapped files.
// It is safe for concurrent use; the returned slices are not synchronized.
type Buffer struct {
	mu         sync.Mutex
	basePath   string
	pageSize   uint32
	segmentCap uint32
	segments   []*segment
	curSegment int // first segment that may have a free slot
	index      fastmap.Uint32Map[Slot]
	closed     bool
}

// New creates a spill buffer whose first segment file is path. Existing
// files are truncated. A segmentCap of 0 selects DefaultSegmentCap.
func New(path string, pageSize, segmentCap uint32) (*Buffer, error) {
	if pageSize == 0 {
		return nil, fmt.Errorf("spill: invalid page size %d", pageSize)
	}
	if segmentCap == 0 {
		segmentCap = DefaultSegmentCap
	}

	b := &Buffer{
		basePath:   path,
		pageSize:   pageSize,
		segmentCap: segmentCap,
		segments:   make([]*segment, 0, 4),
	}
	if err := b.addSegment(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) segmentPath(idx int) string {
	if idx == 0 {
		return b.basePath
	}
	return fmt.Sprintf("%s.%d", b.basePath, idx)
}

func (b *Buffer) addSegment() error {
	if len(b.segments) >= MaxSegments {
		return ErrBufferFull
	}

	path := b.segmentPath(len(b.segments))
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return err
	}

	f, err := filemap.OpenReadWrite(path)
	if err != nil {
		os.Remove(path)
		return err
	}
	if err := f.Resize(int64(b.segmentCap) * int64(b.pageSize)); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	// Pages are looked up by number, not scanned.
	if err := f.Advise(filemap.AccessRandom); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	free := roaring.New()
	free.AddRange(0, uint64(b.segmentCap))

	b.segments = append(b.segments, &segment{
		f:    f,
		path: path,
		free: free,
		cap:  b.segmentCap,
	})
	return nil
}

func (b *Buffer) page(s Slot) []byte {
	off := int(s.Index) * int(b.pageSize)
	end := off + int(b.pageSize)
	return b.segments[s.Segment].f.Bytes()[off:end:end]
}

// allocate takes the lowest free slot, appending a segment if needed.
func (b *Buffer) allocate() (Slot, error) {
	for ; b.curSegment < len(b.segments); b.curSegment++ {
		seg := b.segments[b.curSegment]
		if seg.free.IsEmpty() {
			continue
		}
		idx := seg.free.Minimum()
		seg.free.Remove(idx)
		return Slot{Segment: uint16(b.curSegment), Index: idx}, nil
	}

	if err := b.addSegment(); err != nil {
		return Slot{}, err
	}
	seg := b.segments[b.curSegment]
	idx := seg.free.Minimum()
	seg.free.Remove(idx)
	return Slot{Segment: uint16(b.curSegment), Index: idx}, nil
}

// Put returns the page stored for pgno, allocating a slot if pgno has none.
// A newly allocated page holds whatever the slot held before.
func (b *Buffer) Put(pgno uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if s, ok := b.index.Get(pgno); ok {
		return b.page(s), nil
	}
	s, err := b.allocate()
	if err != nil {
		return nil, err
	}
	b.index.Set(pgno, s)
	return b.page(s), nil
}

// Get returns the page stored for pgno, or nil.
func (b *Buffer) Get(pgno uint32) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	s, ok := b.index.Get(pgno)
	if !ok {
		return nil
	}
	return b.page(s)
}

// Lookup returns the slot holding pgno.
func (b *Buffer) Lookup(pgno uint32) (Slot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Get(pgno)
}

func (b *Buffer) release(pgno uint32) bool {
	s, ok := b.index.Get(pgno)
	if !ok {
		return false
	}
	b.index.Delete(pgno)
	b.segments[s.Segment].free.Add(s.Index)
	if int(s.Segment) < b.curSegment {
		b.curSegment = int(s.Segment)
	}
	return true
}

// Release returns the slot of pgno to the pool. The page slice must not be
// used afterwards.
func (b *Buffer) Release(pgno uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	return b.release(pgno)
}

// ReleaseBulk releases every page in pgnos.
func (b *Buffer) ReleaseBulk(pgnos []uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, pgno := range pgnos {
		b.release(pgno)
	}
}

// Clear releases all pages without closing the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, seg := range b.segments {
		seg.free.AddRange(0, uint64(seg.cap))
	}
	b.index.Clear()
	b.curSegment = 0
}

// Sync flushes every segment to its file.
func (b *Buffer) Sync() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	for _, seg := range b.segments {
		if err := seg.f.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Capacity returns the number of pages the current segments can hold.
func (b *Buffer) Capacity() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint32(len(b.segments)) * b.segmentCap
}

// Len returns the number of pages stored.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Len()
}

// PageSize returns the size of each page.
func (b *Buffer) PageSize() uint32 {
	return b.pageSize
}

// Segments returns the number of segment files.
func (b *Buffer) Segments() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.segments)
}

// Close unmaps every segment, and removes the segment files if remove is
// set. Page slices must not be used after Close. Closing twice is a no-op.
func (b *Buffer) Close(remove bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for _, seg := range b.segments {
		if err := seg.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if remove {
			if err := os.Remove(seg.path); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	b.segments = nil
	b.index.Clear()
	return firstErr
}
