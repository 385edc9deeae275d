//go:build windows

package filemap

import (
	"errors"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var errViewLost = errors.New("view lost while resizing")

// handle is the file handle plus the mapping object created from it. The
// view keeps its own reference to the mapping object, but the handle is held
// until the view is torn down so release order is view, mapping, file.
type handle struct {
	file    *os.File
	mapping windows.Handle
}

func (m *mapping) osMap(length int) ([]byte, error) {
	prot := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)
	if m.writable {
		prot = windows.PAGE_READWRITE
		access = windows.FILE_MAP_WRITE
	}

	maxSizeHigh := uint32(uint64(length) >> 32)
	maxSizeLow := uint32(length)

	h, err := windows.CreateFileMapping(windows.Handle(m.file.Fd()), nil, prot, maxSizeHigh, maxSizeLow, nil)
	if err != nil {
		return nil, os.NewSyscallError("CreateFileMapping", err)
	}

	addr, err := windows.MapViewOfFile(h, access, 0, 0, uintptr(length))
	if err != nil {
		windows.CloseHandle(h)
		return nil, os.NewSyscallError("MapViewOfFile", err)
	}

	m.mapping = h
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length), nil
}

func (m *mapping) osUnmap() error {
	err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&m.data[0])))
	if err != nil {
		err = os.NewSyscallError("UnmapViewOfFile", err)
	}
	if m.mapping != 0 {
		if cerr := windows.CloseHandle(m.mapping); err == nil && cerr != nil {
			err = os.NewSyscallError("CloseHandle", cerr)
		}
		m.mapping = 0
	}
	return err
}

// osDetach closes the mapping object without unmapping the view. The view
// keeps the object alive until it is unmapped.
func (m *mapping) osDetach() {
	if m.mapping != 0 {
		windows.CloseHandle(m.mapping)
		m.mapping = 0
	}
}

// truncate changes the file length. Windows refuses to shrink a file below a
// live view (ERROR_USER_MAPPED_FILE), so a shrink drops the view first and
// maps the old length back if the truncate fails.
func (m *mapping) truncate(size int64) error {
	if size >= m.size || m.data == nil {
		return m.file.Truncate(size)
	}

	old := m.size
	if err := m.unmapView(); err != nil {
		return errors.Join(errViewLost, err)
	}
	if err := m.file.Truncate(size); err != nil {
		if rerr := m.mapView(old); rerr != nil {
			return errors.Join(errViewLost, err, rerr)
		}
		return err
	}
	return nil
}

func (m *mapping) osSync() error {
	if err := windows.FlushViewOfFile(uintptr(unsafe.Pointer(&m.data[0])), uintptr(m.size)); err != nil {
		return os.NewSyscallError("FlushViewOfFile", err)
	}
	if err := windows.FlushFileBuffers(windows.Handle(m.file.Fd())); err != nil {
		return os.NewSyscallError("FlushFileBuffers", err)
	}
	return nil
}

// osAdvise is a no-op: Windows has no madvise.
func (m *mapping) osAdvise(AccessPattern) error {
	return nil
}

func (m *mapping) osLock() error {
	if err := windows.VirtualLock(uintptr(unsafe.Pointer(&m.data[0])), uintptr(m.size)); err != nil {
		return os.NewSyscallError("VirtualLock", err)
	}
	return nil
}

func (m *mapping) osUnlock() error {
	if err := windows.VirtualUnlock(uintptr(unsafe.Pointer(&m.data[0])), uintptr(m.size)); err != nil {
		return os.NewSyscallError("VirtualUnlock", err)
	}
	return nil
}
