//go:build unix

package filemap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Swapped by tests to observe the OS calls made by a handle.
var (
	mmapSyscall   = unix.Mmap
	munmapSyscall = unix.Munmap
)

// errViewLost is never produced on unix: the file is truncated with the
// view in place.
var errViewLost = errors.New("view lost while resizing")

// handle is the file descriptor. The mapping is an attribute of the
// descriptor, so there is no separate mapping object.
type handle struct {
	file *os.File
}

func (m *mapping) osMap(length int) ([]byte, error) {
	prot := unix.PROT_READ
	if m.writable {
		prot |= unix.PROT_WRITE
	}

	data, err := mmapSyscall(int(m.file.Fd()), 0, length, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return data, nil
}

func (m *mapping) osUnmap() error {
	if err := munmapSyscall(m.data); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}

// osDetach has nothing to close: the view holds its own reference to the file.
func (m *mapping) osDetach() {}

func (m *mapping) truncate(size int64) error {
	return m.file.Truncate(size)
}

func (m *mapping) osSync() error {
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return os.NewSyscallError("msync", err)
	}
	return nil
}

func (m *mapping) osAdvise(pattern AccessPattern) error {
	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}
	if err := unix.Madvise(m.data, advice); err != nil {
		return os.NewSyscallError("madvise", err)
	}
	return nil
}

func (m *mapping) osLock() error {
	if err := unix.Mlock(m.data); err != nil {
		return os.NewSyscallError("mlock", err)
	}
	return nil
}

func (m *mapping) osUnlock() error {
	if err := unix.Munlock(m.data); err != nil {
		return os.NewSyscallError("munlock", err)
	}
	return nil
}
