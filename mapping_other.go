//go:build !unix && !windows

package filemap

import (
	"errors"
	"os"
)

var errViewLost = errors.New("view lost while resizing")

type mmapUnsupportedError struct{}

func (mmapUnsupportedError) Error() string {
	return "mmap is not supported on this platform"
}

func (mmapUnsupportedError) Is(target error) bool {
	return target == errors.ErrUnsupported
}

type handle struct {
	file *os.File
}

func (m *mapping) osMap(int) ([]byte, error) {
	return nil, mmapUnsupportedError{}
}

func (m *mapping) osUnmap() error {
	return nil
}

func (m *mapping) osDetach() {}

func (m *mapping) truncate(size int64) error {
	return m.file.Truncate(size)
}

func (m *mapping) osSync() error {
	return mmapUnsupportedError{}
}

func (m *mapping) osAdvise(AccessPattern) error {
	return nil
}

func (m *mapping) osLock() error {
	return mmapUnsupportedError{}
}

func (m *mapping) osUnlock() error {
	return mmapUnsupportedError{}
}
