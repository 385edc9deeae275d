//go:build linux

package filemap

import (
	"os"

	"golang.org/x/sys/unix"
)

// tryMremap grows or shrinks the view in place with mremap(2), letting the
// kernel move it when it cannot be resized where it is. The old view stays
// valid if this fails.
func (m *mapping) tryMremap(length int) ([]byte, error) {
	data, err := unix.Mremap(m.data, length, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, os.NewSyscallError("mremap", err)
	}
	return data, nil
}
