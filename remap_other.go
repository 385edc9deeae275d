//go:build !linux

package filemap

import "errors"

var errMremapUnsupported = errors.New("mremap not available on this platform")

// tryMremap always fails so resize falls back to unmap and map.
func (m *mapping) tryMremap(int) ([]byte, error) {
	return nil, errMremapUnsupported
}
