//go:build filemap_debug

package filemap

import "fmt"

const debugChecks = true

func checkIndex(i, size int) {
	if i < 0 || i >= size {
		panic(fmt.Sprintf("filemap: index %d out of range [0:%d]", i, size))
	}
}
