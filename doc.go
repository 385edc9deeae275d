// Package filemap maps whole files into memory and owns the resulting OS
// resources.
//
// A handle opens a file, maps its full length as a shared mapping and
// exposes the mapping as a byte range. The mode is part of the type:
// ReadOnly maps with read protection and only hands out immutable views
// (Text, At, ReadAt, WriteTo), while ReadWrite also exposes the mapping as a
// mutable []byte and can Resize the file.
//
// Basic usage:
//
//	f, err := filemap.OpenReadWrite("/path/to/file")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//
//	if err := f.Resize(4096); err != nil {
//	    log.Fatal(err)
//	}
//	b := f.Bytes()
//	b[0] = 0xAB
//
// Ownership:
//   - Close releases the view, the mapping object (Windows) and the file, in
//     that order. It is idempotent. A handle garbage collected without
//     Close only closes its file: the view stays mapped, so slices and
//     strings taken from it remain valid, but the address space is not
//     returned until the process exits. Always call Close.
//   - Move and Assign transfer the resources to another handle and leave
//     the source closed. Handles must not be copied; go vet reports copies.
//   - WithReadOnly and WithReadWrite scope a handle to a function call.
//
// Aliasing: every slice, string or reader obtained from a handle points into
// the mapping. It must not be used after Close, Move or Resize. Resize may
// move the mapping to another address even when it fails.
//
// Platform support:
//   - Unix: open(2), lseek(2), mmap(2) with MAP_SHARED; Resize uses
//     ftruncate(2) and, on Linux, mremap(2).
//   - Windows: CreateFileMapping and MapViewOfFile, keeping the mapping
//     object separate from the file handle.
//
// Zero-length files open successfully with an empty view and no OS mapping,
// so a new file can be opened and grown with Resize.
//
// Handles are not safe for concurrent use. Separate handles over the same
// file share writes through the OS but are not coordinated.
package filemap
