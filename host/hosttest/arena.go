// Package hosttest provides an in-process stand-in for the host binary: an
// off-heap memory arena, a registry of fake host functions addressed like real
// code pointers, and a fake allocator with the host's vtable layout.
package hosttest

import (
	"fmt"
	"unsafe"
)

const chunkSize = 1 << 20

// Arena hands out memory that lives outside the Go heap, like host memory does.
// It never reuses memory; everything is unmapped at once by Release.
type Arena struct {
	chunks [][]byte
	cur    []byte
	off    uintptr
}

// Alloc returns size zeroed bytes aligned to align (a power of two).
func (a *Arena) Alloc(size, align uintptr) uintptr {
	if align == 0 {
		align = 16
	}
	if size == 0 {
		size = 1
	}
	if a.cur != nil {
		base := uintptr(unsafe.Pointer(&a.cur[0]))
		start := (base + a.off + align - 1) &^ (align - 1)
		if start+size <= base+uintptr(len(a.cur)) {
			a.off = start + size - base
			return start
		}
	}
	n := uintptr(chunkSize)
	if size+align > n {
		n = size + align
	}
	chunk, err := mapMemory(int(n))
	if err != nil {
		panic(fmt.Sprintf("hosttest: map %d bytes: %v", n, err))
	}
	a.chunks = append(a.chunks, chunk)
	a.cur = chunk
	a.off = 0
	return a.Alloc(size, align)
}

// Release unmaps every chunk. Addresses handed out before are invalid afterwards.
func (a *Arena) Release() error {
	var firstErr error
	for _, chunk := range a.chunks {
		if err := unmapMemory(chunk); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.chunks, a.cur, a.off = nil, nil, 0
	return firstErr
}

// Ptr reinterprets a host address as a typed pointer.
func Ptr[T any](addr uintptr) *T {
	return *(**T)(unsafe.Pointer(&addr))
}

// Bytes returns a view of n bytes of host memory at addr.
func Bytes(addr uintptr, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(Ptr[byte](addr), n)
}
