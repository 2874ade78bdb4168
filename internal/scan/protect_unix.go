//go:build unix

package scan

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

type mprotector struct {
	// restore is applied after writing; mprotect cannot report the previous
	// protection, and image text pages are read+execute.
	restore int
}

// NativeProtector changes protection of loaded image pages.
func NativeProtector() Protector {
	return mprotector{restore: unix.PROT_READ | unix.PROT_EXEC}
}

func (p mprotector) Unprotect(mem []byte) (func() error, error) {
	if len(mem) == 0 {
		return func() error { return nil }, nil
	}
	pages := pageSpan(mem)
	if err := unix.Mprotect(pages, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC); err != nil {
		return nil, err
	}
	return func() error {
		return unix.Mprotect(pages, p.restore)
	}, nil
}

// pageSpan widens mem to the pages containing it.
func pageSpan(mem []byte) []byte {
	page := uintptr(os.Getpagesize())
	start := uintptr(unsafe.Pointer(&mem[0]))
	end := start + uintptr(len(mem))
	first := start &^ (page - 1)
	last := (end + page - 1) &^ (page - 1)
	return unsafe.Slice((*byte)(unsafe.Add(unsafe.Pointer(&mem[0]), -int(start-first))), last-first)
}
