//go:build windows

package scan

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

type virtualProtector struct{}

// NativeProtector changes protection of loaded image pages.
func NativeProtector() Protector {
	return virtualProtector{}
}

func (virtualProtector) Unprotect(mem []byte) (func() error, error) {
	if len(mem) == 0 {
		return func() error { return nil }, nil
	}
	addr := uintptr(unsafe.Pointer(&mem[0]))
	size := uintptr(len(mem))
	var old uint32
	if err := windows.VirtualProtect(addr, size, windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return nil, err
	}
	return func() error {
		var prev uint32
		return windows.VirtualProtect(addr, size, old, &prev)
	}, nil
}
