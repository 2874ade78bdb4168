//go:build windows

package scan

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/modhook/hostlink/types"
)

// MainImage maps the host executable as loaded in this process.
func MainImage() (*Image, error) {
	var module windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &module); err != nil {
		return nil, fmt.Errorf("get module handle: %v: %w", err, types.ErrImageUnavailable)
	}
	base := uintptr(module)
	size, err := sizeOfImage(unsafe.Slice((*byte)(unsafe.Pointer(base)), peHeaderSpan))
	if err != nil {
		return nil, fmt.Errorf("main module headers: %v: %w", err, types.ErrImageUnavailable)
	}
	path, err := ModulePath(base)
	if err != nil {
		return nil, err
	}
	return &Image{
		Base: base,
		Mem:  unsafe.Slice((*byte)(unsafe.Pointer(base)), size),
		Path: path,
	}, nil
}

// ModulePath returns the file a loaded module came from.
func ModulePath(module uintptr) (string, error) {
	buf := make([]uint16, windows.MAX_LONG_PATH)
	n, err := windows.GetModuleFileName(windows.Handle(module), &buf[0], uint32(len(buf)))
	if err != nil {
		return "", fmt.Errorf("module file name: %v: %w", err, types.ErrImageUnavailable)
	}
	return windows.UTF16ToString(buf[:n]), nil
}
