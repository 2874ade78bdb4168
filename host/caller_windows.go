//go:build windows

package host

import "syscall"

type syscallCaller struct{}

func (syscallCaller) Call(fn uintptr, args ...uintptr) uintptr {
	ret, _, _ := syscall.SyscallN(fn, args...)
	return ret
}

// NativeCaller returns the Caller that jumps directly into host code.
func NativeCaller() Caller {
	return syscallCaller{}
}
