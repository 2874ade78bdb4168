//go:build !windows

package host

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is the panic value of the native caller on platforms
// where no host binary is supported.
var ErrUnsupportedPlatform = errors.New("native host calls are only supported on windows")

type unsupportedCaller struct{}

func (unsupportedCaller) Call(fn uintptr, _ ...uintptr) uintptr {
	panic(fmt.Errorf("call 0x%x: %w", fn, ErrUnsupportedPlatform))
}

// NativeCaller returns the Caller that jumps directly into host code.
func NativeCaller() Caller {
	return unsupportedCaller{}
}
