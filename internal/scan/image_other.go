//go:build !windows

package scan

import (
	"fmt"
	"runtime"

	"github.com/modhook/hostlink/types"
)

// MainImage maps the host executable as loaded in this process.
func MainImage() (*Image, error) {
	return nil, fmt.Errorf("no host image on %s: %w", runtime.GOOS, types.ErrImageUnavailable)
}

// ModulePath returns the file a loaded module came from.
func ModulePath(uintptr) (string, error) {
	return "", fmt.Errorf("module paths on %s: %w", runtime.GOOS, types.ErrImageUnavailable)
}
