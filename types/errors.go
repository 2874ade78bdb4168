package types

import (
	"errors"
	"fmt"
)

// Discovery failures. None of these are fatal for the host process: the
// attach flow logs them and continues with the affected feature disabled.
var (
	// ErrImageUnavailable is returned when the host's main module cannot be located
	// or mapped on the current platform.
	ErrImageUnavailable = errors.New("host image unavailable")

	// ErrInstallMissing is returned when the installation directory or the mod pak
	// that the patch redirects to does not exist.
	ErrInstallMissing = errors.New("installation missing")

	// ErrPatternNotFound is returned when no configured signature occurs in the image.
	ErrPatternNotFound = errors.New("pattern not found")

	// ErrChecksumMismatch is returned when a profile pins a different executable release.
	ErrChecksumMismatch = errors.New("executable checksum mismatch")

	// ErrPatchOutOfRange is returned when match offset plus displacement would write
	// past the end of the image.
	ErrPatchOutOfRange = errors.New("patch target out of range")
)

// MissingRoleError is returned when a component needs a resolved address the
// resolver never supplied.
type MissingRoleError struct {
	Role string
}

var _ error = MissingRoleError{}

func (e MissingRoleError) Error() string {
	return fmt.Sprintf("address for role %q was not resolved", e.Role)
}

// DecodeError is returned when text handed over by the host is not valid UTF-16,
// or text handed to the host is not valid UTF-8.
type DecodeError struct {
	// Offset is the index of the offending code unit (UTF-16) or byte (UTF-8).
	Offset int
	Msg    string
}

var _ error = DecodeError{}

func (e DecodeError) Error() string {
	return fmt.Sprintf("decode: %s at offset %d", e.Msg, e.Offset)
}
