package abi

import (
	"errors"
	"runtime"
	"unsafe"

	"github.com/modhook/hostlink/host"
)

// ErrNoMoreArgs is returned when a frame has no further declared parameters.
// The output slot is left untouched.
var ErrNoMoreArgs = errors.New("no more arguments in frame")

const (
	// exEndFunctionParms terminates the parameter list in host bytecode.
	exEndFunctionParms = 0x16
	// fieldNextOffset is FField::Next.
	fieldNextOffset = 0x20
)

// Frame mirrors the host's FFrame: one in-flight call into interpreted code.
// Only the fields the reader touches are named; the rest are opaque.
type Frame struct {
	outputDevice [0x10]byte
	// Node is the UFunction being executed.
	Node uintptr
	// Object is the context the function runs on.
	Object Object
	// Code is the bytecode cursor. It is zero for calls made from native code,
	// which pass their arguments through PropertyChainForCompiledIn instead.
	Code                      uintptr
	Locals                    uintptr
	MostRecentProperty        uintptr
	MostRecentPropertyAddress uintptr
	flowStack                 [0x30]byte
	PreviousFrame             uintptr
	OutParms                  uintptr
	// PropertyChainForCompiledIn is the next declared parameter (an FField)
	// on the native path.
	PropertyChainForCompiledIn uintptr
	CurrentNativeFunction      uintptr
	ArrayContextFailed         bool
}

// FrameAt views the frame at a host address.
func FrameAt(addr uintptr) *Frame {
	return (*Frame)(unsafe.Pointer(addr))
}

// argSource reads the next argument into out.
type argSource interface {
	next(out unsafe.Pointer) error
}

// nativeArgs walks the declared parameter chain of a call from native code.
type nativeArgs struct {
	tbl   *host.Table
	frame *Frame
}

func (s nativeArgs) next(out unsafe.Pointer) error {
	prop := s.frame.PropertyChainForCompiledIn
	if prop == 0 {
		return ErrNoMoreArgs
	}
	s.frame.PropertyChainForCompiledIn = *(*uintptr)(unsafe.Pointer(prop + fieldNextOffset))
	s.tbl.Call(host.RoleFrameStepExplicitProperty,
		uintptr(unsafe.Pointer(s.frame)),
		uintptr(out),
		prop)
	return nil
}

// scriptArgs lets the host's interpreter decode the next operand.
type scriptArgs struct {
	tbl   *host.Table
	frame *Frame
}

func (s scriptArgs) next(out unsafe.Pointer) error {
	if *(*byte)(unsafe.Pointer(s.frame.Code)) == exEndFunctionParms {
		return ErrNoMoreArgs
	}
	s.tbl.Call(host.RoleFrameStep,
		uintptr(unsafe.Pointer(s.frame)),
		uintptr(s.frame.Object),
		uintptr(out))
	return nil
}

// ArgReader extracts the arguments of a native function implementation from
// its frame, in declaration order. Reads must not be skipped or reordered.
type ArgReader struct {
	tbl   *host.Table
	frame *Frame
}

// NewArgReader binds a reader to frame.
func NewArgReader(tbl *host.Table, frame *Frame) *ArgReader {
	return &ArgReader{tbl: tbl, frame: frame}
}

// Frame returns the underlying frame.
func (r *ArgReader) Frame() *Frame {
	return r.frame
}

func (r *ArgReader) source() argSource {
	if r.frame.Code == 0 {
		return nativeArgs{tbl: r.tbl, frame: r.frame}
	}
	return scriptArgs{tbl: r.tbl, frame: r.frame}
}

// Next reads the next argument into out, which must point to a zeroed value
// of exactly the parameter's type.
func (r *ArgReader) Next(out unsafe.Pointer) error {
	return r.source().next(out)
}

// Finish steps over the end-of-parameters marker once every argument has been
// read, as native implementations must before returning.
func (r *ArgReader) Finish() {
	if r.frame.Code != 0 {
		r.frame.Code++
	}
}

// Arg reads the next argument as a T.
func Arg[T any](r *ArgReader) (T, error) {
	var v T
	var pinner runtime.Pinner
	pinner.Pin(&v)
	defer pinner.Unpin()
	if err := r.Next(unsafe.Pointer(&v)); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
