package abi

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/modhook/hostlink/host"
)

// UObjectBase field offsets.
const (
	objectClassOffset = 0x10
	objectNameOffset  = 0x18
	objectOuterOffset = 0x20
)

// Object is a borrowed reference to a host object. The host owns it; this
// package only reads through it.
type Object uintptr

// IsNil reports whether o is the null object.
func (o Object) IsNil() bool {
	return o == 0
}

// Class returns the object's class.
func (o Object) Class() Object {
	return *(*Object)(unsafe.Pointer(uintptr(o) + objectClassOffset))
}

// Outer returns the object this one belongs to, or nil at the root.
func (o Object) Outer() Object {
	return *(*Object)(unsafe.Pointer(uintptr(o) + objectOuterOffset))
}

// Name returns the object's short name.
func (o Object) Name() Name {
	return *(*Name)(unsafe.Pointer(uintptr(o) + objectNameOffset))
}

func (o Object) String() string {
	return fmt.Sprintf("Object(0x%x)", uintptr(o))
}

// Walker traverses host object graphs. Path names are cached per walker, so a
// walker should not outlive the event it was created for.
type Walker struct {
	tbl   *host.Table
	alloc *host.Allocator
	paths map[Object]string
}

// NewWalker binds to the path name function resolved in tbl.
func NewWalker(tbl *host.Table) (*Walker, error) {
	if err := tbl.Validate(host.RoleGetPathName); err != nil {
		return nil, err
	}
	alloc, err := host.NewAllocator(tbl)
	if err != nil {
		return nil, err
	}
	return &Walker{tbl: tbl, alloc: alloc, paths: make(map[Object]string)}, nil
}

// PathName returns the fully qualified dotted path of obj, e.g.
// "/Script/Engine.GameInstance".
func (w *Walker) PathName(obj Object) (string, error) {
	if path, ok := w.paths[obj]; ok {
		return path, nil
	}
	var out FString
	var pinner runtime.Pinner
	pinner.Pin(&out)
	w.tbl.Call(host.RoleGetPathName, uintptr(obj), 0, uintptr(unsafe.Pointer(&out)))
	pinner.Unpin()

	owned := Adopt(w.alloc, &out)
	defer owned.Free()
	path, err := DecodeText(owned.Slice())
	if err != nil {
		return "", fmt.Errorf("path name of %s: %w", obj, err)
	}
	w.paths[obj] = path
	return path, nil
}

// FindOuter follows the outer chain from start, start included, and returns
// the first object whose class path equals classPath.
func (w *Walker) FindOuter(start Object, classPath string) (Object, bool, error) {
	for obj := start; !obj.IsNil(); obj = obj.Outer() {
		class := obj.Class()
		if class.IsNil() {
			continue
		}
		path, err := w.PathName(class)
		if err != nil {
			return 0, false, err
		}
		if path == classPath {
			return obj, true, nil
		}
	}
	return 0, false, nil
}

// Chain returns start and all of its outers, innermost first.
func Chain(start Object) []Object {
	var chain []Object
	for obj := start; !obj.IsNil(); obj = obj.Outer() {
		chain = append(chain, obj)
	}
	return chain
}
