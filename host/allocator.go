package host

import (
	"unsafe"
)

// FMalloc vtable slots, counted in pointer-sized entries. The order is a
// contract with the host release:
//
//	0 destructor  1 Exec  2 Malloc  3 TryMalloc  4 Realloc  5 TryRealloc  6 Free
const (
	mallocSlot  = 2
	reallocSlot = 4
	freeSlot    = 6
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Allocator forwards allocation requests to the host's global allocator so
// that memory handed to host functions is indistinguishable from host-native
// memory. It holds no state beyond the location of the allocator pointer.
//
// Pointers passed to Realloc and Free must have been returned by an Allocator
// bound to the same host; anything else corrupts the host heap.
type Allocator struct {
	gmalloc uintptr
	caller  Caller
}

// NewAllocator binds to the allocator resolved in t.
func NewAllocator(t *Table) (*Allocator, error) {
	addr, err := t.Address(RoleGMalloc)
	if err != nil {
		return nil, err
	}
	return &Allocator{gmalloc: addr, caller: t.Caller()}, nil
}

// instance reads GMalloc on every call; the host may swap its allocator
// (e.g. for a proxy) after we attach.
func (a *Allocator) instance() uintptr {
	return *(*uintptr)(unsafe.Pointer(a.gmalloc))
}

func (a *Allocator) method(inst uintptr, slot uintptr) uintptr {
	vtable := *(*uintptr)(unsafe.Pointer(inst))
	return *(*uintptr)(unsafe.Pointer(vtable + slot*ptrSize))
}

// Malloc allocates size bytes aligned to align.
func (a *Allocator) Malloc(size, align uintptr) unsafe.Pointer {
	inst := a.instance()
	return unsafe.Pointer(a.caller.Call(a.method(inst, mallocSlot), inst, size, align))
}

// Realloc resizes ptr, which may be nil, to size bytes.
func (a *Allocator) Realloc(ptr unsafe.Pointer, size, align uintptr) unsafe.Pointer {
	inst := a.instance()
	return unsafe.Pointer(a.caller.Call(a.method(inst, reallocSlot), inst, uintptr(ptr), size, align))
}

// Free releases ptr. Freeing nil is a no-op.
func (a *Allocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	inst := a.instance()
	a.caller.Call(a.method(inst, freeSlot), inst, uintptr(ptr))
}

// Same reports whether a and b dispatch to the same host allocator.
func (a *Allocator) Same(b *Allocator) bool {
	return a == b || (a != nil && b != nil && a.gmalloc == b.gmalloc)
}
