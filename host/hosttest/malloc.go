package hosttest

import (
	"fmt"
	"unsafe"
)

// Malloc is a fake of the host's global allocator. It lays out an instance
// and vtable in host memory exactly like the real one and tracks every live
// block so tests can detect leaks and foreign frees.
type Malloc struct {
	h       *Host
	gmalloc uintptr
	live    map[uintptr]uintptr

	Allocs   int
	Reallocs int
	Frees    int
}

func newMalloc(h *Host) *Malloc {
	m := &Malloc{h: h, live: make(map[uintptr]uintptr)}

	const slots = 7
	vtable := h.Alloc(slots * unsafe.Sizeof(uintptr(0)))
	entries := unsafe.Slice(Ptr[uintptr](vtable), slots)
	unexpected := h.Register(func(...uintptr) uintptr {
		panic("hosttest: unexpected allocator vtable slot")
	})
	for i := range entries {
		entries[i] = unexpected
	}
	entries[2] = h.Register(m.malloc)
	entries[4] = h.Register(m.realloc)
	entries[6] = h.Register(m.free)

	instance := h.Alloc(unsafe.Sizeof(uintptr(0)))
	*Ptr[uintptr](instance) = vtable
	m.gmalloc = h.Alloc(unsafe.Sizeof(uintptr(0)))
	*Ptr[uintptr](m.gmalloc) = instance
	return m
}

// GMalloc is the address of the global allocator pointer.
func (m *Malloc) GMalloc() uintptr {
	return m.gmalloc
}

// Live returns the number of blocks allocated and not yet freed.
func (m *Malloc) Live() int {
	return len(m.live)
}

// Owns reports whether addr is a live block of this allocator.
func (m *Malloc) Owns(addr uintptr) bool {
	_, ok := m.live[addr]
	return ok
}

// Alloc allocates a tracked block directly, as host code would.
func (m *Malloc) Alloc(size uintptr) uintptr {
	return m.alloc(size, 0)
}

func (m *Malloc) alloc(size, align uintptr) uintptr {
	if align < 16 {
		align = 16
	}
	addr := m.h.Arena.Alloc(size, align)
	m.live[addr] = size
	return addr
}

// malloc(this, size, align)
func (m *Malloc) malloc(args ...uintptr) uintptr {
	m.Allocs++
	return m.alloc(args[1], args[2])
}

// realloc(this, ptr, size, align)
func (m *Malloc) realloc(args ...uintptr) uintptr {
	m.Reallocs++
	ptr, size, align := args[1], args[2], args[3]
	if ptr == 0 {
		return m.alloc(size, align)
	}
	old, ok := m.live[ptr]
	if !ok {
		panic(fmt.Sprintf("hosttest: realloc of unknown pointer 0x%x", ptr))
	}
	delete(m.live, ptr)
	if size == 0 {
		return 0
	}
	next := m.alloc(size, align)
	copy(Bytes(next, int(size)), Bytes(ptr, int(min(old, size))))
	return next
}

// free(this, ptr)
func (m *Malloc) free(args ...uintptr) uintptr {
	m.Frees++
	ptr := args[1]
	if _, ok := m.live[ptr]; !ok {
		panic(fmt.Sprintf("hosttest: free of unknown pointer 0x%x", ptr))
	}
	delete(m.live, ptr)
	return 0
}
