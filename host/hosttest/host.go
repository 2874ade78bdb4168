package hosttest

import (
	"fmt"
	"testing"
	"unsafe"

	"github.com/modhook/hostlink/host"
)

// Func is a fake host function. Arguments arrive exactly as the core passes
// them to the native caller.
type Func func(args ...uintptr) uintptr

const funcBase = uintptr(0x7ff6_0000_0000)

// Host is a fake host process. It implements host.Caller.
type Host struct {
	Arena  *Arena
	Malloc *Malloc

	funcs map[uintptr]Func
	addrs map[host.Role]uintptr
	calls map[uintptr]int
}

var _ host.Caller = (*Host)(nil)

// New creates a fake host with an allocator bound to host.RoleGMalloc. The
// arena is released when the test finishes.
func New(tb testing.TB) *Host {
	tb.Helper()
	h := &Host{
		Arena: &Arena{},
		funcs: make(map[uintptr]Func),
		addrs: make(map[host.Role]uintptr),
		calls: make(map[uintptr]int),
	}
	h.Malloc = newMalloc(h)
	h.addrs[host.RoleGMalloc] = h.Malloc.gmalloc
	tb.Cleanup(func() {
		if err := h.Arena.Release(); err != nil {
			tb.Errorf("release arena: %v", err)
		}
	})
	return h
}

// Call dispatches to the fake function registered at fn.
func (h *Host) Call(fn uintptr, args ...uintptr) uintptr {
	f, ok := h.funcs[fn]
	if !ok {
		panic(fmt.Sprintf("hosttest: call to unregistered function 0x%x", fn))
	}
	h.calls[fn]++
	return f(args...)
}

// Register gives f a code address.
func (h *Host) Register(f Func) uintptr {
	addr := funcBase + uintptr(len(h.funcs)+1)*0x10
	h.funcs[addr] = f
	return addr
}

// Bind registers f and resolves role to it.
func (h *Host) Bind(role host.Role, f Func) uintptr {
	addr := h.Register(f)
	h.addrs[role] = addr
	return addr
}

// Calls reports how many times the function resolved for role was invoked.
func (h *Host) Calls(role host.Role) int {
	return h.calls[h.addrs[role]]
}

// Table builds a resolved-address table over everything bound so far.
func (h *Host) Table() *host.Table {
	return host.NewTable(h, h.addrs)
}

// Alloc returns zeroed arena memory that the fake allocator does not track,
// standing in for host-static data.
func (h *Host) Alloc(size uintptr) uintptr {
	return h.Arena.Alloc(size, 16)
}

// Place allocates a zeroed T in host memory.
func Place[T any](h *Host) *T {
	var zero T
	return Ptr[T](h.Arena.Alloc(unsafe.Sizeof(zero), unsafe.Alignof(zero)))
}

// Addr returns the address of a value living in host memory.
func Addr[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}
