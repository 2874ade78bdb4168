package abi

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode/utf16"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/modhook/hostlink/host"
	"github.com/modhook/hostlink/host/hosttest"
)

func newAllocator(t *testing.T, h *hosttest.Host) *host.Allocator {
	t.Helper()
	alloc, err := host.NewAllocator(h.Table())
	require.NoError(t, err)
	return alloc
}

// hostString builds an FString the way host code would: buffer from the host
// allocator, NUL terminated.
func hostString(h *hosttest.Host, text string) FString {
	units := append(utf16.Encode([]rune(text)), 0)
	addr := h.Malloc.Alloc(uintptr(len(units)) * 2)
	copy(unsafe.Slice(hosttest.Ptr[uint16](addr), len(units)), units)
	return FString{
		data: unsafe.Pointer(hosttest.Ptr[byte](addr)),
		num:  int32(len(units)),
		max:  int32(len(units)),
	}
}

// readWide reads a NUL-terminated wide string from memory.
func readWide(addr uintptr) string {
	var units []uint16
	for p := addr; ; p += 2 {
		u := *hosttest.Ptr[uint16](p)
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// nameTable is a fake of the host's global name table.
type nameTable struct {
	byText  map[string]uint32
	entries []string
}

func bindNameTable(h *hosttest.Host) *nameTable {
	nt := &nameTable{byText: map[string]uint32{"none": 0}, entries: []string{"None"}}
	h.Bind(host.RoleNameInit, func(args ...uintptr) uintptr {
		out := hosttest.Ptr[Name](args[0])
		*out = nt.construct(readWide(args[1]), args[2] == findNameAdd)
		return args[0]
	})
	h.Bind(host.RoleNameToString, func(args ...uintptr) uintptr {
		name := *hosttest.Ptr[Name](args[0])
		text := nt.entries[name.ComparisonIndex]
		if name.Number > 0 {
			text = fmt.Sprintf("%s_%d", text, name.Number-1)
		}
		*hosttest.Ptr[FString](args[1]) = hostString(h, text)
		return 0
	})
	return nt
}

func (nt *nameTable) construct(text string, add bool) Name {
	base, number := text, uint32(0)
	if i := strings.LastIndexByte(text, '_'); i > 0 {
		suffix := text[i+1:]
		if n, err := strconv.ParseUint(suffix, 10, 31); err == nil && (suffix == "0" || suffix[0] != '0') {
			base, number = text[:i], uint32(n)+1
		}
	}
	key := strings.ToLower(base)
	idx, ok := nt.byText[key]
	if !ok {
		if !add {
			return Name{}
		}
		idx = uint32(len(nt.entries))
		nt.entries = append(nt.entries, base)
		nt.byText[key] = idx
	}
	return Name{ComparisonIndex: idx, Number: number}
}

// fakeObject has the host's UObjectBase layout.
type fakeObject struct {
	vtable uintptr
	flags  int32
	index  int32
	class  Object
	name   Name
	outer  Object
}

// objectGraph places fake objects and classes in host memory and serves
// their path names.
type objectGraph struct {
	h     *hosttest.Host
	paths map[Object]string
}

func bindObjectGraph(h *hosttest.Host) *objectGraph {
	g := &objectGraph{h: h, paths: make(map[Object]string)}
	h.Bind(host.RoleGetPathName, func(args ...uintptr) uintptr {
		path, ok := g.paths[Object(args[0])]
		if !ok {
			panic(fmt.Sprintf("no path for object 0x%x", args[0]))
		}
		*hosttest.Ptr[FString](args[2]) = hostString(h, path)
		return 0
	})
	return g
}

func (g *objectGraph) class(path string) Object {
	obj := hosttest.Place[fakeObject](g.h)
	o := Object(hosttest.Addr(obj))
	g.paths[o] = path
	return o
}

func (g *objectGraph) object(class, outer Object) Object {
	obj := hosttest.Place[fakeObject](g.h)
	obj.class = class
	obj.outer = outer
	return Object(hosttest.Addr(obj))
}

// chain builds n objects, each the outer of the previous one, and returns
// them innermost first.
func (g *objectGraph) chain(classes ...Object) []Object {
	objs := make([]Object, len(classes))
	var outer Object
	for i := len(classes) - 1; i >= 0; i-- {
		outer = g.object(classes[i], outer)
		objs[i] = outer
	}
	return objs
}
