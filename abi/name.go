package abi

import (
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	"github.com/modhook/hostlink/host"
)

// EFindName values accepted by the host's name constructor.
const (
	findNameFind = 0
	findNameAdd  = 1
)

// Name is an entry in the host's global name table. ComparisonIndex is only
// ever obtained from the host; Number carries the numeric suffix the host
// strips from names like "Foo_2" (stored as 3, zero meaning no suffix).
type Name struct {
	ComparisonIndex uint32
	Number          uint32
}

// IsNone reports whether n is the host's empty name.
func (n Name) IsNone() bool {
	return n == Name{}
}

// Compare orders names by their index pair. It says nothing about the
// lexical order of the decoded text.
func (n Name) Compare(o Name) int {
	switch {
	case n.ComparisonIndex < o.ComparisonIndex:
		return -1
	case n.ComparisonIndex > o.ComparisonIndex:
		return 1
	case n.Number < o.Number:
		return -1
	case n.Number > o.Number:
		return 1
	}
	return 0
}

// Hash matches the host's GetTypeHash for names.
func (n Name) Hash() uint32 {
	return HashComparisonIndex(n.ComparisonIndex) + n.Number
}

func (n Name) String() string {
	return fmt.Sprintf("Name(%d, %d)", n.ComparisonIndex, n.Number)
}

// HashComparisonIndex is the host's mixing function over a name table index.
// All arithmetic wraps at 32 bits.
func HashComparisonIndex(v uint32) uint32 {
	return (v >> 4) + v*0x10001 + (v>>16)*0x80001
}

// Names looks up and creates names through the host's name table.
type Names struct {
	tbl   *host.Table
	alloc *host.Allocator
}

// NewNames binds to the name functions resolved in tbl.
func NewNames(tbl *host.Table) (*Names, error) {
	if err := tbl.Validate(host.RoleNameInit, host.RoleNameToString); err != nil {
		return nil, err
	}
	alloc, err := host.NewAllocator(tbl)
	if err != nil {
		return nil, err
	}
	return &Names{tbl: tbl, alloc: alloc}, nil
}

// New finds text in the name table, adding it if absent.
func (n *Names) New(text string) (Name, error) {
	return n.construct(text, findNameAdd)
}

// Find looks text up without adding it.
func (n *Names) Find(text string) (Name, bool) {
	name, err := n.construct(text, findNameFind)
	if err != nil {
		return Name{}, false
	}
	if name.IsNone() {
		// the host reports misses as None, which is also a real name
		return Name{}, text == "" || strings.EqualFold(text, "None")
	}
	return name, true
}

func (n *Names) construct(text string, findType uintptr) (Name, error) {
	units, err := EncodeText(text)
	if err != nil {
		return Name{}, err
	}
	var out Name
	var pinner runtime.Pinner
	pinner.Pin(&out)
	pinner.Pin(&units[0])
	defer pinner.Unpin()

	n.tbl.Call(host.RoleNameInit,
		uintptr(unsafe.Pointer(&out)),
		uintptr(unsafe.Pointer(&units[0])),
		findType)
	return out, nil
}

// ToText asks the host to render name, including any numeric suffix.
func (n *Names) ToText(name Name) (string, error) {
	var out FString
	var pinner runtime.Pinner
	pinner.Pin(&name)
	pinner.Pin(&out)
	n.tbl.Call(host.RoleNameToString,
		uintptr(unsafe.Pointer(&name)),
		uintptr(unsafe.Pointer(&out)))
	pinner.Unpin()

	owned := Adopt(n.alloc, &out)
	defer owned.Free()
	return DecodeText(owned.Slice())
}
