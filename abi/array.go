// Package abi reimplements the handful of host runtime types injected code
// needs to exchange data with the host: dynamic arrays backed by the host
// allocator, wide-character strings, interned names, interpreter frames and
// object handles. Every exported struct that mirrors a host type has the
// host's exact memory layout.
//
// Element types stored in host memory must not contain Go pointers.
package abi

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"

	"github.com/modhook/hostlink/host"
)

// TArray is the host's dynamic array header: data pointer, element count and
// capacity. A bare TArray is borrowed; it never frees anything on its own.
// Use Array for an owned buffer.
type TArray[T any] struct {
	data unsafe.Pointer
	num  int32
	max  int32
}

// Len returns the number of live elements.
func (a *TArray[T]) Len() int {
	return int(a.num)
}

// Cap returns the capacity in elements.
func (a *TArray[T]) Cap() int {
	return int(a.max)
}

// Data returns the buffer pointer, nil iff the capacity is zero.
func (a *TArray[T]) Data() unsafe.Pointer {
	return a.data
}

// Slice views the live elements. The slice aliases host memory and is only
// valid while the buffer is.
func (a *TArray[T]) Slice() []T {
	if a.num == 0 {
		return nil
	}
	return unsafe.Slice((*T)(a.data), a.num)
}

// Drop releases the elements and the buffer through alloc and resets the
// header. It lets arrays of arrays (and of strings) be freed recursively.
func (a *TArray[T]) Drop(alloc *host.Allocator) {
	dropElems(alloc, a.Slice())
	alloc.Free(a.data)
	*a = TArray[T]{}
}

// CloneWith deep-copies the array into a new buffer from alloc.
func (a TArray[T]) CloneWith(alloc *host.Allocator) TArray[T] {
	if a.num == 0 {
		return TArray[T]{}
	}
	var zero T
	out := TArray[T]{
		data: alloc.Malloc(uintptr(a.num)*unsafe.Sizeof(zero), unsafe.Alignof(zero)),
		num:  a.num,
		max:  a.num,
	}
	cloneElems(alloc, out.Slice(), a.Slice())
	return out
}

// Dropper is implemented by element types that own host memory.
type Dropper interface {
	Drop(alloc *host.Allocator)
}

// Cloner is implemented by element types that own host memory and therefore
// cannot be copied bitwise.
type Cloner[T any] interface {
	CloneWith(alloc *host.Allocator) T
}

func dropElems[T any](alloc *host.Allocator, elems []T) {
	for i := range elems {
		if d, ok := any(&elems[i]).(Dropper); ok {
			d.Drop(alloc)
		}
	}
}

func cloneElems[T any](alloc *host.Allocator, dst, src []T) {
	for i := range src {
		if c, ok := any(src[i]).(Cloner[T]); ok {
			dst[i] = c.CloneWith(alloc)
		} else {
			dst[i] = src[i]
		}
	}
}

// noCopy may be embedded into structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Array is a TArray that owns its buffer. The buffer always comes from the
// allocator the array was created with and goes back to it on Free.
//
// The header sits at offset zero, so a *Array can be handed to host functions
// expecting a TArray*; use Raw for that.
type Array[T any] struct {
	raw    TArray[T]
	alloc  *host.Allocator
	noCopy noCopy
}

// NewArray returns an empty array bound to alloc. It allocates nothing.
func NewArray[T any](alloc *host.Allocator) *Array[T] {
	return &Array[T]{alloc: alloc}
}

// WithCapacity returns an empty array with room for exactly n elements.
func WithCapacity[T any](alloc *host.Allocator, n int) *Array[T] {
	a := NewArray[T](alloc)
	if n > 0 {
		a.resize(int64(n))
	}
	return a
}

// FromSlice copies values into a new array.
func FromSlice[T any](alloc *host.Allocator, values []T) *Array[T] {
	a := NewArray[T](alloc)
	a.Extend(values)
	return a
}

// Adopt takes ownership of a header whose buffer came from alloc, typically
// one filled in by a host function. The source header is reset so it cannot
// be freed twice.
func Adopt[T any](alloc *host.Allocator, raw *TArray[T]) *Array[T] {
	a := &Array[T]{raw: *raw, alloc: alloc}
	*raw = TArray[T]{}
	return a
}

// Raw returns the ABI header. The host may read or fill it but ownership
// stays with a.
func (a *Array[T]) Raw() *TArray[T] {
	return &a.raw
}

// Release hands the buffer over to the caller (usually the host) and leaves a
// empty. The returned header must be freed by its new owner.
func (a *Array[T]) Release() TArray[T] {
	raw := a.raw
	a.raw = TArray[T]{}
	return raw
}

// Allocator returns the allocator that owns the buffer.
func (a *Array[T]) Allocator() *host.Allocator {
	return a.alloc
}

func (a *Array[T]) Len() int { return a.raw.Len() }

func (a *Array[T]) Cap() int { return a.raw.Cap() }

func (a *Array[T]) Slice() []T { return a.raw.Slice() }

func (a *Array[T]) Data() unsafe.Pointer { return a.raw.data }

// At returns element i. It panics if i is out of range.
func (a *Array[T]) At(i int) T {
	if i < 0 || i >= int(a.raw.num) {
		panic(fmt.Sprintf("abi: index %d out of range [0:%d]", i, a.raw.num))
	}
	return a.raw.Slice()[i]
}

// Reserve makes room for additional more elements. When the array would be
// full it grows to the next power of two at or above max+additional.
func (a *Array[T]) Reserve(additional int) {
	if additional <= 0 {
		return
	}
	if int64(a.raw.num)+int64(additional) < int64(a.raw.max) {
		return
	}
	a.resize(nextPowerOfTwo(int64(a.raw.max) + int64(additional)))
}

func (a *Array[T]) resize(capacity int64) {
	if capacity > math.MaxInt32 {
		panic(fmt.Sprintf("abi: array capacity %d overflows int32", capacity))
	}
	var zero T
	size := uintptr(capacity) * unsafe.Sizeof(zero)
	align := unsafe.Alignof(zero)
	if a.raw.data == nil {
		a.raw.data = a.alloc.Malloc(size, align)
	} else {
		a.raw.data = a.alloc.Realloc(a.raw.data, size, align)
	}
	a.raw.max = int32(capacity)
}

// Push appends v.
func (a *Array[T]) Push(v T) {
	a.Reserve(1)
	var zero T
	*(*T)(unsafe.Add(a.raw.data, uintptr(a.raw.num)*unsafe.Sizeof(zero))) = v
	a.raw.num++
}

// Extend appends a copy of values.
func (a *Array[T]) Extend(values []T) {
	if len(values) == 0 {
		return
	}
	a.Reserve(len(values))
	start := a.raw.num
	a.raw.num += int32(len(values))
	copy(a.raw.Slice()[start:], values)
}

// Clear drops every element and sets the length to zero, keeping the buffer.
func (a *Array[T]) Clear() {
	dropElems(a.alloc, a.raw.Slice())
	a.raw.num = 0
}

// Free drops every element and returns the buffer to the allocator.
func (a *Array[T]) Free() {
	a.raw.Drop(a.alloc)
}

// Clone deep-copies the array through the same allocator.
func (a *Array[T]) Clone() *Array[T] {
	raw := a.raw.CloneWith(a.alloc)
	return Adopt(a.alloc, &raw)
}

// nextPowerOfTwo returns the smallest power of two >= n, for n >= 1.
func nextPowerOfTwo(n int64) int64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(n-1))
}
