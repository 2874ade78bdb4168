package abi

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/modhook/hostlink/host"
	"github.com/modhook/hostlink/host/hosttest"
)

const exIntConst = 0x1D

func TestFrameLayout(t *testing.T) {
	var f Frame
	offsets := map[string][2]uintptr{
		"Node":                       {unsafe.Offsetof(f.Node), 0x10},
		"Object":                     {unsafe.Offsetof(f.Object), 0x18},
		"Code":                       {unsafe.Offsetof(f.Code), 0x20},
		"Locals":                     {unsafe.Offsetof(f.Locals), 0x28},
		"MostRecentProperty":         {unsafe.Offsetof(f.MostRecentProperty), 0x30},
		"PreviousFrame":              {unsafe.Offsetof(f.PreviousFrame), 0x70},
		"OutParms":                   {unsafe.Offsetof(f.OutParms), 0x78},
		"PropertyChainForCompiledIn": {unsafe.Offsetof(f.PropertyChainForCompiledIn), 0x80},
		"CurrentNativeFunction":      {unsafe.Offsetof(f.CurrentNativeFunction), 0x88},
		"ArrayContextFailed":         {unsafe.Offsetof(f.ArrayContextFailed), 0x90},
	}
	for field, o := range offsets {
		require.Equal(t, o[1], o[0], field)
	}
}

// fakeField has the FField layout up to Next, plus a payload the fake
// interpreter copies out as the parameter value.
type fakeField struct {
	_     [0x20]byte
	next  uintptr
	value int32
}

type frameHost struct {
	h        *hosttest.Host
	explicit []uintptr
	steps    int
}

func bindFrameFuncs(h *hosttest.Host) *frameHost {
	fh := &frameHost{h: h}
	// StepExplicitProperty(this, result, property)
	h.Bind(host.RoleFrameStepExplicitProperty, func(args ...uintptr) uintptr {
		prop := hosttest.Ptr[fakeField](args[2])
		*hosttest.Ptr[int32](args[1]) = prop.value
		fh.explicit = append(fh.explicit, args[2])
		return 0
	})
	// Step(this, context, result) decoding only EX_IntConst.
	h.Bind(host.RoleFrameStep, func(args ...uintptr) uintptr {
		frame := hosttest.Ptr[Frame](args[0])
		op := hosttest.Bytes(frame.Code, 5)
		if op[0] != exIntConst {
			panic("unexpected opcode")
		}
		*hosttest.Ptr[int32](args[2]) = int32(binary.LittleEndian.Uint32(op[1:]))
		frame.Code += 5
		fh.steps++
		return 0
	})
	return fh
}

func (fh *frameHost) propertyChain(values ...int32) uintptr {
	var head uintptr
	for i := len(values) - 1; i >= 0; i-- {
		f := hosttest.Place[fakeField](fh.h)
		f.value = values[i]
		f.next = head
		head = hosttest.Addr(f)
	}
	return head
}

func (fh *frameHost) bytecode(values ...int32) uintptr {
	code := make([]byte, 0, len(values)*5+1)
	for _, v := range values {
		code = append(code, exIntConst)
		code = binary.LittleEndian.AppendUint32(code, uint32(v))
	}
	code = append(code, exEndFunctionParms)
	addr := fh.h.Alloc(uintptr(len(code)))
	copy(hosttest.Bytes(addr, len(code)), code)
	return addr
}

func TestArgReaderNativePath(t *testing.T) {
	h := hosttest.New(t)
	fh := bindFrameFuncs(h)
	tbl := h.Table()

	chain := fh.propertyChain(11, 22, 33)
	frame := hosttest.Place[Frame](h)
	frame.PropertyChainForCompiledIn = chain

	r := NewArgReader(tbl, frame)
	for _, want := range []int32{11, 22, 33} {
		got, err := Arg[int32](r)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	require.Len(t, fh.explicit, 3)
	require.Equal(t, chain, fh.explicit[0], "parameters are consumed from the head of the chain")
	require.Zero(t, frame.PropertyChainForCompiledIn)

	_, err := Arg[int32](r)
	require.ErrorIs(t, err, ErrNoMoreArgs)
	require.Len(t, fh.explicit, 3)
	require.Zero(t, fh.steps, "native calls never touch the interpreter")
}

func TestArgReaderEndLeavesSlotUntouched(t *testing.T) {
	h := hosttest.New(t)
	bindFrameFuncs(h)
	frame := hosttest.Place[Frame](h)

	slot := int32(-7)
	err := NewArgReader(h.Table(), frame).Next(unsafe.Pointer(&slot))
	require.ErrorIs(t, err, ErrNoMoreArgs)
	require.Equal(t, int32(-7), slot)
}

func TestArgReaderScriptPath(t *testing.T) {
	h := hosttest.New(t)
	fh := bindFrameFuncs(h)

	frame := hosttest.Place[Frame](h)
	frame.Code = fh.bytecode(-1, 1<<30)
	// a declared chain must be ignored while bytecode is attached
	frame.PropertyChainForCompiledIn = fh.propertyChain(99)
	start := frame.Code

	r := NewArgReader(h.Table(), frame)
	a, err := Arg[int32](r)
	require.NoError(t, err)
	b, err := Arg[int32](r)
	require.NoError(t, err)
	require.Equal(t, []int32{-1, 1 << 30}, []int32{a, b})
	require.Equal(t, 2, fh.steps)
	require.Empty(t, fh.explicit)

	_, err = Arg[int32](r)
	require.ErrorIs(t, err, ErrNoMoreArgs)
	require.Equal(t, start+10, frame.Code)

	r.Finish()
	require.Equal(t, start+11, frame.Code)
}

func TestArgReaderFinishNative(t *testing.T) {
	h := hosttest.New(t)
	frame := hosttest.Place[Frame](h)
	NewArgReader(h.Table(), frame).Finish()
	require.Zero(t, frame.Code)
}

func TestFrameAt(t *testing.T) {
	h := hosttest.New(t)
	frame := hosttest.Place[Frame](h)
	frame.Node = 0xABC
	require.Equal(t, uintptr(0xABC), FrameAt(hosttest.Addr(frame)).Node)
}
