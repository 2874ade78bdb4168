// Command hostlink is built with -buildmode=c-shared and injected into the
// host process. The exports below are its only surface.
package main

/*
#include <stdbool.h>
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"unsafe"

	"github.com/modhook/hostlink"
	"github.com/modhook/hostlink/abi"
	"github.com/modhook/hostlink/host"
)

//export hostlink_attach
func hostlink_attach(module C.uintptr_t) C.bool {
	return C.bool(hostlink.Attach(uintptr(module)))
}

// hostlink_init publishes the resolver's addresses. addrs holds one entry per
// required role, in the order of host.RequiredRoles; zero means unresolved.
// It returns 0 on success.
//
//export hostlink_init
func hostlink_init(addrs *C.uintptr_t, count C.size_t) (ret C.int) {
	defer func() {
		if rec := recover(); rec != nil {
			logger := hostlink.Logger()
			logger.Error().Interface("panic", rec).Msg("init panicked")
			ret = 2
		}
	}()

	resolved := make(map[host.Role]uintptr, len(host.RequiredRoles))
	if addrs != nil {
		for i, addr := range unsafe.Slice(addrs, int(count)) {
			if i >= len(host.RequiredRoles) {
				break
			}
			resolved[host.RequiredRoles[i]] = uintptr(addr)
		}
	}
	if err := hostlink.Init(host.NewTable(host.NativeCaller(), resolved)); err != nil {
		logger := hostlink.Logger()
		logger.Error().Err(err).Msg("init")
		return 1
	}
	return 0
}

//export hostlink_event
func hostlink_event(object C.uintptr_t) {
	hostlink.HandleEvent(nil, abi.Object(object))
}

// hostlink_exec_mod_info has the host's native function signature:
// (context object, frame, return slot).
//
//export hostlink_exec_mod_info
func hostlink_exec_mod_info(_ C.uintptr_t, frame C.uintptr_t, result unsafe.Pointer) {
	tbl, ok := host.Installed()
	if !ok {
		return
	}
	hostlink.ExecModInfo(tbl, abi.FrameAt(uintptr(frame)), result)
}

func main() {}
