package hostlink

import (
	"encoding/json"
	"errors"
	"runtime/debug"
	"strings"
	"unsafe"

	"github.com/modhook/hostlink/abi"
	"github.com/modhook/hostlink/host"
	"github.com/modhook/hostlink/internal/config"
)

// ModInfo is the payload returned by ExecModInfo.
type ModInfo struct {
	Filter string       `json:"filter"`
	Mods   []config.Mod `json:"mods"`
}

// ExecModInfo implements a native function taking one FString filter and
// returning an FString. result points at the host's return slot, which must
// hold a valid (possibly empty) FString. On failure the slot is left empty.
func ExecModInfo(tbl *host.Table, frame *abi.Frame, result unsafe.Pointer) {
	logger := Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("mod info panicked")
		}
	}()

	sess, err := NewSession(tbl)
	if err != nil {
		logger.Error().Err(err).Msg("mod info session")
		return
	}
	args := sess.Args(frame)
	raw, err := abi.Arg[abi.FString](args)
	if err != nil && !errors.Is(err, abi.ErrNoMoreArgs) {
		logger.Error().Err(err).Msg("mod info argument")
		return
	}
	args.Finish()

	arg := abi.Adopt(sess.Alloc, &raw)
	filter, err := abi.TextOf(arg.Raw())
	arg.Free()
	if err != nil {
		logger.Warn().Err(err).Msg("mod info filter")
		filter = ""
	}

	payload, err := json.Marshal(modInfo(currentConfig().Mods, filter))
	if err != nil {
		logger.Error().Err(err).Msg("encode mod info")
		return
	}
	out, err := abi.NewString(sess.Alloc, string(payload))
	if err != nil {
		logger.Error().Err(err).Msg("encode mod info")
		return
	}

	slot := (*abi.FString)(result)
	slot.Drop(sess.Alloc)
	*slot = out.Release()
}

// modInfo selects the mods whose name contains filter, ignoring case.
func modInfo(mods []config.Mod, filter string) ModInfo {
	info := ModInfo{Filter: filter, Mods: []config.Mod{}}
	needle := strings.ToLower(filter)
	for _, m := range mods {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			info.Mods = append(info.Mods, m)
		}
	}
	return info
}
