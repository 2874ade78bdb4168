// Package hostlink is the entry surface of the injected module. The host's
// loader calls Attach once; the address resolver calls Init once with the
// table it discovered; afterwards the host calls HandleEvent (and any native
// thunks such as ExecModInfo) whenever its game logic reaches a hook.
package hostlink

import (
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/modhook/hostlink/host"
	"github.com/modhook/hostlink/internal/config"
)

// state is written by Attach and read by every later entry point.
var state = struct {
	sync.RWMutex
	cfg      config.Config
	logger   zerolog.Logger
	closer   io.Closer
	handlers []Handler
}{
	cfg:    config.Default(),
	logger: zerolog.Nop(),
}

func currentConfig() config.Config {
	state.RLock()
	defer state.RUnlock()
	return state.cfg
}

// Logger returns the module logger. It discards everything until Attach has
// configured it.
func Logger() zerolog.Logger {
	state.RLock()
	defer state.RUnlock()
	return state.logger
}

func configure(cfg config.Config, logger zerolog.Logger, closer io.Closer) {
	state.Lock()
	defer state.Unlock()
	if state.closer != nil {
		state.closer.Close()
	}
	state.cfg, state.logger, state.closer = cfg, logger, closer
}

// Init publishes the table of resolved host addresses. It must be called
// exactly once, before the first event; a second call fails.
func Init(tbl *host.Table) error {
	if tbl == nil {
		return host.Install(nil)
	}
	if err := tbl.Validate(host.RequiredRoles...); err != nil {
		return err
	}
	if err := host.Install(tbl); err != nil {
		return err
	}
	logger := Logger()
	logger.Info().Int("roles", len(tbl.Roles())).Msg("address table installed")
	return nil
}
