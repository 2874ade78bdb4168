package hostlink

import (
	"fmt"
	"runtime/debug"

	"github.com/modhook/hostlink/abi"
	"github.com/modhook/hostlink/host"
)

// Session bundles the helpers bound to one address table. It is built per
// event and must not outlive it.
type Session struct {
	Table  *host.Table
	Alloc  *host.Allocator
	Names  *abi.Names
	Walker *abi.Walker
}

// NewSession binds every helper to tbl.
func NewSession(tbl *host.Table) (*Session, error) {
	alloc, err := host.NewAllocator(tbl)
	if err != nil {
		return nil, err
	}
	names, err := abi.NewNames(tbl)
	if err != nil {
		return nil, err
	}
	walker, err := abi.NewWalker(tbl)
	if err != nil {
		return nil, err
	}
	return &Session{Table: tbl, Alloc: alloc, Names: names, Walker: walker}, nil
}

// Args returns a reader over the arguments in frame.
func (s *Session) Args(frame *abi.Frame) *abi.ArgReader {
	return abi.NewArgReader(s.Table, frame)
}

// Event is one notification from the host.
type Event struct {
	*Session
	// Object is the object the host reported. It is not retained past the event.
	Object abi.Object
	// Singleton is the nearest outer of Object whose class is the configured
	// singleton class, or zero when there is none.
	Singleton abi.Object
}

// Handler reacts to host events.
type Handler func(ev *Event) error

// Handle registers h. Handlers run in registration order.
func Handle(h Handler) {
	state.Lock()
	defer state.Unlock()
	state.handlers = append(state.handlers, h)
}

func handlers() []Handler {
	state.RLock()
	defer state.RUnlock()
	return append([]Handler(nil), state.handlers...)
}

// HandleEvent dispatches obj to every registered handler. A nil table means
// the installed one. Nothing is propagated to the host: failures and panics
// are logged.
func HandleEvent(tbl *host.Table, obj abi.Object) {
	logger := Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("event panicked")
		}
	}()

	if tbl == nil {
		var ok bool
		if tbl, ok = host.Installed(); !ok {
			logger.Warn().Msg("event before address table was installed")
			return
		}
	}
	sess, err := NewSession(tbl)
	if err != nil {
		logger.Error().Err(err).Msg("event session")
		return
	}

	class := currentConfig().SingletonClass
	ev := &Event{Session: sess, Object: obj}
	if class != "" {
		singleton, found, err := sess.Walker.FindOuter(obj, class)
		switch {
		case err != nil:
			logger.Error().Err(err).Stringer("object", obj).Msg("singleton lookup")
		case found:
			ev.Singleton = singleton
		default:
			logger.Debug().
				Stringer("object", obj).
				Str("class", class).
				Int("depth", len(abi.Chain(obj))).
				Msg("no singleton in outer chain")
		}
	}

	for i, h := range handlers() {
		if err := runHandler(h, ev); err != nil {
			logger.Error().Err(err).Int("handler", i).Stringer("object", obj).Msg("event handler failed")
		}
	}
}

func runHandler(h Handler, ev *Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return h(ev)
}
