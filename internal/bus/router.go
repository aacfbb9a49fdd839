package bus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"anchor/internal/errors"
	"anchor/internal/models"
)

// Handler is implemented by the coordinating component that owns the
// core state. Query messages return their result; event messages
// return only an error.
type Handler interface {
	TradeDetected(ctx context.Context, m TradeDetected) error
	PnLUpdate(ctx context.Context, m PnLUpdate) error
	CooldownExpired(ctx context.Context) error
	JournalComplete(ctx context.Context, m JournalComplete) error
	State(ctx context.Context) (models.ProtocolState, error)
	Config(ctx context.Context) (models.Config, error)
	UpdateConfig(ctx context.Context, cfg models.Config) error
	ApplyModePreset(ctx context.Context, mode models.Mode) (models.Config, error)
	ResetDay(ctx context.Context) error
	SimTrade(ctx context.Context, pnl float64) error
}

// Router dispatches inbound messages to a Handler. A mutex runs each
// message to completion before the next one starts, whichever goroutine
// delivers it: the websocket read loops, the debounce and expiry
// timers, and the poll tick all funnel through here, and the handler's
// read-modify-write session updates depend on never interleaving.
type Router struct {
	handler Handler
	log     zerolog.Logger

	mu sync.Mutex
}

// NewRouter creates a router around the given handler.
func NewRouter(handler Handler, log zerolog.Logger) *Router {
	return &Router{handler: handler, log: log}
}

// Dispatch routes a message. For query messages the result carries the
// reply payload; for event messages it is nil.
func (r *Router) Dispatch(ctx context.Context, msg Message) (interface{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch m := msg.(type) {
	case TradeDetected:
		return nil, r.handler.TradeDetected(ctx, m)
	case PnLUpdate:
		return nil, r.handler.PnLUpdate(ctx, m)
	case CooldownExpired:
		return nil, r.handler.CooldownExpired(ctx)
	case JournalComplete:
		return nil, r.handler.JournalComplete(ctx, m)
	case GetState:
		return r.handler.State(ctx)
	case GetConfig:
		return r.handler.Config(ctx)
	case UpdateConfig:
		return nil, r.handler.UpdateConfig(ctx, m.Config)
	case ApplyModePreset:
		return r.handler.ApplyModePreset(ctx, m.Mode)
	case ResetDay:
		return nil, r.handler.ResetDay(ctx)
	case SimTrade:
		return nil, r.handler.SimTrade(ctx, m.PnL)
	default:
		r.log.Warn().Type("message", msg).Msg("Dropping unknown message")
		return nil, errors.ErrUnknownMessage
	}
}
