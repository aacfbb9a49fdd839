// Package host runs the local websocket endpoint the page companion
// connects to, plus the timers that keep the core honest when the page
// goes quiet: the detection poll, the cooldown-expiry backstop, and the
// after-midnight rollover job.
package host

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"anchor/internal/bus"
	"anchor/internal/config"
	"anchor/internal/detect"
	"anchor/internal/logging"
	"anchor/internal/models"
	"anchor/internal/scrape"
	"anchor/internal/session"
)

// Server is the companion-facing host process.
type Server struct {
	app      *config.App
	router   *bus.Router
	hub      *bus.Hub
	detector *detect.Detector
	sessions *session.Aggregator
	log      zerolog.Logger

	upgrader  websocket.Upgrader
	debouncer *detect.Debouncer
	cron      *cron.Cron

	mu          sync.Mutex
	latest      *scrape.Snapshot
	conns       map[*websocket.Conn]chan Frame
	expiryTimer *time.Timer

	httpServer *http.Server
}

// NewServer wires a host around the core collaborators.
func NewServer(app *config.App, router *bus.Router, hub *bus.Hub, detector *detect.Detector, sessions *session.Aggregator, log zerolog.Logger) *Server {
	s := &Server{
		app:      app,
		router:   router,
		hub:      hub,
		detector: detector,
		sessions: sessions,
		log:      logging.WithComponent(log, "host"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The endpoint binds to loopback; the companion connects
			// from a page origin, so same-origin checks do not apply.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]chan Frame),
	}
	s.debouncer = detect.NewDebouncer(app.Scrape.Debounce, func() {
		s.scanLatest(context.Background())
	})
	return s
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.app.Listen.Path, s.handleFeed)

	s.httpServer = &http.Server{
		Addr:              s.app.Listen.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.forwardNotifications(ctx)
	go s.pollLoop(ctx)
	s.startRolloverJob(ctx)
	s.resumeCooldown(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", s.app.Listen.Address).Str("path", s.app.Listen.Path).Msg("Listening for page companion")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.debouncer.Stop()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cancelExpiryTimer()
	return s.httpServer.Shutdown(shutdownCtx)
}

// handleFeed upgrades a companion connection and runs its read loop.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	outbound := make(chan Frame, 16)
	s.mu.Lock()
	s.conns[conn] = outbound
	s.mu.Unlock()
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Companion connected")

	go s.writeLoop(conn, outbound)
	s.readLoop(r.Context(), conn, outbound)

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	close(outbound)
	conn.Close()
	s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Companion disconnected")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, outbound chan<- Frame) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("Companion read ended")
			}
			return
		}
		if err := s.handleFrame(ctx, frame, outbound); err != nil {
			s.log.Warn().Err(err).Str("type", frame.Type).Msg("Frame rejected")
			if ef, ferr := newFrame(FrameError, ErrorPayload{Message: err.Error()}); ferr == nil {
				trySend(outbound, ef)
			}
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, outbound <-chan Frame) {
	for frame := range outbound {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(frame); err != nil {
			s.log.Debug().Err(err).Msg("Companion write failed")
			return
		}
	}
}

func (s *Server) handleFrame(ctx context.Context, frame Frame, outbound chan<- Frame) error {
	switch frame.Type {
	case FrameHello:
		return s.handleHello(ctx, outbound)

	case FrameSnapshot:
		snap, err := decodeSnapshot(frame.Payload, time.Now())
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.latest = snap
		s.mu.Unlock()
		s.debouncer.Trigger()
		return nil

	case FrameCooldownExpired:
		_, err := s.router.Dispatch(ctx, bus.CooldownExpired{})
		return err

	case FrameJournal:
		var payload JournalPayload
		if err := decodeJSON(frame.Payload, &payload); err != nil {
			return err
		}
		_, err := s.router.Dispatch(ctx, bus.JournalComplete{Entry: payload.Entry})
		return err

	default:
		s.log.Debug().Str("type", frame.Type).Msg("Ignoring unknown frame")
		return nil
	}
}

// handleHello replies with the current state so a reloaded page can
// restore its overlay, resumed countdown included.
func (s *Server) handleHello(ctx context.Context, outbound chan<- Frame) error {
	stateAny, err := s.router.Dispatch(ctx, bus.GetState{})
	if err != nil {
		return err
	}
	cfgAny, err := s.router.Dispatch(ctx, bus.GetConfig{})
	if err != nil {
		return err
	}
	state := stateAny.(models.ProtocolState)
	cfg := cfgAny.(models.Config)

	frame, err := newFrame(FrameState, StatePayload{
		State:       state,
		Config:      cfg,
		RemainingMS: state.Remaining(time.Now()).Milliseconds(),
	})
	if err != nil {
		return err
	}
	trySend(outbound, frame)
	return nil
}

// scanLatest runs one detection pass over the most recent snapshot and
// dispatches whatever the detector produced.
func (s *Server) scanLatest(ctx context.Context) {
	s.mu.Lock()
	snap := s.latest
	s.mu.Unlock()
	if snap == nil {
		return
	}

	for _, msg := range s.detector.Scan(snap) {
		if _, err := s.router.Dispatch(ctx, msg); err != nil {
			s.log.Error().Err(err).Msg("Message dispatch failed")
		}
	}
}

// pollLoop rescans the retained snapshot on a fixed interval. Pages
// that update values without firing observable mutations still get
// picked up within one interval.
func (s *Server) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.app.Scrape.PollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanLatest(ctx)
		}
	}
}

// forwardNotifications relays core notifications to every connected
// companion and maintains the expiry backstop timer.
func (s *Server) forwardNotifications(ctx context.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			switch v := n.(type) {
			case bus.TriggerCooldown:
				frame, err := newFrame(FrameTriggerCooldown, TriggerCooldownPayload{
					Reason:      v.Reason,
					CooldownEnd: v.CooldownEnd,
					Locked:      v.Locked,
					Quote:       randomQuote(),
				})
				if err == nil {
					s.broadcast(frame)
				}
				if !v.Locked {
					s.scheduleExpiry(v.CooldownEnd)
				}
			case bus.CooldownComplete:
				s.cancelExpiryTimer()
				if frame, err := newFrame(FrameCooldownComplete, struct{}{}); err == nil {
					s.broadcast(frame)
				}
			}
		}
	}
}

func (s *Server) broadcast(frame Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, outbound := range s.conns {
		trySend(outbound, frame)
	}
}

// scheduleExpiry arms a single-shot timer for the cooldown end. The
// companion normally reports expiry itself; the timer covers a closed
// tab.
func (s *Server) scheduleExpiry(end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
	}
	delay := time.Until(end)
	if delay < 0 {
		delay = 0
	}
	// A short grace keeps the host from racing the companion's own
	// expiry report.
	s.expiryTimer = time.AfterFunc(delay+2*time.Second, func() {
		if _, err := s.router.Dispatch(context.Background(), bus.CooldownExpired{}); err != nil {
			s.log.Debug().Err(err).Msg("Expiry backstop dispatch failed")
		}
	})
}

func (s *Server) cancelExpiryTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiryTimer != nil {
		s.expiryTimer.Stop()
		s.expiryTimer = nil
	}
}

// resumeCooldown re-arms the expiry backstop for a cooldown persisted
// before a restart.
func (s *Server) resumeCooldown(ctx context.Context) {
	stateAny, err := s.router.Dispatch(ctx, bus.GetState{})
	if err != nil {
		s.log.Error().Err(err).Msg("State query failed on startup")
		return
	}
	state := stateAny.(models.ProtocolState)
	if state.Current == models.StateCooldown {
		s.log.Info().Time("end", state.CooldownEnd).Msg("Resuming persisted cooldown")
		s.scheduleExpiry(state.CooldownEnd)
	}
}

// startRolloverJob schedules the day-rollover check shortly after
// midnight so archiving does not wait for the next page event.
func (s *Server) startRolloverJob(ctx context.Context) {
	s.cron = cron.New()
	_, err := s.cron.AddFunc("5 0 * * *", func() {
		if err := s.sessions.Rollover(ctx); err != nil {
			s.log.Error().Err(err).Msg("Scheduled rollover failed")
		}
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Rollover job registration failed")
		return
	}
	s.cron.Start()
}

func trySend(ch chan<- Frame, frame Frame) {
	select {
	case ch <- frame:
	default:
	}
}
