package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ManagerConfig tunes the client-side connection manager. Zero values fall
// back to the defaults below.
type ManagerConfig struct {
	URL                  string
	DialTimeout          time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

const (
	defaultDialTimeout          = 10 * time.Second
	defaultReconnectDelay       = 3 * time.Second
	defaultMaxReconnectAttempts = 5
)

// Callback receives events on the manager's read goroutine. Callbacks run in
// socket arrival order; a slow callback delays delivery to everyone, so keep
// them cheap.
type Callback func(Event)

type subscription struct {
	tournamentID int
	types        map[EventType]bool // empty means all types
	cb           Callback
}

func (s *subscription) matches(ev Event) bool {
	if ev.TournamentID != s.tournamentID {
		return false
	}
	return len(s.types) == 0 || s.types[ev.Type]
}

// ErrManagerClosed is returned by Publish after Close.
var ErrManagerClosed = errors.New("realtime manager is closed")

// Manager maintains a single WebSocket connection shared by all subscribers
// in the process. When the connection drops it retries with a fixed delay up
// to a capped number of attempts, then stays in local-only mode: Publish
// keeps succeeding so local edits are never blocked by the network, and the
// reconnect hook lets the owner re-fetch a snapshot once the link is back.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu          sync.RWMutex
	conn        *websocket.Conn
	connected   bool
	subs        map[uuid.UUID]*subscription
	onReconnect func()

	// writeMu serializes frame writes: the socket supports one concurrent
	// writer, and the manager is shared by every subscriber in the process.
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	return &Manager{
		cfg:    cfg,
		logger: logger,
		subs:   make(map[uuid.UUID]*subscription),
		done:   make(chan struct{}),
	}
}

// Connect dials the server and starts the read loop. Call once; reconnects
// after that are automatic.
func (m *Manager) Connect(ctx context.Context) error {
	conn, err := m.dial(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.conn = conn
	m.connected = true
	m.mu.Unlock()

	go m.readLoop(conn)
	return nil
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, m.cfg.URL, nil)
	return conn, err
}

// Connected reports whether the socket is currently up.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Subscribe registers a callback for one tournament's events. With no types
// given, every event type is delivered. The returned id cancels the
// subscription via Unsubscribe.
func (m *Manager) Subscribe(tournamentID int, cb Callback, types ...EventType) uuid.UUID {
	set := make(map[EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	id := uuid.New()

	m.mu.Lock()
	m.subs[id] = &subscription{tournamentID: tournamentID, types: set, cb: cb}
	m.mu.Unlock()
	return id
}

func (m *Manager) Unsubscribe(id uuid.UUID) {
	m.mu.Lock()
	delete(m.subs, id)
	m.mu.Unlock()
}

// SetReconnectHook installs a function invoked after every successful
// reconnect, before delivery of new events resumes.
func (m *Manager) SetReconnectHook(fn func()) {
	m.mu.Lock()
	m.onReconnect = fn
	m.mu.Unlock()
}

// Publish sends an event to the server for fan-out to other clients. Network
// failure is not fatal: the event is logged and dropped, and the snapshot
// re-fetch on reconnect brings everyone back in sync.
func (m *Manager) Publish(ev Event) error {
	select {
	case <-m.done:
		return ErrManagerClosed
	default:
	}

	m.mu.RLock()
	conn, connected := m.conn, m.connected
	m.mu.RUnlock()

	if !connected {
		m.logger.Warn("publish while disconnected, event dropped",
			slog.String("type", string(ev.Type)),
			slog.String("match_uid", ev.MatchUID))
		return nil
	}
	m.writeMu.Lock()
	err := conn.WriteJSON(ev)
	m.writeMu.Unlock()
	if err != nil {
		m.logger.Warn("publish failed, event dropped",
			slog.String("type", string(ev.Type)),
			slog.Any("error", err))
	}
	return nil
}

// Close shuts the manager down. Publish returns ErrManagerClosed afterwards;
// no further reconnect attempts are made.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.mu.Lock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.connected = false
		m.mu.Unlock()
	})
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			select {
			case <-m.done:
				return
			default:
			}
			m.mu.Lock()
			m.connected = false
			m.conn = nil
			m.mu.Unlock()
			m.logger.Warn("realtime connection lost", slog.Any("error", err))
			m.reconnect()
			return
		}
		m.dispatch(ev)
	}
}

func (m *Manager) dispatch(ev Event) {
	m.mu.RLock()
	matched := make([]Callback, 0, len(m.subs))
	for _, sub := range m.subs {
		if sub.matches(ev) {
			matched = append(matched, sub.cb)
		}
	}
	m.mu.RUnlock()

	for _, cb := range matched {
		cb(ev)
	}
}

func (m *Manager) reconnect() {
	for attempt := 1; attempt <= m.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-m.done:
			return
		case <-time.After(m.cfg.ReconnectDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DialTimeout)
		conn, err := m.dial(ctx)
		cancel()
		if err != nil {
			m.logger.Warn("reconnect attempt failed",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", m.cfg.MaxReconnectAttempts),
				slog.Any("error", err))
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.connected = true
		hook := m.onReconnect
		m.mu.Unlock()

		m.logger.Info("realtime connection restored", slog.Int("attempt", attempt))
		go m.readLoop(conn)
		if hook != nil {
			hook()
		}
		return
	}
	m.logger.Error("reconnect attempts exhausted, staying in local-only mode",
		slog.Int("attempts", m.cfg.MaxReconnectAttempts))
}
