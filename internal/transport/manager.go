package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/signstream/internal/fsm"
)

// ErrNotConnected is returned by Send outside the connected state.
var ErrNotConnected = errors.New("recognizer not connected")

const (
	DefaultReconnectDelay = 3 * time.Second
	MinReconnectDelay     = 100 * time.Millisecond
	DefaultDialTimeout    = 5 * time.Second
)

// Listener receives connection lifecycle callbacks from a single goroutine.
// Callbacks must not call Manager.Close.
type Listener interface {
	OnOpen(connID string)
	OnMessage(payload string)
	OnClose(err error)
}

type noopListener struct{}

func (noopListener) OnOpen(string)    {}
func (noopListener) OnMessage(string) {}
func (noopListener) OnClose(error)    {}

// Options configures the manager.
type Options struct {
	Endpoint       string
	ReconnectDelay time.Duration
	// MaxReconnectDelay enables doubling backoff when greater than ReconnectDelay.
	MaxReconnectDelay time.Duration
	DialTimeout       time.Duration
}

// Status is a point-in-time view of the manager.
type Status struct {
	State       fsm.State
	Endpoint    string
	ConnID      string
	Retries     int
	LastError   string
	ConnectedAt time.Time
}

// Manager keeps at most one live connection and reconnects after drops.
type Manager struct {
	dialer   Dialer
	listener Listener
	opts     Options
	logger   *slog.Logger
	inbox    *inbox

	mu          sync.Mutex
	state       fsm.State
	conn        Conn
	connID      string
	connectedAt time.Time
	gen         uint64
	retries     int
	lastErr     error
	timer       *time.Timer
	dialCancel  context.CancelFunc
	stopped     bool
	closed      bool

	closeOnce sync.Once
}

// NewManager constructs a disconnected manager.
func NewManager(dialer Dialer, listener Listener, opts Options, logger *slog.Logger) *Manager {
	if dialer == nil {
		dialer = WebSocketDialer{}
	}
	if listener == nil {
		listener = noopListener{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	m := &Manager{
		dialer:   dialer,
		listener: listener,
		opts:     opts,
		logger:   logger,
		state:    fsm.StateDisconnected,
	}
	m.inbox = newInbox(m.deliver)
	return m
}

// Connect starts a dial unless a connection is already open or in progress.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.stopped = false
	m.connectLocked()
}

// Stop tears down the live connection and cancels any pending reconnect.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	m.gen++
	conn := m.conn
	m.conn = nil
	m.connID = ""
	if m.state.Live() {
		m.transitionLocked(fsm.EventClose)
		m.transitionLocked(fsm.EventClosed)
	}
	m.mu.Unlock()

	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		m.logger.Debug("recognizer close failed", "error", err.Error())
	}
	m.logger.Info("recognizer connection stopped", "endpoint", m.opts.Endpoint)
	m.inbox.push(event{kind: eventClose})
}

// Close stops the manager permanently and drains pending callbacks.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.Stop()
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		m.inbox.close()
	})
}

// Send writes one payload on the live connection.
func (m *Manager) Send(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == fsm.StateConnected
	m.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}
	if err := conn.Send(ctx, payload); err != nil {
		return fmt.Errorf("send to recognizer: %w", err)
	}
	return nil
}

// Connected reports whether frames can be sent right now.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == fsm.StateConnected && m.conn != nil
}

// State returns the current lifecycle state.
func (m *Manager) State() fsm.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot for status reporting.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := Status{
		State:       m.state,
		Endpoint:    m.opts.Endpoint,
		ConnID:      m.connID,
		Retries:     m.retries,
		ConnectedAt: m.connectedAt,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	return status
}

// connectLocked dials unless a connection is live. m.mu must be held.
func (m *Manager) connectLocked() {
	if m.state.Live() {
		return
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if !m.transitionLocked(fsm.EventDial) {
		return
	}

	m.gen++
	gen := m.gen
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.DialTimeout)
	m.dialCancel = cancel
	m.logger.Debug("recognizer dialing", "endpoint", m.opts.Endpoint, "attempt", m.retries+1)

	go m.dial(ctx, cancel, gen)
}

func (m *Manager) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	conn, err := m.dialer.Dial(ctx, m.opts.Endpoint)

	m.mu.Lock()
	if gen != m.gen || m.state != fsm.StateConnecting {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	m.dialCancel = nil
	if err != nil {
		m.mu.Unlock()
		m.handleClosed(gen, err)
		return
	}

	m.transitionLocked(fsm.EventOpen)
	m.conn = conn
	m.connID = uuid.NewString()
	m.connectedAt = time.Now()
	m.retries = 0
	m.lastErr = nil
	connID := m.connID
	m.mu.Unlock()

	m.logger.Info("recognizer connected", "endpoint", m.opts.Endpoint, "conn_id", connID)
	m.inbox.push(event{kind: eventOpen, connID: connID})
	go m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		payload, err := conn.Receive()
		if err != nil {
			m.handleClosed(gen, err)
			return
		}
		m.inbox.push(event{kind: eventMessage, payload: payload})
	}
}

// handleClosed retires generation gen and schedules one reconnect.
func (m *Manager) handleClosed(gen uint64, cause error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}

	m.gen++
	conn := m.conn
	m.conn = nil
	m.connID = ""
	if isCleanClose(cause) {
		m.transitionLocked(fsm.EventClosed)
	} else {
		m.lastErr = cause
		m.transitionLocked(fsm.EventFail)
		m.transitionLocked(fsm.EventReset)
	}

	var delay time.Duration
	if !m.stopped && !m.closed {
		m.retries++
		delay = m.backoffLocked()
		next := m.gen
		m.timer = time.AfterFunc(delay, func() { m.reconnect(next) })
	}
	retries := m.retries
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	fields := []any{"endpoint", m.opts.Endpoint, "retries", retries, "reconnect_in_ms", delay.Milliseconds()}
	if cause != nil && !isCleanClose(cause) {
		m.logger.Warn("recognizer connection lost", append(fields, "error", cause.Error())...)
	} else {
		m.logger.Info("recognizer connection closed", fields...)
	}
	m.inbox.push(event{kind: eventClose, err: cause})
}

func (m *Manager) reconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.stopped || m.closed || m.state != fsm.StateDisconnected {
		return
	}
	m.timer = nil
	m.connectLocked()
}

// backoffLocked returns the delay before the next attempt. m.mu must be held.
func (m *Manager) backoffLocked() time.Duration {
	delay := m.opts.ReconnectDelay
	if maxDelay := m.opts.MaxReconnectDelay; maxDelay > delay {
		for i := 1; i < m.retries && delay < maxDelay; i++ {
			delay *= 2
		}
		delay = min(delay, maxDelay)
	}
	return max(delay, MinReconnectDelay)
}

// transitionLocked applies event and reports whether it was valid. m.mu must be held.
func (m *Manager) transitionLocked(event fsm.Event) bool {
	next, err := fsm.Transition(m.state, event)
	if err != nil {
		m.logger.Debug("recognizer state transition rejected", "state", m.state, "event", event, "error", err.Error())
		return false
	}
	m.state = next
	return true
}

// deliver runs on the inbox goroutine.
func (m *Manager) deliver(ev event) {
	switch ev.kind {
	case eventOpen:
		m.listener.OnOpen(ev.connID)
	case eventMessage:
		m.listener.OnMessage(ev.payload)
	case eventClose:
		m.listener.OnClose(ev.err)
	}
}
