package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/axora/taskdeck/internal/clock"
	"github.com/axora/taskdeck/internal/model"
)

// dialTimeout bounds a single connection attempt.
const dialTimeout = 30 * time.Second

// ManagerConfig holds the transport settings for the connection
// manager.
type ManagerConfig struct {
	// WebSocketURL is the broker endpoint (ws:// or wss://).
	WebSocketURL string

	// Heartbeat is the keep-alive ping interval. A ping that gets no
	// pong within one interval trips the error path, so a silently
	// dead network path is detected within about two intervals.
	Heartbeat time.Duration

	// ReconnectDelay is how long to wait before the single scheduled
	// reconnect attempt after a transport failure.
	ReconnectDelay time.Duration

	// Clock drives the reconnect timer and heartbeat ticker. Nil
	// means the real time package.
	Clock clock.Clock

	// Logger receives debug records for dropped payloads and
	// lifecycle transitions. Nil discards them.
	Logger *slog.Logger
}

// Manager owns the single persistent push connection and the one
// subscription per signed-in user. It writes inbound notifications to
// the Store and reports lifecycle transitions and new notifications
// on its event channel.
//
// All transport failures are contained here: they schedule exactly
// one reconnect attempt and never crash the process or surface to the
// user beyond the connection state indicator.
type Manager struct {
	cfg    ManagerConfig
	clk    clock.Clock
	store  *Store
	logger *slog.Logger
	events chan Event

	mu         sync.Mutex
	state      State
	userID     int64
	token      string
	foreground bool
	pending    bool
	generation int
	subID      string
	conn       *websocket.Conn
	cancel     context.CancelFunc
	reconnect  clock.Timer
	dropped    int
}

// NewManager creates a connection manager writing to store. The
// manager starts idle and in the foreground; nothing connects until
// Start.
func NewManager(cfg ManagerConfig, store *Store) *Manager {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 20 * time.Second
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 15 * time.Second
	}

	return &Manager{
		cfg:        cfg,
		clk:        clk,
		store:      store,
		logger:     logger,
		events:     make(chan Event, 16),
		state:      StateIdle,
		foreground: true,
	}
}

// Events returns the channel carrying notification and state events.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// State returns the current connection lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// DroppedPayloads reports how many inbound payloads failed to decode
// and were discarded since the manager was created.
func (m *Manager) DroppedPayloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Start establishes the subscription for the given user. It is
// idempotent: calling it again for the same user while the connection
// is live (or a reconnect is scheduled) is a no-op. Calling it for a
// different user tears the existing subscription down completely
// before dialing for the new identity, so messages published to the
// old user's topic can never reach the store afterwards.
//
// Start never blocks on connection establishment; progress is
// observable through State and the event channel. While the
// application is backgrounded the dial is deferred until the next
// foreground transition.
func (m *Manager) Start(userID int64, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.userID == userID && m.activeLocked() {
		return
	}

	m.teardownLocked()
	m.userID = userID
	m.token = token

	if !m.foreground {
		m.pending = true
		return
	}

	m.connectLocked()
}

// Stop unsubscribes and deactivates the connection, and cancels any
// scheduled reconnect. Safe to call at any time, including before the
// first Start and repeatedly.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIdle && m.reconnect == nil && m.conn == nil {
		m.userID = 0
		m.token = ""
		m.pending = false
		return
	}

	m.setStateLocked(StateDisconnecting)
	m.teardownLocked()
	m.userID = 0
	m.token = ""
	m.pending = false
	m.setStateLocked(StateIdle)
}

// SetForeground feeds the externally supplied visibility signal. The
// manager never initiates a connection while backgrounded, but it
// leaves an already-established connection alone; a session requested
// (or a reconnect due) during background runs on the transition back
// to the foreground.
func (m *Manager) SetForeground(fg bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.foreground = fg
	if fg && m.pending && m.userID != 0 {
		m.pending = false
		m.connectLocked()
	}
}

// activeLocked reports whether a connection is live, being
// established, or due for a scheduled/deferred reconnect.
func (m *Manager) activeLocked() bool {
	return m.state == StateConnecting ||
		m.state == StateConnected ||
		m.reconnect != nil ||
		m.pending
}

// teardownLocked cancels the reconnect timer, the run goroutine, and
// the live connection, and invalidates every goroutine of the current
// generation.
func (m *Manager) teardownLocked() {
	m.generation++

	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	if m.conn != nil {
		// Best effort; closing the connection drops the subscription
		// on the broker side regardless.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = writeFrame(ctx, m.conn, frame{
			Type:        frameUnsubscribe,
			ID:          m.subID,
			Destination: fmt.Sprintf("/user/%d/notifications", m.userID),
		})
		cancel()
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		m.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
		m.conn = nil
	}
}

// connectLocked launches the dial/read goroutine for the current
// identity under a fresh generation.
func (m *Manager) connectLocked() {
	gen := m.generation
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.subID = uuid.NewString()
	m.setStateLocked(StateConnecting)

	go m.run(ctx, gen, m.userID, m.token, m.subID)
}

// run dials the broker, subscribes to the user topic, and processes
// inbound frames until the connection dies or is superseded.
func (m *Manager) run(ctx context.Context, gen int, userID int64, token, subID string) {
	conn, err := m.dial(ctx, token)
	if err != nil {
		m.connectionFailed(gen, fmt.Errorf("dialing broker: %w", err))
		return
	}

	topic := fmt.Sprintf("/user/%d/notifications", userID)
	sub := frame{
		Type:        frameSubscribe,
		ID:          subID,
		Destination: topic,
	}
	if err := writeFrame(ctx, conn, sub); err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		m.connectionFailed(gen, fmt.Errorf("subscribing to %s: %w", topic, err))
		return
	}

	m.mu.Lock()
	if m.generation != gen {
		// Superseded while dialing; the new owner has its own conn.
		m.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "superseded")
		return
	}
	m.conn = conn
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.logger.Debug("push connection established", "topic", topic)
	go m.heartbeat(ctx, gen, conn)
	m.readLoop(ctx, gen, conn, topic)
}

// dial opens the websocket with the bearer credential in the connect
// headers.
func (m *Manager) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.Dial(dialCtx, m.cfg.WebSocketURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// readLoop delivers inbound message frames to the store, one at a
// time in arrival order. Malformed payloads are counted and dropped
// without disturbing the connection.
func (m *Manager) readLoop(ctx context.Context, gen int, conn *websocket.Conn, topic string) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			m.connectionFailed(gen, fmt.Errorf("reading push frame: %w", err))
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			m.dropPayload(fmt.Errorf("parsing frame: %w", err))
			continue
		}
		if f.Type != frameMessage || f.Destination != topic {
			continue
		}

		n, err := model.DecodeNotification(f.Body)
		if err != nil {
			m.dropPayload(err)
			continue
		}

		if !m.deliver(gen, n) {
			return
		}
	}
}

// deliver writes a decoded notification to the store and emits the
// event, holding the lock across the generation check so a Start or
// Stop that supersedes the subscription cannot interleave between the
// check and the store write. Reports whether the subscription is
// still current.
func (m *Manager) deliver(gen int, n model.Notification) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		// This message belongs to a closed subscription.
		return false
	}
	m.store.Add(n)
	m.emit(Event{Kind: EventNotification, Notification: n})
	return true
}

// heartbeat sends keep-alive pings until the connection context ends.
// Ping waits for the pong, so a dead path on either direction fails
// the ping and closes the connection, which surfaces as a read error
// and enters the reconnect path.
func (m *Manager) heartbeat(ctx context.Context, gen int, conn *websocket.Conn) {
	ticks, stop := m.clk.NewTicker(m.cfg.Heartbeat)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			pingCtx, cancel := context.WithTimeout(ctx, m.cfg.Heartbeat)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				m.logger.Debug("heartbeat failed", "error", err)
				conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
		}
	}
}

// connectionFailed moves the manager to the error state and schedules
// exactly one reconnect attempt after the configured delay, unless
// this goroutine has been superseded by a newer Start or Stop.
func (m *Manager) connectionFailed(gen int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		return
	}

	m.logger.Debug("push connection lost", "error", err)
	m.conn = nil
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.setStateLocked(StateError)

	m.reconnect = m.clk.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.generation != gen || m.reconnect == nil {
			return
		}
		m.reconnect = nil

		if !m.foreground {
			// Reconnect came due while backgrounded; defer it to
			// the next foreground transition.
			m.pending = true
			return
		}
		m.connectLocked()
	})
}

// dropPayload records a malformed inbound payload. The connection
// stays up; the counter and debug log are the observability signal
// for silent message loss.
func (m *Manager) dropPayload(err error) {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
	m.logger.Debug("dropped malformed push payload", "error", err)
}

// setStateLocked updates the lifecycle state and emits a state event.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.emit(Event{Kind: EventStateChanged, State: s})
}

// emit delivers an event without ever blocking message processing.
func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

// writeFrame marshals and sends a frame on the connection.
func writeFrame(ctx context.Context, conn *websocket.Conn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
