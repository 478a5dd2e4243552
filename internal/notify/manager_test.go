package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/axora/taskdeck/internal/clock"
	"github.com/axora/taskdeck/internal/model"
)

// fakeBroker is an in-process push broker: it accepts websocket
// connections, records the subscribe frame, and lets tests publish
// message frames and observe connection lifecycle.
type fakeBroker struct {
	srv *httptest.Server

	mu     sync.Mutex
	dials  int
	reject bool
	conns  []*brokerConn
}

type brokerConn struct {
	conn   *websocket.Conn
	topic  string
	auth   string
	closed chan struct{}

	mu           sync.Mutex
	unsubscribed string
}

func (bc *brokerConn) unsubscribedTopic() string {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.unsubscribed
}

func newFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()

	b := &fakeBroker{}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBroker) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.dials++
	reject := b.reject
	b.mu.Unlock()

	if reject {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "no subscribe")
		return
	}
	var sub frame
	if err := json.Unmarshal(data, &sub); err != nil || sub.Type != frameSubscribe {
		conn.Close(websocket.StatusPolicyViolation, "bad subscribe")
		return
	}

	bc := &brokerConn{
		conn:   conn,
		topic:  sub.Destination,
		auth:   r.Header.Get("Authorization"),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	b.conns = append(b.conns, bc)
	b.mu.Unlock()

	// Block until the client goes away so closure is observable,
	// recording any unsubscribe along the way.
	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			close(bc.closed)
			return
		}
		var f frame
		if json.Unmarshal(data, &f) == nil && f.Type == frameUnsubscribe {
			bc.mu.Lock()
			bc.unsubscribed = f.Destination
			bc.mu.Unlock()
		}
	}
}

func (b *fakeBroker) wsURL() string {
	return strings.Replace(b.srv.URL, "http", "ws", 1)
}

func (b *fakeBroker) dialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

func (b *fakeBroker) setReject(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reject = reject
}

func (b *fakeBroker) connections() []*brokerConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*brokerConn, len(b.conns))
	copy(out, b.conns)
	return out
}

// publish sends a message frame on the most recent connection.
func (b *fakeBroker) publish(t *testing.T, destination string, body any) {
	t.Helper()

	conns := b.connections()
	if len(conns) == 0 {
		t.Fatal("publish with no connections")
	}
	bc := conns[len(conns)-1]

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	data, err := json.Marshal(frame{
		Type:        frameMessage,
		Destination: destination,
		Body:        payload,
	})
	if err != nil {
		t.Fatalf("marshaling frame: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bc.conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("publishing frame: %v", err)
	}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestManager(b *fakeBroker, clk clock.Clock) (*Manager, *Store) {
	store := NewStore()
	m := NewManager(ManagerConfig{
		WebSocketURL:   b.wsURL(),
		Heartbeat:      time.Minute,
		ReconnectDelay: 15 * time.Second,
		Clock:          clk,
	}, store)
	return m, store
}

func TestStartDeliversPushedNotifications(t *testing.T) {
	b := newFakeBroker(t)
	m, store := newTestManager(b, nil)
	defer m.Stop()

	m.Start(42, "token-42")
	waitFor(t, "connection", func() bool { return m.State() == StateConnected })

	conns := b.connections()
	if len(conns) != 1 {
		t.Fatalf("connections = %d, want 1", len(conns))
	}
	if conns[0].topic != "/user/42/notifications" {
		t.Errorf("subscribed topic = %q", conns[0].topic)
	}
	if conns[0].auth != "Bearer token-42" {
		t.Errorf("auth header = %q", conns[0].auth)
	}

	b.publish(t, "/user/42/notifications", makeNotification(1))
	waitFor(t, "notification in store", func() bool { return store.Len() == 1 })

	if got := store.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount = %d, want 1", got)
	}
}

func TestStartSameUserTwiceIsNoOp(t *testing.T) {
	b := newFakeBroker(t)
	m, store := newTestManager(b, nil)
	defer m.Stop()

	m.Start(42, "token")
	waitFor(t, "connection", func() bool { return m.State() == StateConnected })

	m.Start(42, "token")

	// Give a duplicate dial a moment to show up if one were coming.
	time.Sleep(50 * time.Millisecond)
	if got := b.dialCount(); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}

	// Exactly one subscription means a published message arrives once.
	b.publish(t, "/user/42/notifications", makeNotification(1))
	waitFor(t, "notification in store", func() bool { return store.Len() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := store.Len(); got != 1 {
		t.Fatalf("store has %d notifications, want 1", got)
	}
}

func TestStartNewUserClosesOldSubscriptionFirst(t *testing.T) {
	b := newFakeBroker(t)
	m, store := newTestManager(b, nil)
	defer m.Stop()

	m.Start(1, "token-a")
	waitFor(t, "first connection", func() bool { return m.State() == StateConnected })

	m.Start(2, "token-b")
	waitFor(t, "second connection", func() bool {
		return len(b.connections()) == 2 && m.State() == StateConnected
	})

	// The old subscription must be gone.
	select {
	case <-b.connections()[0].closed:
	case <-time.After(5 * time.Second):
		t.Fatal("first user's connection was not closed")
	}

	// A message addressed to the old user's topic must never reach
	// the store while subscribed as the new user.
	b.publish(t, "/user/1/notifications", makeNotification(5))
	time.Sleep(100 * time.Millisecond)
	if got := store.Len(); got != 0 {
		t.Fatalf("store has %d notifications from the old topic, want 0", got)
	}

	b.publish(t, "/user/2/notifications", makeNotification(6))
	waitFor(t, "new user's notification", func() bool { return store.Len() == 1 })
}

func TestReconnectWaitsForBackoffDelay(t *testing.T) {
	b := newFakeBroker(t)
	b.setReject(true)

	clk := clock.NewFake()
	m, _ := newTestManager(b, clk)
	defer m.Stop()

	m.Start(42, "token")
	waitFor(t, "error state", func() bool { return m.State() == StateError })

	if got := b.dialCount(); got != 1 {
		t.Fatalf("dials = %d before backoff elapsed, want 1", got)
	}

	// One second short of the delay: no reconnect yet.
	clk.Advance(14 * time.Second)
	time.Sleep(50 * time.Millisecond)
	if got := b.dialCount(); got != 1 {
		t.Fatalf("dials = %d before backoff elapsed, want 1", got)
	}

	// Crossing the delay fires exactly one attempt.
	b.setReject(false)
	clk.Advance(time.Second)
	waitFor(t, "reconnect dial", func() bool { return b.dialCount() == 2 })
	waitFor(t, "reconnected", func() bool { return m.State() == StateConnected })
}

func TestStopCancelsScheduledReconnect(t *testing.T) {
	b := newFakeBroker(t)
	b.setReject(true)

	clk := clock.NewFake()
	m, _ := newTestManager(b, clk)

	m.Start(42, "token")
	waitFor(t, "error state", func() bool { return m.State() == StateError })

	m.Stop()
	clk.Advance(time.Hour)
	time.Sleep(50 * time.Millisecond)

	if got := b.dialCount(); got != 1 {
		t.Fatalf("dials = %d after Stop, want 1", got)
	}
	if got := m.State(); got != StateIdle {
		t.Fatalf("state = %v after Stop, want idle", got)
	}
}

func TestStopIsIdempotentAndSafeBeforeStart(t *testing.T) {
	b := newFakeBroker(t)
	m, _ := newTestManager(b, nil)

	m.Stop()
	m.Stop()

	m.Start(42, "token")
	waitFor(t, "connection", func() bool { return m.State() == StateConnected })

	m.Stop()
	m.Stop()

	if got := m.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	select {
	case <-b.connections()[0].closed:
	case <-time.After(5 * time.Second):
		t.Fatal("connection not closed by Stop")
	}
}

func TestMalformedPayloadIsDroppedConnectionSurvives(t *testing.T) {
	b := newFakeBroker(t)
	m, store := newTestManager(b, nil)
	defer m.Stop()

	m.Start(42, "token")
	waitFor(t, "connection", func() bool { return m.State() == StateConnected })

	// Raw garbage, a frame with a broken body, and an unknown type tag.
	conns := b.connections()
	ctx := context.Background()
	if err := conns[0].conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	b.publish(t, "/user/42/notifications", map[string]any{"id": 1, "type": "NOT_A_TYPE", "taskId": 9})

	waitFor(t, "dropped payloads", func() bool { return m.DroppedPayloads() >= 1 })

	if got := store.Len(); got != 0 {
		t.Fatalf("store has %d notifications after malformed payloads, want 0", got)
	}
	if got := store.UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount = %d, want 0", got)
	}
	if got := m.State(); got != StateConnected {
		t.Fatalf("state = %v after malformed payload, want connected", got)
	}

	// The connection still works.
	b.publish(t, "/user/42/notifications", makeNotification(2))
	waitFor(t, "valid notification", func() bool { return store.Len() == 1 })
}

func TestBackgroundDefersConnection(t *testing.T) {
	b := newFakeBroker(t)
	m, _ := newTestManager(b, nil)
	defer m.Stop()

	m.SetForeground(false)
	m.Start(42, "token")

	time.Sleep(50 * time.Millisecond)
	if got := b.dialCount(); got != 0 {
		t.Fatalf("dials = %d while backgrounded, want 0", got)
	}

	m.SetForeground(true)
	waitFor(t, "deferred connection", func() bool { return m.State() == StateConnected })
}

func TestMessageEventEmitted(t *testing.T) {
	b := newFakeBroker(t)
	m, _ := newTestManager(b, nil)
	defer m.Stop()

	m.Start(42, "token")
	waitFor(t, "connection", func() bool { return m.State() == StateConnected })

	b.publish(t, "/user/42/notifications", makeNotification(7))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case e := <-m.Events():
			if e.Kind == EventNotification {
				if e.Notification.ID != 7 {
					t.Fatalf("event notification ID = %d, want 7", e.Notification.ID)
				}
				return
			}
		case <-deadline:
			t.Fatal("no notification event received")
		}
	}
}

func TestStopSendsUnsubscribeFrame(t *testing.T) {
	b := newFakeBroker(t)
	m, _ := newTestManager(b, nil)

	m.Start(42, "token")
	waitFor(t, "connection", func() bool { return m.State() == StateConnected })

	m.Stop()

	bc := b.connections()[0]
	select {
	case <-bc.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("connection not closed by Stop")
	}
	if got := bc.unsubscribedTopic(); got != "/user/42/notifications" {
		t.Fatalf("unsubscribe destination = %q, want /user/42/notifications", got)
	}
}

func TestDeliverRejectsSupersededSubscription(t *testing.T) {
	store := NewStore()
	m := NewManager(ManagerConfig{WebSocketURL: "ws://unused"}, store)

	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()

	if !m.deliver(gen, makeNotification(1)) {
		t.Fatal("deliver on the current subscription reported superseded")
	}
	if got := store.Len(); got != 1 {
		t.Fatalf("store.Len() = %d, want 1", got)
	}

	// Simulate a logout that lands between the frame read and its
	// delivery: the subscription turns over and the store is wiped.
	m.mu.Lock()
	m.generation++
	m.mu.Unlock()
	store.Clear()

	if m.deliver(gen, makeNotification(2)) {
		t.Fatal("deliver on a superseded subscription reported current")
	}
	if got := store.Len(); got != 0 {
		t.Fatalf("store.Len() = %d after superseded delivery, want 0", got)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	payload, _ := json.Marshal(makeNotification(3))
	f := frame{
		Type:        frameMessage,
		Destination: fmt.Sprintf("/user/%d/notifications", 42),
		Body:        payload,
	}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshaling frame: %v", err)
	}

	var got frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshaling frame: %v", err)
	}
	n, err := model.DecodeNotification(got.Body)
	if err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if n.ID != 3 {
		t.Fatalf("ID = %d, want 3", n.ID)
	}
}
