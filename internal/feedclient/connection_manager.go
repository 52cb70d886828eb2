package feedclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
	"github.com/mastermhp/Live-Baz-sub000/internal/realtime"
)

// ErrSubscriptionStale is reported to listeners once the reconnect budget
// is spent. The manager stays down until it is started again.
var ErrSubscriptionStale = errors.New("feedclient: subscription stale")

type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateStale
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateStale:
		return "stale"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Listener receives decoded events and state transitions. Callbacks run on
// the manager's read goroutine and must not block.
type Listener interface {
	HandleEvent(event realtime.Event)
	HandleState(state ConnectionState, err error)
}

type ManagerConfig struct {
	URL          string
	Header       http.Header
	Backoff      resilience.Backoff
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *logging.Logger
}

// ConnectionManager owns the single websocket connection shared by every
// view. Topic joins are reference counted and replayed after a reconnect.
type ConnectionManager struct {
	cfg    ManagerConfig
	dialer *websocket.Dialer
	logger *logging.Logger
	state  atomic.Int32

	mu        sync.Mutex
	conn      *websocket.Conn
	listeners map[int]Listener
	nextID    int
	topics    map[string]int
	cancel    context.CancelFunc
	done      chan struct{}

	writeMu sync.Mutex
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewConnectionManager(cfg ManagerConfig) *ConnectionManager {
	cfg.Backoff = cfg.Backoff.Normalize()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &ConnectionManager{
		cfg:       cfg,
		dialer:    &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		logger:    logger.With("component", "feedclient.connection"),
		listeners: make(map[int]Listener),
		topics:    make(map[string]int),
		sleep:     sleepContext,
	}
}

func (m *ConnectionManager) State() ConnectionState {
	return ConnectionState(m.state.Load())
}

// AddListener registers l and returns the function that removes it.
func (m *ConnectionManager) AddListener(l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// Join adds a reference to topic. Only the first reference is sent to the
// server; later ones are local.
func (m *ConnectionManager) Join(topic string) error {
	if !realtime.ValidTopic(topic) {
		return fmt.Errorf("feedclient: invalid topic %q", topic)
	}
	m.mu.Lock()
	m.topics[topic]++
	first := m.topics[topic] == 1
	conn := m.conn
	m.mu.Unlock()

	if first && conn != nil {
		return m.writeControl(conn, realtime.ControlJoin, topic)
	}
	return nil
}

func (m *ConnectionManager) Leave(topic string) error {
	m.mu.Lock()
	count, ok := m.topics[topic]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	last := count <= 1
	if last {
		delete(m.topics, topic)
	} else {
		m.topics[topic] = count - 1
	}
	conn := m.conn
	m.mu.Unlock()

	if last && conn != nil {
		return m.writeControl(conn, realtime.ControlLeave, topic)
	}
	return nil
}

// Start dials in the background. Calling Start on a running manager is a
// no-op.
func (m *ConnectionManager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		m.run(runCtx)
	}()
}

func (m *ConnectionManager) Close() {
	m.mu.Lock()
	cancel, done, conn := m.cancel, m.done, m.conn
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
}

func (m *ConnectionManager) run(ctx context.Context) {
	attempt := 0
	m.setState(StateConnecting, nil)
	for {
		conn, err := m.dial(ctx)
		if err == nil {
			attempt = 0
			err = m.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			m.setState(StateClosed, nil)
			return
		}

		attempt++
		if m.cfg.Backoff.Exhausted(attempt) {
			m.logger.Warn("reconnect attempts exhausted", "attempts", attempt-1, "error", err)
			m.setState(StateStale, ErrSubscriptionStale)
			m.mu.Lock()
			cancel := m.cancel
			m.cancel = nil
			m.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			return
		}

		delay := m.cfg.Backoff.Delay(attempt)
		m.logger.Info("websocket reconnecting", "attempt", attempt, "delay", delay.String(), "error", err)
		m.setState(StateReconnecting, err)
		if err := m.sleep(ctx, delay); err != nil {
			m.setState(StateClosed, nil)
			return
		}
	}
}

func (m *ConnectionManager) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()

	conn, resp, err := m.dialer.DialContext(dialCtx, m.cfg.URL, m.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", m.cfg.URL, err)
	}
	return conn, nil
}

// serve replays topic joins and reads until the connection fails.
func (m *ConnectionManager) serve(ctx context.Context, conn *websocket.Conn) error {
	m.mu.Lock()
	m.conn = conn
	topics := make([]string, 0, len(m.topics))
	for topic := range m.topics {
		topics = append(topics, topic)
	}
	m.mu.Unlock()
	sort.Strings(topics)

	defer func() {
		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()
		_ = conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for _, topic := range topics {
		if err := m.writeControl(conn, realtime.ControlJoin, topic); err != nil {
			return err
		}
	}
	m.setState(StateConnected, nil)
	m.logger.Info("websocket connected", "url", m.cfg.URL, "topics", len(topics))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var event realtime.Event
		if err := sonic.Unmarshal(payload, &event); err != nil || event.Kind == "" {
			m.logger.Debug("dropping undecodable frame", "bytes", len(payload))
			continue
		}
		for _, l := range m.snapshotListeners() {
			l.HandleEvent(event)
		}
	}
}

func (m *ConnectionManager) writeControl(conn *websocket.Conn, kind, topic string) error {
	payload, err := sonic.Marshal(realtime.ControlMessage{Type: kind, Topic: topic})
	if err != nil {
		return fmt.Errorf("encode control message: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write %s %s: %w", kind, topic, err)
	}
	return nil
}

func (m *ConnectionManager) setState(state ConnectionState, err error) {
	m.state.Store(int32(state))
	for _, l := range m.snapshotListeners() {
		l.HandleState(state, err)
	}
}

func (m *ConnectionManager) snapshotListeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.listeners[id])
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
