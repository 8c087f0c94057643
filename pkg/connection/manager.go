// Package connection owns the push channel to the remote service: it
// connects, keeps the channel alive with heartbeats, reconnects with
// exponential backoff and feeds decoded events into an EventSink.
package connection

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/livesync/pkg/models"
	"github.com/grovetools/livesync/pkg/timer"
	"github.com/sirupsen/logrus"
)

// DefaultHeartbeatInterval is the period of the client "ping" frame.
const DefaultHeartbeatInterval = 25 * time.Second

// heartbeatFrame is the literal text sent as a keep-alive.
var heartbeatFrame = []byte("ping")

// Status is the lifecycle phase of the push channel.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

// State is a snapshot of the channel lifecycle.
type State struct {
	Status              Status    `json:"status"`
	ReconnectAttempt    int       `json:"reconnect_attempt"`
	LastHeartbeatSentAt time.Time `json:"last_heartbeat_sent_at,omitempty"`
	// GaveUp is set once automatic reconnection is exhausted. Only a manual
	// Connect tries again.
	GaveUp bool   `json:"gave_up"`
	URL    string `json:"url,omitempty"`
}

// EventSink receives decoded push events. *store.Store implements it.
type EventSink interface {
	ApplyMonitorEvent(ev models.MonitorEvent)
	ApplyTaskUpdate(id string, patch models.TaskPatch)
	ApplyStatusSnapshot(patch models.StatusPatch)
	SetConnected(connected bool)
}

// Options configure a Manager. Location and Sink are required.
type Options struct {
	Location          LocationResolver
	Sink              EventSink
	Dialer            Dialer
	Policy            ReconnectPolicy
	HeartbeatInterval time.Duration
	Scheduler         timer.Scheduler
	Logger            *logrus.Entry
	Now               func() time.Time
}

type eventKind int

const (
	dialSucceeded eventKind = iota
	messageReceived
	channelClosed
	reconnectDue
)

func (k eventKind) String() string {
	switch k {
	case dialSucceeded:
		return "dialSucceeded"
	case messageReceived:
		return "messageReceived"
	case channelClosed:
		return "channelClosed"
	case reconnectDue:
		return "reconnectDue"
	}
	return "unknown"
}

// event is one input to the state machine. session ties it to the dial
// that produced it; events from an abandoned session are dropped.
type event struct {
	kind    eventKind
	session uint64
	conn    Conn
	frame   []byte
	err     error
}

// Manager drives the push channel state machine. All transitions go through
// dispatch under mu.
type Manager struct {
	location  LocationResolver
	sink      EventSink
	dialer    Dialer
	policy    ReconnectPolicy
	heartbeat time.Duration
	scheduler timer.Scheduler
	logger    *logrus.Entry
	now       func() time.Time

	// writeMu serializes frame writes; the socket allows one writer.
	writeMu sync.Mutex

	mu             sync.Mutex
	state          State
	session        uint64
	conn           Conn
	dialCancel     context.CancelFunc
	reconnectTimer timer.Timer
	heartbeatTimer timer.Timer
	baseCtx        context.Context
	started        bool
	closed         bool
}

// NewManager creates a Manager in the closed state.
func NewManager(opts Options) *Manager {
	if opts.Dialer == nil {
		opts.Dialer = WebsocketDialer{}
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timer.Real
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = logrus.NewEntry(l)
	}

	return &Manager{
		location:  opts.Location,
		sink:      opts.Sink,
		dialer:    opts.Dialer,
		policy:    opts.Policy.withDefaults(),
		heartbeat: opts.HeartbeatInterval,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
		now:       opts.Now,
		state:     State{Status: StatusClosed},
		baseCtx:   context.Background(),
	}
}

// Start begins the heartbeat ticker and connects. The manager is closed
// when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.baseCtx = ctx
	m.scheduleHeartbeatLocked()
	m.connectLocked()
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.Close()
	}()
}

// Close disconnects and stops the heartbeat. The manager cannot be reused.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.disconnectLocked()
	m.closed = true
	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
		m.heartbeatTimer = nil
	}
}

// Connect opens the channel unless it is already open or connecting.
// The dial runs asynchronously; failures feed the reconnect schedule.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.state.GaveUp = false
	m.connectLocked()
}

// Disconnect closes the channel, cancels any pending reconnect and resets
// the attempt counter. It is idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked()
}

// SendHeartbeat writes a ping frame if the channel is open and does
// nothing otherwise.
func (m *Manager) SendHeartbeat() {
	m.mu.Lock()
	conn := m.conn
	if m.state.Status != StatusOpen || conn == nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, heartbeatFrame)
	m.writeMu.Unlock()
	if err != nil {
		// The reader observes the broken channel and drives the close.
		m.logger.WithError(err).Debug("Heartbeat write failed")
		return
	}

	m.mu.Lock()
	m.state.LastHeartbeatSentAt = m.now()
	m.mu.Unlock()
}

// State returns a snapshot of the connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) connectLocked() {
	if m.state.Status == StatusOpen || m.state.Status == StatusConnecting {
		return
	}
	url, err := m.location.Resolve()
	if err != nil {
		m.logger.WithError(err).Error("Cannot resolve push channel location")
		return
	}

	m.stopReconnectLocked()
	m.session++
	session := m.session
	ctx, cancel := context.WithCancel(m.baseCtx)
	m.dialCancel = cancel
	m.state.Status = StatusConnecting
	m.state.URL = url

	m.logger.WithFields(logrus.Fields{
		"url":     url,
		"attempt": m.state.ReconnectAttempt,
	}).Debug("Connecting")

	go func() {
		conn, err := m.dialer.Dial(ctx, url)
		if err != nil {
			m.dispatch(event{kind: channelClosed, session: session, err: err})
			return
		}
		m.dispatch(event{kind: dialSucceeded, session: session, conn: conn})
	}()
}

func (m *Manager) disconnectLocked() {
	m.session++
	m.stopReconnectLocked()
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	wasConnected := m.state.Status == StatusOpen
	m.state.Status = StatusClosed
	m.state.ReconnectAttempt = 0
	m.state.GaveUp = false
	if wasConnected {
		m.logger.Info("Disconnected")
		m.sink.SetConnected(false)
	}
}

// dispatch applies one event to the state machine.
func (m *Manager) dispatch(ev event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.session != m.session || m.closed {
		if ev.kind == dialSucceeded && ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}

	switch ev.kind {
	case dialSucceeded:
		m.onOpenLocked(ev.conn)
	case messageReceived:
		m.handleFrame(ev.frame)
	case channelClosed:
		m.onCloseLocked(ev.err)
	case reconnectDue:
		m.reconnectTimer = nil
		if m.state.Status == StatusClosed {
			m.connectLocked()
		}
	}
}

func (m *Manager) onOpenLocked(conn Conn) {
	m.conn = conn
	m.dialCancel = nil
	m.state.Status = StatusOpen
	m.state.ReconnectAttempt = 0
	m.state.GaveUp = false
	m.logger.WithField("url", m.state.URL).Info("Push channel open")
	m.sink.SetConnected(true)

	session := m.session
	go m.readLoop(session, conn)
}

func (m *Manager) readLoop(session uint64, conn Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			m.dispatch(event{kind: channelClosed, session: session, err: err})
			return
		}
		m.dispatch(event{kind: messageReceived, session: session, frame: frame})
	}
}

func (m *Manager) onCloseLocked(err error) {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.dialCancel = nil
	wasOpen := m.state.Status == StatusOpen
	m.state.Status = StatusClosed

	entry := m.logger.WithField("attempt", m.state.ReconnectAttempt)
	if err != nil {
		entry = entry.WithError(err)
	}
	switch {
	case wasOpen && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		entry.Warn("Push channel closed unexpectedly")
	case wasOpen:
		entry.Info("Push channel closed")
	default:
		entry.Debug("Push channel dial failed")
	}

	m.sink.SetConnected(false)
	m.scheduleReconnectLocked()
}

func (m *Manager) scheduleReconnectLocked() {
	if m.state.ReconnectAttempt >= m.policy.MaxAttempts {
		if !m.state.GaveUp {
			m.state.GaveUp = true
			m.logger.WithField("attempts", m.state.ReconnectAttempt).
				Warn("Giving up on push channel; reconnect manually")
		}
		return
	}

	delay := m.policy.Delay(m.state.ReconnectAttempt)
	m.state.ReconnectAttempt++
	session := m.session
	m.reconnectTimer = m.scheduler.AfterFunc(delay, func() {
		m.dispatch(event{kind: reconnectDue, session: session})
	})
	m.logger.WithFields(logrus.Fields{
		"delay":   delay,
		"attempt": m.state.ReconnectAttempt,
	}).Debug("Reconnect scheduled")
}

func (m *Manager) stopReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// scheduleHeartbeatLocked arms the next tick. The ticker runs whatever the
// channel state; SendHeartbeat skips closed channels.
func (m *Manager) scheduleHeartbeatLocked() {
	m.heartbeatTimer = m.scheduler.AfterFunc(m.heartbeat, func() {
		m.SendHeartbeat()
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.closed {
			m.scheduleHeartbeatLocked()
		}
	})
}

// handleFrame decodes one frame and forwards it to the sink. Malformed
// frames are dropped; the channel stays up.
func (m *Manager) handleFrame(frame []byte) {
	ev, err := models.ParseSyncEvent(frame)
	if err != nil {
		m.logger.WithError(err).WithField("size", len(frame)).Warn("Discarding malformed message")
		return
	}

	log := m.logger.WithField("type", ev.Kind)
	switch ev.Kind {
	case models.KindHeartbeat:
	case models.KindMonitorEvent:
		me, err := ev.MonitorEvent()
		if err != nil {
			log.WithError(err).Warn("Discarding malformed message")
			return
		}
		m.sink.ApplyMonitorEvent(me)
	case models.KindTaskUpdate:
		update, err := ev.TaskUpdate()
		if err != nil {
			log.WithError(err).Warn("Discarding malformed message")
			return
		}
		m.sink.ApplyTaskUpdate(update.TaskID, update.TaskPatch)
	case models.KindStatusUpdate:
		patch, err := ev.StatusPatch()
		if err != nil {
			log.WithError(err).Warn("Discarding malformed message")
			return
		}
		m.sink.ApplyStatusSnapshot(patch)
	default:
		log.Debug("Ignoring unknown message type")
	}
}
