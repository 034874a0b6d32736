package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"trade_desk/internal/domain"
	"trade_desk/internal/event"
	"trade_desk/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	// DefaultReconnectDelay is the fixed wait between reconnect attempts
	DefaultReconnectDelay = 3 * time.Second

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	pingInterval     = 30 * time.Second
	readTimeout      = 60 * time.Second
)

// SessionConfig describes the feed endpoint
type SessionConfig struct {
	URL            string
	Symbol         string // Subscribed on every open when set
	ReconnectDelay time.Duration
	Header         http.Header
}

type subscribeRequest struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// Session owns one feed socket and keeps it open until Stop.
// It is the only writer of the socket. Frames and state changes are
// delivered to the inbox in arrival order.
type Session struct {
	cfg     SessionConfig
	inbox   chan<- event.Event
	metrics *infra.Metrics
	logger  *slog.Logger
	dialer  websocket.Dialer

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	state   atomic.Int32

	lifeMu  sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSession creates an idle session. metrics may be nil.
func NewSession(cfg SessionConfig, inbox chan<- event.Event, metrics *infra.Metrics) *Session {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Session{
		cfg:     cfg,
		inbox:   inbox,
		metrics: metrics,
		logger:  slog.Default().With("module", "feed_session"),
		dialer:  websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment},
	}
}

// Start launches the connection loop. It returns immediately.
func (s *Session) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.closed {
		return domain.ErrClosed
	}
	if s.started {
		return domain.ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.connectionLoop(ctx)
	return nil
}

// Stop closes the socket and cancels any pending reconnect.
// After Stop returns no further dial is attempted and no event is emitted.
func (s *Session) Stop() {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.lifeMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.closeConnection()
	s.wg.Wait()
	s.state.Store(int32(event.StateClosed))
	s.logger.Info("Feed session stopped")
}

// State returns the current lifecycle state
func (s *Session) State() event.ConnectionState {
	return event.ConnectionState(s.state.Load())
}

// IsConnected returns connection status
func (s *Session) IsConnected() bool {
	return s.State() == event.StateConnected
}

func (s *Session) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.closeConnection()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Feed session panic recovered", slog.Any("panic", r))
		}
	}()

	for {
		// Cancellation is checked before every attempt.
		if ctx.Err() != nil {
			return
		}

		s.setState(ctx, event.StateConnecting)
		if err := s.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.metrics.RecordError()
			s.logger.Warn("Feed connection failed", slog.Any("error", err), slog.Duration("retry_in", s.cfg.ReconnectDelay))
		} else {
			s.readLoop(ctx)
			if ctx.Err() != nil {
				return
			}
		}

		s.setState(ctx, event.StateDisconnected)
		s.metrics.RecordReconnect()

		timer := time.NewTimer(s.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Session) connect(ctx context.Context) error {
	header := s.cfg.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("User-Agent", infra.DefaultUserAgent)

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		return domain.NewNetworkError("dial", fmt.Errorf("%w: %v", domain.ErrConnectionFailed, err))
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.metrics.IncrementConnections()

	s.setState(ctx, event.StateConnected)

	if err := s.subscribe(); err != nil {
		s.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	s.logger.Info("Feed connected", slog.String("url", s.cfg.URL), slog.String("symbol", s.cfg.Symbol))
	return nil
}

func (s *Session) subscribe() error {
	if s.cfg.Symbol == "" {
		return nil
	}
	b, err := json.Marshal(subscribeRequest{Type: "subscribe", Symbol: domain.NormalizeSymbol(s.cfg.Symbol)})
	if err != nil {
		return err
	}
	return s.threadSafeWrite(websocket.TextMessage, b)
}

// threadSafeWrite sends a message to the WebSocket connection in a thread-safe manner
func (s *Session) threadSafeWrite(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection is nil")
	}

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}

func (s *Session) readLoop(ctx context.Context) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	s.wg.Add(1)
	go s.pingLoop(conn, done)

	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Feed read error", slog.Any("error", err))
			}
			s.closeConnection()
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		s.metrics.RecordFrame()
		s.emit(ctx, &event.FrameEvent{Raw: message})
	}
}

func (s *Session) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// WriteControl is safe alongside other writers.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (s *Session) setState(ctx context.Context, st event.ConnectionState) {
	if ctx.Err() != nil {
		return
	}
	s.state.Store(int32(st))
	s.emit(ctx, &event.ConnectionEvent{State: st})
}

// emit blocks until the sequencer takes ev or the session is cancelled.
func (s *Session) emit(ctx context.Context, ev event.Event) {
	if s.inbox == nil || ctx.Err() != nil {
		return
	}
	select {
	case s.inbox <- ev:
	case <-ctx.Done():
	}
}

// closeConnection safely closes the WebSocket connection
func (s *Session) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.metrics.DecrementConnections()
	}
}
