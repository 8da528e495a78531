package hostlink

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/anikeaty08/linera-game/internal/obslog"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// EnvelopeHandler is invoked sequentially for every envelope read.
type EnvelopeHandler func(ctx context.Context, env gamedto.Envelope)

var ErrNotConnected = errors.New("hostlink websocket not connected")

// Feed is the inbound action stream. It reconnects with backoff and pings
// to detect dead peers.
type Feed struct {
	url     string
	headers HeaderProvider
	handler EnvelopeHandler

	mu      sync.RWMutex
	conn    *websocket.Conn
	state   State
	onState func(State)

	writeMu sync.Mutex

	maxReconnect int
	pingInterval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type FeedOption func(*Feed)

func WithReconnect(max int) FeedOption { return func(f *Feed) { f.maxReconnect = max } }

func WithPingInterval(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.pingInterval = d
		}
	}
}

func WithFeedHeaders(h HeaderProvider) FeedOption { return func(f *Feed) { f.headers = h } }

func WithStateListener(cb func(State)) FeedOption { return func(f *Feed) { f.onState = cb } }

func NewFeed(url string, handler EnvelopeHandler, opts ...FeedOption) *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		url:          url,
		handler:      handler,
		state:        StateDisconnected,
		maxReconnect: 10,
		pingInterval: 30 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Feed) Connected() bool { return f.State() == StateConnected }

func (f *Feed) Connect(ctx context.Context) error {
	switch f.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	f.setState(StateConnecting)
	if err := f.dial(ctx); err != nil {
		f.setState(StateFailed)
		f.reconnect()
		return err
	}
	return nil
}

func (f *Feed) dial(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, f.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      f.buildHeaders(),
	})
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.setState(StateConnected)

	f.wg.Add(2)
	go f.listen(conn)
	go f.pingLoop(conn)
	return nil
}

func (f *Feed) listen(conn *websocket.Conn) {
	defer f.wg.Done()
	for {
		var env gamedto.Envelope
		if err := wsjson.Read(f.ctx, conn, &env); err != nil {
			if f.stopping() {
				return
			}
			obslog.L().Warn("hostlink_ws_read_error", zap.Error(err))
			f.drop(conn, "read failure")
			return
		}
		if f.handler != nil {
			f.handler(f.ctx, env)
		}
	}
}

func (f *Feed) pingLoop(conn *websocket.Conn) {
	defer f.wg.Done()
	t := time.NewTicker(f.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-t.C:
		}
		f.mu.RLock()
		current := f.conn == conn
		f.mu.RUnlock()
		if !current {
			return
		}
		pctx, cancel := context.WithTimeout(f.ctx, 3*time.Second)
		err := conn.Ping(pctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		failures++
		if failures >= 2 {
			if !f.stopping() {
				f.drop(conn, "ping failure")
			}
			return
		}
	}
}

// drop closes conn if it is still current and schedules a reconnect.
func (f *Feed) drop(conn *websocket.Conn, reason string) {
	f.mu.Lock()
	if f.conn != conn {
		f.mu.Unlock()
		return
	}
	f.conn = nil
	f.mu.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	f.setState(StateDisconnected)
	f.reconnect()
}

func (f *Feed) reconnect() {
	if f.maxReconnect <= 0 || f.stopping() {
		return
	}
	f.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= f.maxReconnect; attempt++ {
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(backoff(attempt)):
			}
			if err := f.dial(f.ctx); err == nil {
				return
			}
		}
		f.setState(StateFailed)
	}()
}

// WriteJSON sends v on the live connection. Writes are serialized.
func (f *Feed) WriteJSON(ctx context.Context, v any) error {
	f.mu.RLock()
	conn, state := f.conn, f.state
	f.mu.RUnlock()
	if conn == nil || state != StateConnected {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return wsjson.Write(ctx, conn, v)
}

func (f *Feed) Close(ctx context.Context) error {
	f.stopOnce.Do(f.cancel)
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		f.setState(StateDisconnected)
		return nil
	}
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	f.state = s
	cb := f.onState
	f.mu.Unlock()
	obslog.L().Debug("hostlink_ws_state", zap.String("state", string(s)))
	if cb != nil {
		cb(s)
	}
}

func (f *Feed) stopping() bool { return f.ctx.Err() != nil }

func (f *Feed) buildHeaders() http.Header {
	hdr := http.Header{}
	if f.headers == nil {
		return hdr
	}
	for k, v := range f.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			hdr.Set(k, v)
		}
	}
	return hdr
}
