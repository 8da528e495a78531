package hostlink

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

// Egress delivers outcome reports and notices to the host.
type Egress interface {
	Report(ctx context.Context, r gamedto.OutcomeReport) error
	Notify(ctx context.Context, n gamedto.Notice) error
}

const (
	TransportHTTP = "http"
	TransportWS   = "ws"
	TransportAuto = "auto"
)

// NewEgress picks a transport. Auto prefers the feed while connected and
// falls back to HTTP once per message.
func NewEgress(mode string, c *Client, feed *Feed, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case TransportWS:
		return &wsEgress{feed: feed}
	case TransportAuto:
		return &autoEgress{ws: &wsEgress{feed: feed}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) Report(ctx context.Context, r gamedto.OutcomeReport) error {
	if h.c == nil {
		return errors.New("http egress not configured")
	}
	return h.c.PostOutcome(ctx, r)
}

func (h *httpEgress) Notify(ctx context.Context, n gamedto.Notice) error {
	if h.c == nil {
		return errors.New("http egress not configured")
	}
	return h.c.PostNotice(ctx, n)
}

type wsEgress struct{ feed *Feed }

func (w *wsEgress) Report(ctx context.Context, r gamedto.OutcomeReport) error {
	if w.feed == nil {
		return ErrNotConnected
	}
	return w.feed.WriteJSON(ctx, gamedto.Frame{Type: "outcome", Report: &r})
}

func (w *wsEgress) Notify(ctx context.Context, n gamedto.Notice) error {
	if w.feed == nil {
		return ErrNotConnected
	}
	return w.feed.WriteJSON(ctx, gamedto.Frame{Type: "notice", Notice: &n})
}

func (w *wsEgress) ready() bool { return w.feed != nil && w.feed.Connected() }

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Report(ctx context.Context, r gamedto.OutcomeReport) error {
	if a.ws.ready() {
		err := a.ws.Report(ctx, r)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "outcome"), zap.String("game_id", r.GameID), zap.Error(err))
	}
	return a.http.Report(ctx, r)
}

func (a *autoEgress) Notify(ctx context.Context, n gamedto.Notice) error {
	if a.ws.ready() {
		err := a.ws.Notify(ctx, n)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "notice"), zap.String("game_id", n.GameID), zap.Error(err))
	}
	return a.http.Notify(ctx, n)
}
