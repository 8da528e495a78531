package hostlink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/lobby"
	"github.com/anikeaty08/linera-game/internal/msgcat"
	"github.com/anikeaty08/linera-game/internal/obslog"
	"github.com/anikeaty08/linera-game/internal/stats"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

// Games is the slice of the orchestrator the router needs.
type Games interface {
	Apply(ctx context.Context, actor, gameID string, act game.Action, now uint64) (domain.Outcome, bool)
	Get(ctx context.Context, gameID string) (*game.Record, error)
	Create(ctx context.Context, p game.CreateParams) (*game.Record, error)
	Join(ctx context.Context, gameID, actor, name string, now uint64) (*game.Record, error)
	Cancel(ctx context.Context, gameID, actor string, now uint64) error
	ListForActor(ctx context.Context, actor string) ([]*game.Record, error)
}

// Lobbies is the slice of the lobby manager the router needs.
type Lobbies interface {
	Create(ctx context.Context, p lobby.CreateParams) (*lobby.Lobby, error)
	Join(ctx context.Context, lobbyID, actor, name string, password *string, now uint64) (*lobby.JoinResult, error)
	Cancel(ctx context.Context, lobbyID, actor string) error
	Get(ctx context.Context, lobbyID string) (*lobby.Lobby, error)
	ListOpen(ctx context.Context, now uint64) ([]*lobby.Lobby, error)
}

// StatsBook is the slice of the stats service the router needs.
type StatsBook interface {
	RecordBotGame(ctx context.Context, player, name string, kind game.Kind, won bool, at time.Time) error
	Stats(ctx context.Context, player string) (*stats.PlayerStats, error)
	Leaderboard(ctx context.Context, limit int) ([]stats.LeaderboardEntry, error)
}

// Router turns envelopes into orchestrator calls and reports the result.
type Router struct {
	games   Games
	lobbies Lobbies
	stats   StatsBook
	egress  Egress
	catalog *msgcat.Catalog
}

type RouterOption func(*Router)

func WithLobbies(l Lobbies) RouterOption { return func(r *Router) { r.lobbies = l } }

func WithStats(s StatsBook) RouterOption { return func(r *Router) { r.stats = s } }

func NewRouter(games Games, egress Egress, catalog *msgcat.Catalog, opts ...RouterOption) *Router {
	r := &Router{games: games, egress: egress, catalog: catalog}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handle matches EnvelopeHandler.
func (r *Router) Handle(ctx context.Context, env gamedto.Envelope) {
	rep := r.Route(ctx, env)
	if err := r.egress.Report(ctx, rep); err != nil {
		obslog.L().Warn("hostlink_report_error", zap.String("request_id", rep.RequestID), zap.String("game_id", rep.GameID), zap.Error(err))
	}
}

// Route applies one envelope and builds its report. Undecodable actions
// are reported as not applied, the same as rejected ones.
func (r *Router) Route(ctx context.Context, env gamedto.Envelope) gamedto.OutcomeReport {
	if env.RequestID == "" {
		env.RequestID = uuid.NewString()
	}
	if env.Command != nil {
		return r.command(ctx, env)
	}
	rep := gamedto.OutcomeReport{
		RequestID: env.RequestID,
		GameID:    env.GameID,
		Outcome:   domain.OutcomeInProgress.String(),
		At:        env.Timestamp,
	}
	act, err := game.ParseAction(env.Action)
	if err != nil {
		obslog.L().Debug("hostlink_bad_action", zap.String("request_id", env.RequestID), zap.Error(err))
		return rep
	}
	out, applied := r.games.Apply(ctx, env.Actor, env.GameID, act, env.Timestamp)
	rep.Applied = applied
	rep.Outcome = out.Kind.String()
	if out.Kind == domain.OutcomeWinner {
		w := int(out.Winner)
		rep.Winner = &w
	}
	if !applied {
		return rep
	}
	rec, err := r.games.Get(ctx, env.GameID)
	if err != nil {
		return rep
	}
	rep.Status = string(rec.Status)
	if out.Terminal() {
		r.announce(ctx, rec, out, env.Timestamp)
	}
	return rep
}

func (r *Router) announce(ctx context.Context, rec *game.Record, out domain.Outcome, at uint64) {
	if r.catalog == nil {
		return
	}
	data := map[string]string{"Game": rec.ID, "Kind": string(rec.Kind)}
	key := "outcome.draw"
	if out.Kind == domain.OutcomeWinner {
		data["Winner"] = seatLabel(rec, out.Winner)
		data["Loser"] = seatLabel(rec, out.Winner.Other())
		key = "outcome.winner"
		if rec.Status == game.StatusTimedOut {
			key = "outcome.timeout"
		}
	}
	text, err := r.catalog.Render(key, data)
	if err != nil {
		obslog.L().Warn("hostlink_notice_render_error", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.egress.Notify(ctx, gamedto.Notice{GameID: rec.ID, Text: text, At: at}); err != nil {
		obslog.L().Warn("hostlink_notice_error", zap.String("game_id", rec.ID), zap.Error(err))
	}
}

func seatLabel(rec *game.Record, s domain.Seat) string {
	if name := rec.Names[s]; name != "" {
		return name
	}
	return rec.Seats[s]
}
