package hostlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/lobby"
	"github.com/anikeaty08/linera-game/internal/obslog"
	"github.com/anikeaty08/linera-game/internal/stats"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

const defaultLeaderboardLimit = 10

var (
	ErrUnknownCommand = errors.New("unknown_command")
	ErrUnsupported    = errors.New("command_unsupported")
	ErrMissingField   = errors.New("missing_field")
)

// command runs one non-action request. Failures are reported with
// Applied false and the error code in Error.
func (r *Router) command(ctx context.Context, env gamedto.Envelope) gamedto.OutcomeReport {
	cmd := *env.Command
	rep := gamedto.OutcomeReport{
		RequestID: env.RequestID,
		GameID:    env.GameID,
		At:        env.Timestamp,
		Command:   cmd.Type,
	}
	if err := r.runCommand(ctx, env, cmd, &rep); err != nil {
		obslog.L().Debug("hostlink_command_error",
			zap.String("request_id", env.RequestID),
			zap.String("command", cmd.Type),
			zap.String("actor", env.Actor),
			zap.Error(err),
		)
		rep.Applied = false
		rep.Error = err.Error()
		return rep
	}
	rep.Applied = true
	return rep
}

func (r *Router) runCommand(ctx context.Context, env gamedto.Envelope, cmd gamedto.Command, rep *gamedto.OutcomeReport) error {
	switch cmd.Type {
	case gamedto.CmdCreateGame:
		rec, err := r.games.Create(ctx, game.CreateParams{
			ID:           env.GameID,
			Kind:         game.Kind(cmd.Kind),
			Mode:         game.Mode(cmd.Mode),
			Creator:      env.Actor,
			CreatorName:  cmd.Name,
			Opponent:     cmd.Opponent,
			OpponentName: cmd.OpponentName,
			Now:          env.Timestamp,
		})
		if err != nil {
			return err
		}
		setGame(rep, rec)
	case gamedto.CmdJoinGame:
		rec, err := r.games.Join(ctx, env.GameID, env.Actor, cmd.Name, env.Timestamp)
		if err != nil {
			return err
		}
		setGame(rep, rec)
	case gamedto.CmdCancelGame:
		if err := r.games.Cancel(ctx, env.GameID, env.Actor, env.Timestamp); err != nil {
			return err
		}
		rec, err := r.games.Get(ctx, env.GameID)
		if err != nil {
			return err
		}
		setGame(rep, rec)
		r.notice(ctx, rec.ID, "outcome.cancelled", map[string]string{"Game": rec.ID, "Kind": string(rec.Kind)}, env.Timestamp)
	case gamedto.CmdListGames:
		recs, err := r.games.ListForActor(ctx, env.Actor)
		if err != nil {
			return err
		}
		rep.Games = make([]gamedto.GameView, 0, len(recs))
		for _, rec := range recs {
			rep.Games = append(rep.Games, gameView(rec))
		}

	case gamedto.CmdCreateLobby:
		if r.lobbies == nil {
			return ErrUnsupported
		}
		l, err := r.lobbies.Create(ctx, lobby.CreateParams{
			Creator:        env.Actor,
			CreatorName:    cmd.Name,
			Kind:           game.Kind(cmd.Kind),
			Public:         cmd.Public,
			Password:       cmd.Password,
			TimeControlSec: cmd.TimeControlSec,
			Now:            env.Timestamp,
		})
		if err != nil {
			return err
		}
		v := lobbyView(l)
		rep.Lobby = &v
	case gamedto.CmdJoinLobby:
		if r.lobbies == nil {
			return ErrUnsupported
		}
		if cmd.LobbyID == "" {
			return fmt.Errorf("%w: lobby_id", ErrMissingField)
		}
		res, err := r.lobbies.Join(ctx, cmd.LobbyID, env.Actor, cmd.Name, cmd.Password, env.Timestamp)
		if err != nil {
			return err
		}
		v := lobbyView(res.Lobby)
		rep.Lobby = &v
		setGame(rep, res.Game)
		r.notice(ctx, res.Game.ID, "lobby.started", map[string]string{"Lobby": res.Lobby.ID, "Game": res.Game.ID}, env.Timestamp)
	case gamedto.CmdCancelLobby:
		if r.lobbies == nil {
			return ErrUnsupported
		}
		if cmd.LobbyID == "" {
			return fmt.Errorf("%w: lobby_id", ErrMissingField)
		}
		if err := r.lobbies.Cancel(ctx, cmd.LobbyID, env.Actor); err != nil {
			return err
		}
		l, err := r.lobbies.Get(ctx, cmd.LobbyID)
		if err != nil {
			return err
		}
		v := lobbyView(l)
		rep.Lobby = &v
		r.notice(ctx, "", "lobby.cancelled", map[string]string{"Lobby": l.ID}, env.Timestamp)
	case gamedto.CmdListLobbies:
		if r.lobbies == nil {
			return ErrUnsupported
		}
		open, err := r.lobbies.ListOpen(ctx, env.Timestamp)
		if err != nil {
			return err
		}
		rep.Lobbies = make([]gamedto.LobbyView, 0, len(open))
		for _, l := range open {
			rep.Lobbies = append(rep.Lobbies, lobbyView(l))
		}

	case gamedto.CmdRecordBotGame:
		if r.stats == nil {
			return ErrUnsupported
		}
		if cmd.Won == nil {
			return fmt.Errorf("%w: won", ErrMissingField)
		}
		at := time.UnixMicro(int64(env.Timestamp)).UTC()
		if err := r.stats.RecordBotGame(ctx, env.Actor, cmd.Name, game.Kind(cmd.Kind), *cmd.Won, at); err != nil {
			return err
		}
		p, err := r.stats.Stats(ctx, env.Actor)
		if err != nil {
			return err
		}
		v := statsView(p)
		rep.Stats = &v
	case gamedto.CmdPlayerStats:
		if r.stats == nil {
			return ErrUnsupported
		}
		player := cmd.Player
		if player == "" {
			player = env.Actor
		}
		p, err := r.stats.Stats(ctx, player)
		if err != nil {
			return err
		}
		v := statsView(p)
		rep.Stats = &v
	case gamedto.CmdLeaderboard:
		if r.stats == nil {
			return ErrUnsupported
		}
		limit := cmd.Limit
		if limit <= 0 {
			limit = defaultLeaderboardLimit
		}
		entries, err := r.stats.Leaderboard(ctx, limit)
		if err != nil {
			return err
		}
		rep.Leaderboard = make([]gamedto.LeaderboardRow, 0, len(entries))
		for _, e := range entries {
			rep.Leaderboard = append(rep.Leaderboard, gamedto.LeaderboardRow{Rank: e.Rank, Stats: statsView(e.Stats)})
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return nil
}

func (r *Router) notice(ctx context.Context, gameID, key string, data map[string]string, at uint64) {
	if r.catalog == nil {
		return
	}
	text, err := r.catalog.Render(key, data)
	if err != nil {
		obslog.L().Warn("hostlink_notice_render_error", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.egress.Notify(ctx, gamedto.Notice{GameID: gameID, Text: text, At: at}); err != nil {
		obslog.L().Warn("hostlink_notice_error", zap.String("game_id", gameID), zap.Error(err))
	}
}

func setGame(rep *gamedto.OutcomeReport, rec *game.Record) {
	v := gameView(rec)
	rep.Game = &v
	rep.GameID = rec.ID
	rep.Status = string(rec.Status)
	rep.Winner = v.Winner
	switch rec.Status {
	case game.StatusCompleted, game.StatusTimedOut:
		if rec.Winner != nil {
			rep.Outcome = domain.OutcomeWinner.String()
		} else {
			rep.Outcome = domain.OutcomeDraw.String()
		}
	case game.StatusWaiting, game.StatusInProgress:
		rep.Outcome = domain.OutcomeInProgress.String()
	}
}

func gameView(rec *game.Record) gamedto.GameView {
	v := gamedto.GameView{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Mode:      string(rec.Mode),
		Status:    string(rec.Status),
		Seats:     rec.Seats,
		Names:     rec.Names,
		TimeLeft:  rec.Clock.TimeLeft,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.Winner != nil {
		w := int(*rec.Winner)
		v.Winner = &w
	}
	return v
}

func lobbyView(l *lobby.Lobby) gamedto.LobbyView {
	return gamedto.LobbyView{
		ID:             l.ID,
		Creator:        l.Creator,
		CreatorName:    l.CreatorName,
		Kind:           string(l.Kind),
		Status:         string(l.Status),
		Public:         l.Public,
		HasPassword:    l.PasswordHash != "",
		TimeControlSec: l.TimeControlSec,
		CreatedAt:      l.CreatedAt,
		ExpiresAt:      l.ExpiresAt,
		Players:        append([]string(nil), l.Players...),
		GameID:         l.GameID,
	}
}

func statsView(p *stats.PlayerStats) gamedto.StatsView {
	return gamedto.StatsView{
		Player:        p.Player,
		Name:          p.Name,
		TotalGames:    p.TotalGames,
		Wins:          p.Wins(),
		Losses:        p.Losses(),
		Draws:         p.ChessDraws + p.PokerDraws + p.BlackjackPushes,
		WinRate:       p.WinRate(),
		CurrentStreak: p.CurrentStreak,
		BestStreak:    p.BestStreak,
		ChessRating:   p.ChessRating,
	}
}
