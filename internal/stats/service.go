package stats

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/obslog"
)

type Repository interface {
	// GetStats returns nil, nil for an unknown player.
	GetStats(ctx context.Context, player string) (*PlayerStats, error)
	UpsertStats(ctx context.Context, s *PlayerStats) error
	ListStats(ctx context.Context) ([]*PlayerStats, error)
	SaveResult(ctx context.Context, r *GameResult) error
}

// Service keeps win/loss bookkeeping for finished games.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// RecordResult implements game.ResultRecorder. Bot and local games do not
// count toward player stats.
func (s *Service) RecordResult(ctx context.Context, f game.Finished) error {
	if f.Mode == game.ModeVsBot || f.Mode == game.ModeLocal || f.Seats[0] == f.Seats[1] {
		obslog.L().Debug("stats_skip", zap.String("game_id", f.GameID), zap.String("mode", string(f.Mode)))
		return nil
	}
	at := microsToTime(f.At)
	one, err := s.load(ctx, f.Seats[0], f.Names[0])
	if err != nil {
		return err
	}
	two, err := s.load(ctx, f.Seats[1], f.Names[1])
	if err != nil {
		return err
	}

	result := "draw"
	switch f.Outcome.Kind {
	case domain.OutcomeWinner:
		winner, loser := one, two
		result = "one"
		if f.Outcome.Winner == domain.SeatTwo {
			winner, loser = two, one
			result = "two"
		}
		if f.Kind == game.KindChess {
			rateChess(winner, loser, 1)
		}
		winner.RecordWin(f.Kind)
		loser.RecordLoss(f.Kind)
	case domain.OutcomeDraw:
		if f.Kind == game.KindChess {
			rateChess(one, two, 0.5)
		}
		one.RecordDraw(f.Kind)
		two.RecordDraw(f.Kind)
	default:
		return fmt.Errorf("game %s finished without a result", f.GameID)
	}

	for _, p := range []*PlayerStats{one, two} {
		p.UpdatedAt = at
		if err := s.repo.UpsertStats(ctx, p); err != nil {
			return fmt.Errorf("upsert stats %s: %w", p.Player, err)
		}
	}
	if err := s.repo.SaveResult(ctx, &GameResult{
		ID:      uuid.NewString(),
		GameID:  f.GameID,
		Kind:    f.Kind,
		Mode:    f.Mode,
		Status:  f.Status,
		Seats:   f.Seats,
		Names:   f.Names,
		Result:  result,
		EndedAt: at,
	}); err != nil {
		return fmt.Errorf("save result %s: %w", f.GameID, err)
	}
	obslog.L().Info("stats_result_persist",
		zap.String("game_id", f.GameID),
		zap.String("kind", string(f.Kind)),
		zap.String("result", result),
	)
	return nil
}

// RecordBotGame credits a game played against the house outside a record.
func (s *Service) RecordBotGame(ctx context.Context, player, name string, kind game.Kind, won bool, at time.Time) error {
	if strings.TrimSpace(player) == "" {
		return game.ErrUnauthenticated
	}
	if _, ok := game.ParseKind(string(kind)); !ok {
		return fmt.Errorf("unknown game kind %q", kind)
	}
	p, err := s.load(ctx, player, name)
	if err != nil {
		return err
	}
	if won {
		p.RecordWin(kind)
	} else {
		p.RecordLoss(kind)
	}
	p.UpdatedAt = at
	return s.repo.UpsertStats(ctx, p)
}

func (s *Service) Stats(ctx context.Context, player string) (*PlayerStats, error) {
	return s.load(ctx, player, "")
}

// Leaderboard orders players by win rate then games played.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	all, err := s.repo.ListStats(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		wi, wj := all[i].WinRate(), all[j].WinRate()
		if wi != wj {
			return wi > wj
		}
		if all[i].TotalGames != all[j].TotalGames {
			return all[i].TotalGames > all[j].TotalGames
		}
		return all[i].Player < all[j].Player
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]LeaderboardEntry, len(all))
	for i, p := range all {
		out[i] = LeaderboardEntry{Rank: i + 1, Stats: p}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, player, name string) (*PlayerStats, error) {
	p, err := s.repo.GetStats(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("get stats %s: %w", player, err)
	}
	if p == nil {
		p = newPlayerStats(player, name)
	}
	if strings.TrimSpace(name) != "" {
		p.Name = name
	}
	return p, nil
}

// rateChess applies an Elo update; score is a's result (1 win, 0.5 draw).
func rateChess(a, b *PlayerStats, score float64) {
	expected := 1 / (1 + math.Pow(10, float64(b.ChessRating-a.ChessRating)/400))
	delta := int(math.Round(kFactor * (score - expected)))
	a.AdjustRating(delta)
	b.AdjustRating(-delta)
}

func microsToTime(us uint64) time.Time {
	if us == 0 {
		return time.Now().UTC()
	}
	return time.UnixMicro(int64(us)).UTC()
}
