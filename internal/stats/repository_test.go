package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anikeaty08/linera-game/internal/domain"
	"github.com/anikeaty08/linera-game/internal/game"
)

func newSQLiteRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := Open("sqlite:" + filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	got, err := repo.GetStats(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, got)

	p := newPlayerStats("alice", "Alice")
	p.RecordWin(game.KindChess)
	p.RecordLoss(game.KindPoker)
	p.AdjustRating(-40)
	p.UpdatedAt = time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, repo.UpsertStats(ctx, p))

	p.RecordDraw(game.KindBlackjack)
	require.NoError(t, repo.UpsertStats(ctx, p))

	got, err = repo.GetStats(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)
	require.EqualValues(t, 3, got.TotalGames)
	require.EqualValues(t, 1, got.ChessWins)
	require.EqualValues(t, 1, got.PokerLosses)
	require.EqualValues(t, 1, got.BlackjackPushes)
	require.EqualValues(t, 0, got.CurrentStreak)
	require.Equal(t, DefaultRating-40, got.ChessRating)
	require.True(t, got.UpdatedAt.Equal(p.UpdatedAt))

	all, err := repo.ListStats(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSQLiteServiceFlow(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newSQLiteRepo(t))
	f := game.Finished{
		GameID:  "g1",
		Kind:    game.KindChess,
		Mode:    game.ModeVsFriend,
		Status:  game.StatusCompleted,
		Seats:   [2]string{"alice", "bob"},
		Outcome: domain.WinnerIs(domain.SeatTwo),
		At:      1_700_000_000_000_000,
	}
	require.NoError(t, svc.RecordResult(ctx, f))
	// a replayed result row is ignored by the unique game id
	require.NoError(t, svc.repo.SaveResult(ctx, &GameResult{ID: "other", GameID: "g1", Kind: game.KindChess, Result: "two", EndedAt: time.Now()}))

	board, err := svc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	require.Equal(t, "bob", board[0].Stats.Player)
	require.Equal(t, 1, board[0].Rank)
	require.Equal(t, DefaultRating+12, board[0].Stats.ChessRating)
	require.Equal(t, -1, int(board[1].Stats.CurrentStreak))
}

func TestOpenRejectsEmpty(t *testing.T) {
	_, err := Open("sqlite:")
	require.Error(t, err)
	_, err = NewPostgresRepository(" ")
	require.Error(t, err)
}
