package stats

import (
	"time"

	"github.com/anikeaty08/linera-game/internal/game"
)

const (
	DefaultRating = 1200
	MinRating     = 100
	kFactor       = 24
)

// PlayerStats is the running record of one actor across all games.
type PlayerStats struct {
	Player          string
	Name            string
	TotalGames      uint32
	ChessWins       uint32
	ChessLosses     uint32
	ChessDraws      uint32
	PokerWins       uint32
	PokerLosses     uint32
	PokerDraws      uint32
	BlackjackWins   uint32
	BlackjackLosses uint32
	BlackjackPushes uint32
	// CurrentStreak counts consecutive wins when positive, losses when negative.
	CurrentStreak int32
	BestStreak    uint32
	ChessRating   int
	UpdatedAt     time.Time
}

func newPlayerStats(player, name string) *PlayerStats {
	return &PlayerStats{Player: player, Name: name, ChessRating: DefaultRating}
}

func (p *PlayerStats) Wins() uint32 { return p.ChessWins + p.PokerWins + p.BlackjackWins }

func (p *PlayerStats) Losses() uint32 { return p.ChessLosses + p.PokerLosses + p.BlackjackLosses }

// WinRate is a percentage in [0, 100].
func (p *PlayerStats) WinRate() float64 {
	if p.TotalGames == 0 {
		return 0
	}
	return float64(p.Wins()) / float64(p.TotalGames) * 100
}

func (p *PlayerStats) RecordWin(k game.Kind) {
	switch k {
	case game.KindChess:
		p.ChessWins++
	case game.KindPoker:
		p.PokerWins++
	case game.KindBlackjack:
		p.BlackjackWins++
	}
	p.TotalGames++
	if p.CurrentStreak >= 0 {
		p.CurrentStreak++
	} else {
		p.CurrentStreak = 1
	}
	if p.CurrentStreak > int32(p.BestStreak) {
		p.BestStreak = uint32(p.CurrentStreak)
	}
}

func (p *PlayerStats) RecordLoss(k game.Kind) {
	switch k {
	case game.KindChess:
		p.ChessLosses++
	case game.KindPoker:
		p.PokerLosses++
	case game.KindBlackjack:
		p.BlackjackLosses++
	}
	p.TotalGames++
	if p.CurrentStreak <= 0 {
		p.CurrentStreak--
	} else {
		p.CurrentStreak = -1
	}
}

func (p *PlayerStats) RecordDraw(k game.Kind) {
	switch k {
	case game.KindChess:
		p.ChessDraws++
	case game.KindPoker:
		p.PokerDraws++
	case game.KindBlackjack:
		p.BlackjackPushes++
	}
	p.TotalGames++
	p.CurrentStreak = 0
}

func (p *PlayerStats) AdjustRating(delta int) {
	p.ChessRating += delta
	if p.ChessRating < MinRating {
		p.ChessRating = MinRating
	}
}

// GameResult is the persisted summary of a finished game.
type GameResult struct {
	ID      string
	GameID  string
	Kind    game.Kind
	Mode    game.Mode
	Status  game.Status
	Seats   [2]string
	Names   [2]string
	Result  string // "one", "two" or "draw"
	EndedAt time.Time
}

type LeaderboardEntry struct {
	Rank  int
	Stats *PlayerStats
}
