package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS player_stats (
  player_id        TEXT PRIMARY KEY,
  player_name      TEXT NOT NULL DEFAULT '',
  total_games      INTEGER NOT NULL DEFAULT 0,
  chess_wins       INTEGER NOT NULL DEFAULT 0,
  chess_losses     INTEGER NOT NULL DEFAULT 0,
  chess_draws      INTEGER NOT NULL DEFAULT 0,
  poker_wins       INTEGER NOT NULL DEFAULT 0,
  poker_losses     INTEGER NOT NULL DEFAULT 0,
  poker_draws      INTEGER NOT NULL DEFAULT 0,
  blackjack_wins   INTEGER NOT NULL DEFAULT 0,
  blackjack_losses INTEGER NOT NULL DEFAULT 0,
  blackjack_pushes INTEGER NOT NULL DEFAULT 0,
  current_streak   INTEGER NOT NULL DEFAULT 0,
  best_streak      INTEGER NOT NULL DEFAULT 0,
  chess_rating     INTEGER NOT NULL DEFAULT 1200,
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS game_results (
  result_id  TEXT PRIMARY KEY,
  game_id    TEXT UNIQUE NOT NULL,
  kind       TEXT NOT NULL,
  mode       TEXT NOT NULL,
  status     TEXT NOT NULL,
  seat_one   TEXT NOT NULL,
  seat_two   TEXT NOT NULL,
  name_one   TEXT NOT NULL DEFAULT '',
  name_two   TEXT NOT NULL DEFAULT '',
  result     TEXT NOT NULL,
  ended_at   TIMESTAMPTZ NOT NULL
);`

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS player_stats (
  player_id        TEXT PRIMARY KEY,
  player_name      TEXT NOT NULL DEFAULT '',
  total_games      INTEGER NOT NULL DEFAULT 0,
  chess_wins       INTEGER NOT NULL DEFAULT 0,
  chess_losses     INTEGER NOT NULL DEFAULT 0,
  chess_draws      INTEGER NOT NULL DEFAULT 0,
  poker_wins       INTEGER NOT NULL DEFAULT 0,
  poker_losses     INTEGER NOT NULL DEFAULT 0,
  poker_draws      INTEGER NOT NULL DEFAULT 0,
  blackjack_wins   INTEGER NOT NULL DEFAULT 0,
  blackjack_losses INTEGER NOT NULL DEFAULT 0,
  blackjack_pushes INTEGER NOT NULL DEFAULT 0,
  current_streak   INTEGER NOT NULL DEFAULT 0,
  best_streak      INTEGER NOT NULL DEFAULT 0,
  chess_rating     INTEGER NOT NULL DEFAULT 1200,
  updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS game_results (
  result_id  TEXT PRIMARY KEY,
  game_id    TEXT UNIQUE NOT NULL,
  kind       TEXT NOT NULL,
  mode       TEXT NOT NULL,
  status     TEXT NOT NULL,
  seat_one   TEXT NOT NULL,
  seat_two   TEXT NOT NULL,
  name_one   TEXT NOT NULL DEFAULT '',
  name_two   TEXT NOT NULL DEFAULT '',
  result     TEXT NOT NULL,
  ended_at   TIMESTAMP NOT NULL
)`,
}

const statsColumns = `player_id, player_name, total_games,
  chess_wins, chess_losses, chess_draws,
  poker_wins, poker_losses, poker_draws,
  blackjack_wins, blackjack_losses, blackjack_pushes,
  current_streak, best_streak, chess_rating, updated_at`

// SQLRepository stores stats and results in Postgres or SQLite. Both
// dialects accept the same $n placeholders and ON CONFLICT upserts.
type SQLRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*SQLRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLRepository{db: db}, nil
}

// NewSQLiteRepository opens (or creates) a single-file database for
// deployments without Postgres.
func NewSQLiteRepository(path string) (*SQLRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path+"?mode=rwc&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, q := range sqliteSchema {
		if _, err := db.ExecContext(ctx, q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &SQLRepository{db: db}, nil
}

// Open picks a backend from the URL: sqlite:<path> or a Postgres DSN.
func Open(databaseURL string) (*SQLRepository, error) {
	if p, ok := strings.CutPrefix(strings.TrimSpace(databaseURL), "sqlite:"); ok {
		return NewSQLiteRepository(p)
	}
	return NewPostgresRepository(databaseURL)
}

func (r *SQLRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStats(row rowScanner) (*PlayerStats, error) {
	var p PlayerStats
	err := row.Scan(
		&p.Player, &p.Name, &p.TotalGames,
		&p.ChessWins, &p.ChessLosses, &p.ChessDraws,
		&p.PokerWins, &p.PokerLosses, &p.PokerDraws,
		&p.BlackjackWins, &p.BlackjackLosses, &p.BlackjackPushes,
		&p.CurrentStreak, &p.BestStreak, &p.ChessRating, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLRepository) GetStats(ctx context.Context, player string) (*PlayerStats, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+statsColumns+` FROM player_stats WHERE player_id=$1`, player)
	p, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *SQLRepository) ListStats(ctx context.Context) ([]*PlayerStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+statsColumns+` FROM player_stats WHERE total_games > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*PlayerStats
	for rows.Next() {
		p, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLRepository) UpsertStats(ctx context.Context, p *PlayerStats) error {
	if p == nil {
		return nil
	}
	q := `INSERT INTO player_stats (` + statsColumns + `) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
      ) ON CONFLICT (player_id) DO UPDATE SET
        player_name=EXCLUDED.player_name,
        total_games=EXCLUDED.total_games,
        chess_wins=EXCLUDED.chess_wins,
        chess_losses=EXCLUDED.chess_losses,
        chess_draws=EXCLUDED.chess_draws,
        poker_wins=EXCLUDED.poker_wins,
        poker_losses=EXCLUDED.poker_losses,
        poker_draws=EXCLUDED.poker_draws,
        blackjack_wins=EXCLUDED.blackjack_wins,
        blackjack_losses=EXCLUDED.blackjack_losses,
        blackjack_pushes=EXCLUDED.blackjack_pushes,
        current_streak=EXCLUDED.current_streak,
        best_streak=EXCLUDED.best_streak,
        chess_rating=EXCLUDED.chess_rating,
        updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q,
		p.Player, p.Name, p.TotalGames,
		p.ChessWins, p.ChessLosses, p.ChessDraws,
		p.PokerWins, p.PokerLosses, p.PokerDraws,
		p.BlackjackWins, p.BlackjackLosses, p.BlackjackPushes,
		p.CurrentStreak, p.BestStreak, p.ChessRating, p.UpdatedAt,
	)
	return err
}

// SaveResult is idempotent per game id.
func (r *SQLRepository) SaveResult(ctx context.Context, g *GameResult) error {
	if g == nil {
		return nil
	}
	q := `INSERT INTO game_results (
        result_id, game_id, kind, mode, status,
        seat_one, seat_two, name_one, name_two, result, ended_at
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
      ON CONFLICT (game_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q,
		g.ID, g.GameID, string(g.Kind), string(g.Mode), string(g.Status),
		g.Seats[0], g.Seats[1], g.Names[0], g.Names[1], g.Result, g.EndedAt,
	)
	return err
}
