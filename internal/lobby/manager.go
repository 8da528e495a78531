package lobby

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/obslog"
)

// Manager pairs two players through a lobby and hands the pair to the
// orchestrator once the second one joins.
type Manager struct {
	store *Store
	games *game.Orchestrator
	newID func() string
}

func NewManager(rdb *redis.Client, games *game.Orchestrator) *Manager {
	return &Manager{store: NewStore(rdb), games: games, newID: uuid.NewString}
}

type CreateParams struct {
	Creator        string
	CreatorName    string
	Kind           game.Kind
	Public         bool
	Password       *string
	TimeControlSec uint64
	Now            uint64
}

func (m *Manager) Create(ctx context.Context, p CreateParams) (*Lobby, error) {
	if strings.TrimSpace(p.Creator) == "" || p.TimeControlSec == 0 {
		return nil, ErrInvalidArgs
	}
	if _, ok := game.ParseKind(string(p.Kind)); !ok {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidArgs, p.Kind)
	}
	l := &Lobby{
		Creator:        p.Creator,
		CreatorName:    p.CreatorName,
		Kind:           p.Kind,
		Mode:           game.ModeVsFriend,
		Public:         p.Public,
		Status:         StatusOpen,
		TimeControlSec: p.TimeControlSec,
		CreatedAt:      p.Now,
		ExpiresAt:      p.Now + Lifetime,
		Players:        []string{p.Creator},
		Names:          []string{p.CreatorName},
	}
	if p.Password != nil {
		l.PasswordHash = HashPassword(*p.Password)
	}
	for i := 0; i < 5; i++ {
		l.ID = m.newID()
		ok, err := m.store.Create(ctx, l)
		if err != nil {
			return nil, err
		}
		if ok {
			obslog.L().Info("lobby_create",
				zap.String("lobby_id", l.ID),
				zap.String("kind", string(l.Kind)),
				zap.String("creator", l.Creator),
			)
			return l, nil
		}
	}
	return nil, fmt.Errorf("failed to allocate lobby id")
}

// Join seats actor as the second player and starts the game.
func (m *Manager) Join(ctx context.Context, lobbyID, actor, name string, password *string, now uint64) (*JoinResult, error) {
	if strings.TrimSpace(lobbyID) == "" || strings.TrimSpace(actor) == "" {
		return nil, ErrInvalidArgs
	}
	var joined Lobby
	err := m.store.Update(ctx, lobbyID, func(l *Lobby) (bool, error) {
		if l.Status != StatusOpen {
			return false, ErrNotOpen
		}
		if l.Expired(now) {
			l.Status = StatusExpired
			return true, ErrExpired
		}
		if l.PasswordHash != "" && (password == nil || HashPassword(*password) != l.PasswordHash) {
			return false, ErrBadPassword
		}
		for _, p := range l.Players {
			if p == actor {
				return false, ErrAlreadyJoined
			}
		}
		l.Players = append(l.Players, actor)
		l.Names = append(l.Names, name)
		l.Status = StatusFull
		l.GameID = "game_" + l.ID
		joined = *l
		return true, nil
	})
	if err != nil {
		obslog.L().Debug("lobby_join_error", zap.String("lobby_id", lobbyID), zap.String("actor", actor), zap.Error(err))
		return nil, err
	}

	timeouts := joined.Timeouts()
	rec, err := m.games.Create(ctx, game.CreateParams{
		ID:           joined.GameID,
		Kind:         joined.Kind,
		Mode:         joined.Mode,
		Creator:      joined.Players[0],
		CreatorName:  joined.Names[0],
		Opponent:     actor,
		OpponentName: name,
		Timeouts:     &timeouts,
		Now:          now,
	})
	if err != nil {
		obslog.L().Warn("lobby_start_error", zap.String("lobby_id", lobbyID), zap.Error(err))
		if rerr := m.reopen(ctx, lobbyID, actor); rerr != nil {
			obslog.L().Error("lobby_reopen_error", zap.String("lobby_id", lobbyID), zap.Error(rerr))
		}
		return nil, fmt.Errorf("start game for lobby %s: %w", lobbyID, err)
	}

	err = m.store.Update(ctx, lobbyID, func(l *Lobby) (bool, error) {
		l.Status = StatusStarted
		joined = *l
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("lobby_started",
		zap.String("lobby_id", lobbyID),
		zap.String("game_id", rec.ID),
		zap.String("creator", joined.Players[0]),
		zap.String("joiner", actor),
	)
	return &JoinResult{Lobby: &joined, Game: rec}, nil
}

// reopen undoes a join whose game could not be started.
func (m *Manager) reopen(ctx context.Context, lobbyID, actor string) error {
	return m.store.Update(ctx, lobbyID, func(l *Lobby) (bool, error) {
		if l.Status != StatusFull {
			return false, nil
		}
		for i, p := range l.Players {
			if p == actor && i > 0 {
				l.Players = append(l.Players[:i], l.Players[i+1:]...)
				if i < len(l.Names) {
					l.Names = append(l.Names[:i], l.Names[i+1:]...)
				}
				break
			}
		}
		l.Status = StatusOpen
		l.GameID = ""
		return true, nil
	})
}

func (m *Manager) Cancel(ctx context.Context, lobbyID, actor string) error {
	return m.store.Update(ctx, lobbyID, func(l *Lobby) (bool, error) {
		if l.Creator != actor {
			return false, ErrNotCreator
		}
		if l.Status != StatusOpen {
			return false, ErrNotOpen
		}
		l.Status = StatusCancelled
		return true, nil
	})
}

func (m *Manager) Get(ctx context.Context, lobbyID string) (*Lobby, error) {
	return m.store.Load(ctx, lobbyID)
}

// ListOpen returns joinable public lobbies, oldest first. Expired entries
// found on the way are marked and dropped from the index.
func (m *Manager) ListOpen(ctx context.Context, now uint64) ([]*Lobby, error) {
	ids, err := m.store.OpenIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Lobby, 0, len(ids))
	for _, id := range ids {
		l, err := m.store.Load(ctx, id)
		if errors.Is(err, ErrNotFound) {
			_ = m.store.dropOpen(ctx, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if l.Status != StatusOpen {
			_ = m.store.dropOpen(ctx, id)
			continue
		}
		if l.Expired(now) {
			_ = m.store.Update(ctx, id, func(cur *Lobby) (bool, error) {
				if cur.Status != StatusOpen {
					return false, nil
				}
				cur.Status = StatusExpired
				return true, nil
			})
			continue
		}
		if !l.Public {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
