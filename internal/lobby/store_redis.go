package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyOpen    = "lobby:open"
	ttlLobby   = 2 * time.Hour
	maxRetries = 8
)

type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func keyLobby(id string) string { return "lobby:" + id }

func (s *Store) Create(ctx context.Context, l *Lobby) (bool, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, keyLobby(l.ID), raw, ttlLobby).Result()
	if err != nil || !ok {
		return ok, err
	}
	if err := s.rdb.SAdd(ctx, keyOpen, l.ID).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Load(ctx context.Context, id string) (*Lobby, error) {
	raw, err := s.rdb.Get(ctx, keyLobby(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var l Lobby
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode lobby %s: %w", id, err)
	}
	return &l, nil
}

// Update applies fn under WATCH. fn returning false leaves the lobby as is;
// an error from fn is returned only after any requested write committed.
func (s *Store) Update(ctx context.Context, id string, fn func(l *Lobby) (bool, error)) error {
	key := keyLobby(id)
	var fnErr error
	txf := func(tx *redis.Tx) error {
		fnErr = nil
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var l Lobby
		if err := json.Unmarshal(raw, &l); err != nil {
			return err
		}
		write, err := fn(&l)
		fnErr = err
		if !write {
			return nil
		}
		next, err := json.Marshal(&l)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, next, ttlLobby)
		if l.Status == StatusOpen {
			pipe.SAdd(ctx, keyOpen, l.ID)
		} else {
			pipe.SRem(ctx, keyOpen, l.ID)
		}
		_, err = pipe.Exec(ctx)
		return err
	}
	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}
		return fnErr
	}
	return fmt.Errorf("lobby %s: too many concurrent updates", id)
}

func (s *Store) OpenIDs(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, keyOpen).Result()
}

func (s *Store) dropOpen(ctx context.Context, id string) error {
	return s.rdb.SRem(ctx, keyOpen, id).Err()
}
