package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/anikeaty08/linera-game/internal/game"
	"github.com/anikeaty08/linera-game/internal/obslog"
)

var (
	ErrExists   = errors.New("game_already_exists")
	ErrConflict = errors.New("game_update_conflict")
)

const (
	DefaultTTL        = 24 * time.Hour
	defaultMaxRetries = 8
)

// RedisStore keeps each record as JSON under one key and indexes it by
// seat. Updates run under WATCH so concurrent writers never interleave.
type RedisStore struct {
	rdb        *redis.Client
	ttl        time.Duration
	maxRetries int
}

type Option func(*RedisStore)

func WithTTL(d time.Duration) Option {
	return func(s *RedisStore) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(s *RedisStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewRedisStore(redisURL string, opts ...Option) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for game store")
	}
	ropts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, opts...), nil
}

func NewRedisStoreWithClient(rdb *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{rdb: rdb, ttl: DefaultTTL, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client exposes the connection so collaborators can share it.
func (s *RedisStore) Client() *redis.Client { return s.rdb }

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) Create(ctx context.Context, rec *game.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, recordKey(rec.ID), raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	return s.indexSeats(ctx, s.rdb, rec)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*game.Record, error) {
	raw, err := s.rdb.Get(ctx, recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// Update loads the record, applies fn and writes the result in one
// MULTI/EXEC guarded by WATCH. A concurrent write aborts the transaction
// and fn is retried on a fresh copy.
func (s *RedisStore) Update(ctx context.Context, id string, fn func(rec *game.Record) (bool, error)) error {
	key := recordKey(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return game.ErrNotFound
		}
		if err != nil {
			return err
		}
		rec, err := decode(raw)
		if err != nil {
			return err
		}
		changed, err := fn(rec)
		if err != nil || !changed {
			return err
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		next, err := json.Marshal(rec)
		if err != nil {
			return err
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, next, s.ttl)
		if err := s.indexSeats(ctx, pipe, rec); err != nil {
			return err
		}
		_, err = pipe.Exec(ctx)
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			obslog.L().Debug("game_store_retry", zap.String("game_id", id), zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s", ErrConflict, id)
}

// ListBySeat returns the actor's games, most recently updated first.
func (s *RedisStore) ListBySeat(ctx context.Context, actor string) ([]*game.Record, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, nil
	}
	ids, err := s.rdb.SMembers(ctx, seatKey(actor)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*game.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Load(ctx, id)
		if errors.Is(err, game.ErrNotFound) {
			// expired record; drop the stale index entry
			_ = s.rdb.SRem(ctx, seatKey(actor), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecent(out)
	return out, nil
}

func (s *RedisStore) indexSeats(ctx context.Context, c redis.Cmdable, rec *game.Record) error {
	for _, seat := range uniqueSeats(rec) {
		key := seatKey(seat)
		if err := c.SAdd(ctx, key, rec.ID).Err(); err != nil {
			return err
		}
		if err := c.Expire(ctx, key, s.ttl).Err(); err != nil {
			return err
		}
	}
	return nil
}

func uniqueSeats(rec *game.Record) []string {
	var out []string
	for _, seat := range rec.Seats {
		seat = strings.TrimSpace(seat)
		if seat == "" || seat == game.BotSeatID {
			continue
		}
		if len(out) == 1 && out[0] == seat {
			continue
		}
		out = append(out, seat)
	}
	return out
}

func decode(raw []byte) (*game.Record, error) {
	var rec game.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode game record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func sortRecent(recs []*game.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UpdatedAt != recs[j].UpdatedAt {
			return recs[i].UpdatedAt > recs[j].UpdatedAt
		}
		return recs[i].ID < recs[j].ID
	})
}

func recordKey(id string) string { return "game:rec:" + strings.TrimSpace(id) }
func seatKey(actor string) string { return "game:idx:seat:" + strings.TrimSpace(actor) }

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
