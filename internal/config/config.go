package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/anikeaty08/linera-game/internal/clock"
	"github.com/anikeaty08/linera-game/internal/game"
)

type AppConfig struct {
	RedisURL    string
	DatabaseURL string

	HostBaseURL   string
	HostWSURL     string
	HostTransport string // http, ws or auto
	HostToken     string

	GameTTL     time.Duration
	MessagesDir string
	RulesFile   string

	Tables game.Tables
}

// rulesFile is the YAML shape of RULES_FILE. Zero values keep defaults.
type rulesFile struct {
	Poker struct {
		StartingChips uint64 `yaml:"starting_chips"`
		SmallBlind    uint64 `yaml:"small_blind"`
		BigBlind      uint64 `yaml:"big_blind"`
	} `yaml:"poker"`
	Blackjack struct {
		Bet   uint64 `yaml:"bet"`
		Chips uint64 `yaml:"chips"`
	} `yaml:"blackjack"`
	Clock struct {
		StartSec      uint64 `yaml:"start_sec"`
		IncrementSec  uint64 `yaml:"increment_sec"`
		BlockDelaySec uint64 `yaml:"block_delay_sec"`
	} `yaml:"clock"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HostTransport: "auto",
		GameTTL:       24 * time.Hour,
		Tables:        game.DefaultTables(),
	}

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.HostBaseURL = strings.TrimRight(env("HOST_BASE_URL"), "/")
	cfg.HostWSURL = env("HOST_WS_URL")
	cfg.HostToken = env("HOST_TOKEN")
	cfg.MessagesDir = env("MESSAGES_DIR")
	cfg.RulesFile = env("RULES_FILE")

	if v := strings.ToLower(env("HOST_TRANSPORT")); v != "" {
		switch v {
		case "http", "ws", "auto":
			cfg.HostTransport = v
		default:
			return nil, fmt.Errorf("HOST_TRANSPORT must be http, ws or auto, got %q", v)
		}
	}
	if v := env("GAME_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid GAME_TTL %q", v)
		}
		cfg.GameTTL = d
	}

	if cfg.RulesFile != "" {
		if err := cfg.applyRulesFile(cfg.RulesFile); err != nil {
			return nil, err
		}
	}

	// Clock env overrides win over the rules file.
	if n, ok := seconds("CLOCK_START_SEC"); ok {
		cfg.Tables.Timeouts.Start = n
	}
	if n, ok := seconds("CLOCK_INCREMENT_SEC"); ok {
		cfg.Tables.Timeouts.Increment = n
	}
	if n, ok := seconds("CLOCK_BLOCK_DELAY_SEC"); ok {
		cfg.Tables.Timeouts.BlockDelay = n
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.HostTransport == "ws" && cfg.HostWSURL == "" {
		return nil, errors.New("HOST_WS_URL is required for ws transport")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyRulesFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var r rulesFile
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}
	t := &c.Tables
	setIf(&t.PokerStartingChips, r.Poker.StartingChips)
	setIf(&t.PokerSmallBlind, r.Poker.SmallBlind)
	setIf(&t.PokerBigBlind, r.Poker.BigBlind)
	setIf(&t.BlackjackBet, r.Blackjack.Bet)
	setIf(&t.BlackjackChips, r.Blackjack.Chips)
	setIf(&t.Timeouts.Start, r.Clock.StartSec*clock.Second)
	setIf(&t.Timeouts.Increment, r.Clock.IncrementSec*clock.Second)
	setIf(&t.Timeouts.BlockDelay, r.Clock.BlockDelaySec*clock.Second)
	return nil
}

// Validate rejects tables the engines could never start with.
func (c *AppConfig) Validate() error {
	t := c.Tables
	if t.PokerSmallBlind > t.PokerBigBlind {
		return fmt.Errorf("small blind %d exceeds big blind %d", t.PokerSmallBlind, t.PokerBigBlind)
	}
	if t.PokerBigBlind > t.PokerStartingChips {
		return fmt.Errorf("big blind %d exceeds starting chips %d", t.PokerBigBlind, t.PokerStartingChips)
	}
	if t.BlackjackBet == 0 || t.BlackjackBet > t.BlackjackChips {
		return fmt.Errorf("blackjack bet %d invalid for %d chips", t.BlackjackBet, t.BlackjackChips)
	}
	if t.Timeouts.Start == 0 {
		return errors.New("clock start must be positive")
	}
	return nil
}

func setIf(dst *uint64, v uint64) {
	if v > 0 {
		*dst = v
	}
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

func seconds(k string) (uint64, bool) {
	v := env(k)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * clock.Second, true
}
