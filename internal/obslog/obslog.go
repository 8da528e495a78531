// Package obslog holds the process-wide zap logger.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() { current.Store(zap.NewNop()) }

// L returns the global logger. It is a no-op logger until InitFromEnv or Set.
func L() *zap.Logger { return current.Load() }

// Set replaces the global logger; nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

type Settings struct {
	Level   string
	Format  string // text, json or console
	Console bool
	ToFile  bool
	File    string
	Caller  bool
}

func SettingsFromEnv() Settings {
	return Settings{
		Level:   envOr("LOG_LEVEL", "info"),
		Format:  strings.ToLower(strings.TrimSpace(envOr("LOG_FORMAT", "text"))),
		Console: envBool("LOG_TO_CONSOLE", true),
		ToFile:  envBool("LOG_TO_FILE", false),
		File:    strings.TrimSpace(envOr("LOG_FILE", filepath.Join("logs", "game-node.log"))),
		Caller:  envBool("LOG_CALLER", false),
	}
}

func InitFromEnv() error {
	l, err := Build(SettingsFromEnv())
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Build assembles a tee of console and file cores.
func Build(s Settings) (*zap.Logger, error) {
	level := ParseLevel(s.Level)
	var cores []zapcore.Core
	if s.Console {
		cores = append(cores, zapcore.NewCore(encoder(s.Format), zapcore.AddSync(os.Stdout), level))
	}
	if s.ToFile {
		if dir := filepath.Dir(s.File); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log dir: %w", err)
			}
		}
		f, err := os.OpenFile(s.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder(s.Format), zapcore.AddSync(f), level))
	}
	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if s.Caller || s.Format == "text" {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func ParseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "json":
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	case "console":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.ConsoleSeparator = " | "
		return zapcore.NewConsoleEncoder(cfg)
	}
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
