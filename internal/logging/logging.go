// Package logging builds the zap loggers used by the filemap commands.
package logging

import (
	"encoding/json"
	"fmt"

	"github.com/Giulio2002/filemap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger returns a new zap logger built from the given preset name or
// the path to a JSON zap.Config file.
//
// Available presets: console, console-nocolor, console-notime, systemd,
// production, development. level only applies to the console and systemd
// presets.
func NewZapLogger(preset string, level zapcore.Level) (*zap.Logger, error) {
	switch preset {
	case "console":
		return NewProductionConsoleZapLogger(level, false, false, false)
	case "console-nocolor":
		return NewProductionConsoleZapLogger(level, true, false, false)
	case "console-notime":
		return NewProductionConsoleZapLogger(level, false, true, false)
	case "systemd":
		return NewProductionConsoleZapLogger(level, true, true, false)
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return newZapLoggerFromConfigFile(preset)
	}
}

// NewProductionConsoleZapLogger creates a new zap logger that writes to the
// console with a production-like encoder config.
func NewProductionConsoleZapLogger(level zapcore.Level, noColor, noTime, addCaller bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Sampling = nil
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableCaller = !addCaller
	cfg.DisableStacktrace = true

	if noColor {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if noTime {
		cfg.EncoderConfig.TimeKey = zapcore.OmitKey
	}

	return cfg.Build()
}

// newZapLoggerFromConfigFile maps the JSON config file read-only and decodes
// it in place.
func newZapLoggerFromConfigFile(path string) (*zap.Logger, error) {
	var cfg zap.Config
	err := filemap.WithReadOnly(path, func(f *filemap.ReadOnly) error {
		return json.NewDecoder(f.NewReader()).Decode(&cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load zap config %q: %w", path, err)
	}
	return cfg.Build()
}
