package cli

import (
	"fmt"
	"io"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the environment configuration. Command-line flags override it.
type Config struct {
	Database    string `env:"BATONSET_DB" envDefault:"batonset.db"`
	Ruleset     string `env:"BATONSET_RULESET"`
	LogLevel    string `env:"BATONSET_LOG_LEVEL" envDefault:"warn"`
	Concurrency int    `env:"BATONSET_CONCURRENCY" envDefault:"4"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// newLogger builds a console logger writing to w. Verbose forces debug.
func newLogger(w io.Writer, level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}
