package mzap

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/walletledger/service/pkg/mlog"
)

// InitializeLogger builds the process-wide logger. ENV selects the base
// zap config (production: JSON, sampled; anything else: development,
// console-friendly); LOG_LEVEL overrides the default level when set.
func InitializeLogger(env string) mlog.Logger {
	var cfg zap.Config

	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.DisableStacktrace = true

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var zl zapcore.Level
		if err := zl.Set(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(zl)
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}

	return NewZapLogger(logger)
}
