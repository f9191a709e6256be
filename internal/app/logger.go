package app

import (
	"os"

	"delivery-tracking/internal/config"
	"delivery-tracking/internal/logx"
)

// NewLogger returns the service JSON logger on stdout.
func NewLogger(cfg *config.Config) logx.Logger {
	return logx.NewJSON(os.Stdout, cfg.LogLevel, logx.String("service", "delivery-tracking"))
}
