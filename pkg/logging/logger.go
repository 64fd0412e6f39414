package logging

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

// New builds the process logger. Local and development environments get the
// human-readable console encoder; everything else logs production JSON.
func New(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch env {
	case "local", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

var dsnPasswordPattern = regexp.MustCompile(`password=\S+`)

// SanitizeDSN masks the password in a key=value connection string so the DSN
// can be logged at startup.
func SanitizeDSN(dsn string) string {
	return dsnPasswordPattern.ReplaceAllString(dsn, "password=***")
}
