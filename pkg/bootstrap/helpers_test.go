package bootstrap_test

import (
	"log/slog"

	"github.com/papercomputeco/tutor/pkg/logger"
)

func testLogger() *slog.Logger {
	return logger.Nop()
}
