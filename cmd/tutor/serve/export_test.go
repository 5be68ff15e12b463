package servecmder

import (
	"io"
	"log/slog"
)

func NewLogger(out io.Writer, debug, logJSON bool, logFile string) (*slog.Logger, func(), error) {
	c := &ServeCommander{debug: debug, logJSON: logJSON, logFile: logFile}
	return c.newLogger(out)
}
