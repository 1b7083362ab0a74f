package logging

import (
	"log/slog"
)

// SetupServeMode installs a file-only logger for the MCP server.
//
// stdout is reserved for JSON-RPC. Anything written there, or to stderr
// by some clients, corrupts the session, so this logger never writes to
// either.
func SetupServeMode(level, dir string) (*slog.Logger, func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.FilePath = LogPath(dir)

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Info("serve_logging_ready",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", ParseLevel(level).String()))
	return logger, cleanup, nil
}
