package logger

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// InitLogger - Build a logger and install it as the global zap logger.
// Logs go to logPath, or stderr when it is empty; never to stdout, which
// carries MCP traffic and CLI output.
func InitLogger(debug bool, logPath string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	output := "stderr"
	if logPath != "" {
		output = logPath
	}
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
