// Package logging configures go-logging backends for the pipeline binary.
// The reference deployment writes to stdout and, optionally, a log file.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/op/go-logging"
)

var format = logging.MustStringFormatter(
	`%{time:2006-01-02 15:04:05} %{level:.5s} %{module} %{message}`,
)

// Init parses the level string, installs a formatted stdout backend and, when
// filePath is non-empty, an additional file backend. The returned closer owns
// the log file handle; callers should defer it.
func Init(level, filePath string) (io.Closer, error) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	backends := []logging.Backend{
		logging.NewBackendFormatter(logging.NewLogBackend(os.Stdout, "", 0), format),
	}

	var closer io.Closer
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", filePath, err)
		}
		closer = f
		backends = append(backends, logging.NewBackendFormatter(logging.NewLogBackend(f, "", 0), format))
	}

	leveled := logging.MultiLogger(backends...)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
	return closer, nil
}
