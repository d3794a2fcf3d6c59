// Package logging wires slog sinks (console or file, OTel, Graylog) and
// adapts zerolog for the dispatcher and the storage managers.
package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// LogFilePath returns <logsDir>/<app>.<YYYYMMDD_HHMMSS>.log.
func LogFilePath(logsDir, app string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", app, sessionStart.UTC().Format("20060102_150405")),
	)
}
