// Package obs holds the service's observability surface: the shared JSON
// logger, Prometheus HTTP metrics, and the error-tracking reporter.
package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogEntry emits a structured JSON log line with a timestamp and level.
func LogEntry(level string, entry map[string]any) {
	line := make(map[string]any, len(entry)+2)
	for k, v := range entry {
		line[k] = v
	}
	line["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["level"] = level
	data, err := json.Marshal(line)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
