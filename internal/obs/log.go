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

// Logger returns the process-wide line logger. Output is one JSON object per
// line on stdout; the platform log collector handles shipping.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest emits one structured line for a handled request. A "ts" field is
// stamped unless the caller already set one.
func LogRequest(entry map[string]any) {
	line, err := encodeLogLine(entry, time.Now().UTC())
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(line)
}

func encodeLogLine(entry map[string]any, now time.Time) (string, error) {
	if _, ok := entry["ts"]; !ok {
		entry["ts"] = now.Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
