package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

// Log output is newline-delimited JSON on stdout. Callers build the entry
// map themselves; this file only owns the shared sink.

var (
	sinkOnce sync.Once
	sink     *log.Logger
)

// Logger returns the process-wide JSON line sink.
func Logger() *log.Logger {
	sinkOnce.Do(func() {
		sink = log.New(os.Stdout, "", 0)
	})
	return sink
}

// LogRequest serializes entry as one JSON line. A marshal failure is itself
// reported as a log line so the stream never goes silent.
func LogRequest(entry map[string]any) {
	line, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry not serializable"}`)
		return
	}
	Logger().Println(string(line))
}
