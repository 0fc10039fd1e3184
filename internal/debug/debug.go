package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const separator = "============================================================"

var mu sync.Mutex

// Log appends an entry to logDir/logName: a separator line, a timestamped
// message and, when data is non-nil, its indented JSON. Failures are
// silently ignored; the debug log must never break a run.
func Log(logDir, logName, message string, data interface{}) {
	mu.Lock()
	defer mu.Unlock()

	_ = os.MkdirAll(logDir, 0o755)
	f, err := os.OpenFile(filepath.Join(logDir, logName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "\n%s\n[%s] %s\n", separator, time.Now().Format("2006-01-02T15:04:05"), message)
	if data == nil {
		return
	}
	if b, err := json.MarshalIndent(data, "", "  "); err == nil {
		fmt.Fprintf(f, "%s\n", b)
	}
}

// Tail returns the last n lines of logDir/logName.
func Tail(logDir, logName string, n int) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(logDir, logName))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Entries splits a log into its entries, oldest first, and returns the last n.
func Entries(logDir, logName string, n int) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(logDir, logName))
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, e := range strings.Split(string(data), separator) {
		if e = strings.TrimSpace(e); e != "" {
			entries = append(entries, e)
		}
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
