package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	debugFile *os.File
	debugOnce sync.Once
	logsDir   string
	mu        sync.RWMutex
	logger    = newDiscardLogger()
)

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// ConfigureDebug sets the directory for debug logs
func ConfigureDebug(dir string) {
	mu.Lock()
	defer mu.Unlock()
	logsDir = dir
}

// Logger returns the process logger. Until a logs directory is configured
// and the first entry is written it discards everything.
func Logger() *logrus.Logger {
	open()
	return logger
}

func open() {
	mu.RLock()
	dir := logsDir
	mu.RUnlock()

	if dir == "" {
		return
	}

	debugOnce.Do(func() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return
		}
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("20060102-150405"))))
		if err != nil {
			return
		}
		debugFile = f
		logger.SetOutput(f)
	})
}

// Debug writes a message to the debug log file in the configured directory
func Debug(format string, args ...any) {
	open()
	if debugFile == nil {
		return
	}
	logger.Debugf(format, args...)
}

// CleanupLogs removes all but the newest keep debug logs in dir.
func CleanupLogs(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var logs []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "debug-") && strings.HasSuffix(name, ".log") {
			logs = append(logs, name)
		}
	}
	if len(logs) <= keep {
		return nil
	}

	// timestamped names sort chronologically
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
