package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level orders log severities; messages below the configured level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	for lvl, n := range levelNames {
		if strings.EqualFold(n, name) {
			return lvl
		}
	}
	return LevelInfo
}

var (
	mu sync.RWMutex
	// Global logger instance
	logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	// Log file handle
	logFile *os.File
	level   = LevelInfo
)

// InitLogger initializes the logger with the given configuration
func InitLogger(logPath string, logLevel string) error {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(logLevel)

	// If no log path specified, use stderr
	if logPath == "" {
		logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
		return nil
	}

	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = file

	multiWriter := io.MultiWriter(os.Stderr, file)
	logger = log.New(multiWriter, "", log.LstdFlags|log.Lmicroseconds)

	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags)

	return nil
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer, logLevel Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, "", 0)
	level = logLevel
}

// CloseLogger closes the log file if open
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Enabled reports whether messages at lvl are written.
func Enabled(lvl Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return lvl >= level
}

func Debugf(format string, v ...interface{}) { write(LevelDebug, format, v...) }

func Infof(format string, v ...interface{}) { write(LevelInfo, format, v...) }

func Warnf(format string, v ...interface{}) { write(LevelWarn, format, v...) }

func Errorf(format string, v ...interface{}) { write(LevelError, format, v...) }

// Fatalf logs a formatted message and exits
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Fatalf("[FATAL] "+format, v...)
}

func write(lvl Level, format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if lvl < level {
		return
	}
	logger.Printf("[%s] %s", lvl, fmt.Sprintf(format, v...))
}
