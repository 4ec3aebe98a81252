package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"teachablecam/internal/config"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	debugLog   zerolog.Logger
	infoLog    zerolog.Logger
	warningLog zerolog.Logger
	errorLog   zerolog.Logger
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
	}

	logger.setupLoggers(parseLevel(config.LogLevel))
	return logger
}

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop() *Logger {
	nop := zerolog.Nop()
	return &Logger{debugLog: nop, infoLog: nop, warningLog: nop, errorLog: nop}
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(level zerolog.Level) {
	infoFileHandle := l.openLogFile(filepath.Join(l.logDir, "info.log"))
	warningFileHandle := l.openLogFile(filepath.Join(l.logDir, "warning.log"))
	errorFileHandle := l.openLogFile(filepath.Join(l.logDir, "error.log"))

	stdout := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006/01/02 15:04:05"}
	stderr := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006/01/02 15:04:05"}

	l.debugLog = newLevelLogger(stdout, level)
	l.infoLog = newLevelLogger(zerolog.MultiLevelWriter(stdout, infoFileHandle), level)
	l.warningLog = newLevelLogger(zerolog.MultiLevelWriter(stdout, warningFileHandle), level)
	l.errorLog = newLevelLogger(zerolog.MultiLevelWriter(stderr, errorFileHandle), level)
}

func newLevelLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().CallerWithSkipFrameCount(3).Logger()
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

// Debug writes a formatted debug-level entry to stdout only.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugLog.Debug().Msgf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Info().Msgf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Warn().Msgf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Error().Msgf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("File %s has been cleared.", fileName)
	return nil
}
