package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/archlens/archlens/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Format selects the handler encoding
type Format string

const (
	FormatAuto Format = "auto" // text on a terminal, JSON otherwise
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds logger configuration
type Config struct {
	Level      LogLevel
	Format     Format
	OutputFile string    // Path to log file (empty = console only)
	MaxSize    int64     // Max size in bytes before rotation (default: 10MB)
	MaxBackups int       // Number of old log files to keep (default: 3)
	AddSource  bool      // Add source file and line number
	Console    io.Writer // defaults to stderr; stdout carries MCP traffic
}

// Logger owns the log sinks and hands out slog and logrus loggers that
// share them
type Logger struct {
	slog   *slog.Logger
	config Config
	out    io.Writer
	json   bool
	file   *os.File
	mu     sync.Mutex
}

// FromSettings converts configuration file settings. debug forces DEBUG.
func FromSettings(s config.LoggingConfig, debug bool) Config {
	cfg := Config{
		Level:      ParseLevel(s.Level),
		Format:     Format(strings.ToLower(s.Format)),
		OutputFile: s.File,
	}
	if debug {
		cfg.Level = DEBUG
		cfg.AddSource = true
	}
	return cfg
}

// ParseLevel maps a level name to LogLevel, defaulting to INFO
func ParseLevel(name string) LogLevel {
	switch strings.ToLower(name) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Setup creates a logger and installs it as the slog default
func Setup(cfg Config) (*Logger, error) {
	logger, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.slog)
	return logger, nil
}

// NewLogger creates a new logger instance with the given configuration
func NewLogger(config Config) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024 // 10MB
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}
	if config.Console == nil {
		config.Console = os.Stderr
	}

	logger := &Logger{config: config}
	writers := []io.Writer{config.Console}

	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		if err := logger.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to rotate logs: %w", err)
		}
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.OutputFile, err)
		}
		logger.file = file
		writers = append(writers, file)
	}

	logger.out = io.MultiWriter(writers...)
	logger.json = useJSON(config.Format, config.Console)

	opts := &slog.HandlerOptions{
		Level:     toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}
	var handler slog.Handler
	if logger.json {
		handler = slog.NewJSONHandler(logger.out, opts)
	} else {
		handler = slog.NewTextHandler(logger.out, opts)
	}
	logger.slog = slog.New(handler)
	return logger, nil
}

// useJSON resolves FormatAuto by checking whether console is a terminal
func useJSON(format Format, console io.Writer) bool {
	switch format {
	case FormatJSON:
		return true
	case FormatText:
		return false
	}
	if f, ok := console.(*os.File); ok {
		return !term.IsTerminal(int(f.Fd()))
	}
	return true
}

// rotateIfNeeded checks if log file needs rotation and performs it
func (l *Logger) rotateIfNeeded() error {
	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < l.config.MaxSize {
		return nil
	}

	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			_ = os.Rename(oldPath, newPath)
		}
	}

	backupPath := fmt.Sprintf("%s.1", l.config.OutputFile)
	if err := os.Rename(l.config.OutputFile, backupPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

func toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func toLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Slog returns the structured logger
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Logrus returns a logrus logger writing to the same sinks with the same
// level and encoding, for the pipeline and command layer
func (l *Logger) Logrus() *logrus.Logger {
	lr := logrus.New()
	lr.SetOutput(l.out)
	lr.SetLevel(toLogrusLevel(l.config.Level))
	if l.json {
		lr.SetFormatter(&logrus.JSONFormatter{})
	} else {
		lr.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return lr
}

// IsDebugEnabled returns true if debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.config.Level == DEBUG
}

// Close closes the log file if one is open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
