package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/speedrun-hq/speedrun-settler/pkg/chains"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

var levelNames = map[string]Level{
	"debug":  DebugLevel,
	"info":   InfoLevel,
	"notice": NoticeLevel,
	"error":  ErrorLevel,
}

// ParseLevel converts a level name to a Level
func ParseLevel(value string) (Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return 0, fmt.Errorf("invalid log level: %s, must be one of debug, info, notice, error", value)
	}
	return level, nil
}

var chainColors = map[uint64]color.Attribute{
	chains.Ethereum:  color.FgHiGreen,
	chains.BSC:       color.FgYellow,
	chains.Polygon:   color.FgMagenta,
	chains.Base:      color.FgBlue,
	chains.Arbitrum:  color.FgHiBlue,
	chains.Avalanche: color.FgRed,
	chains.Sepolia:   color.FgCyan,
}

// chainPrefix returns the bracketed tag for a target chain, padded to a fixed width
func chainPrefix(chainID uint64) string {
	name := chains.GetChainName(chainID)
	if name == "" {
		name = fmt.Sprintf("%d", chainID)
	}
	if len(name) > 4 {
		name = name[:4]
	}
	return fmt.Sprintf("%-7s", "["+name+"]")
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithChain(chainID uint64, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithChain(chainID uint64, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithChain(chainID uint64, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithChain(chainID uint64, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                      {}
func (l *EmptyLogger) InfoWithChain(_ uint64, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) ErrorWithChain(_ uint64, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                     {}
func (l *EmptyLogger) DebugWithChain(_ uint64, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                    {}
func (l *EmptyLogger) NoticeWithChain(_ uint64, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	out            *log.Logger
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

// NewStdLogger creates a logger writing to stderr
func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return NewWriterLogger(os.Stderr, enableColoring, level)
}

// NewWriterLogger creates a logger writing to w
func NewWriterLogger(w io.Writer, enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
		out:            log.New(w, "", log.LstdFlags),
	}
}

// formatMessage formats the log message with the appropriate log level, chain prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, chainID uint64, hasChain bool, format string) string {
	var prefix string
	if hasChain {
		prefix = chainPrefix(chainID)
		if l.enableColoring {
			attr, ok := chainColors[chainID]
			if !ok {
				attr = color.FgWhite
			}
			prefix = color.New(attr).Sprint(prefix)
		}
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
		if l.enableColoring {
			levelStr = color.New(color.FgHiRed).Sprint(levelStr)
		}
	}

	return levelStr + prefix + format
}

func (l *StdLogger) logf(level Level, chainID uint64, hasChain bool, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= level {
		l.out.Printf(l.formatMessage(level, chainID, hasChain, format), args...)
	}
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logf(InfoLevel, 0, false, format, args...)
}

func (l *StdLogger) InfoWithChain(chainID uint64, format string, args ...interface{}) {
	l.logf(InfoLevel, chainID, true, format, args...)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logf(ErrorLevel, 0, false, format, args...)
}

func (l *StdLogger) ErrorWithChain(chainID uint64, format string, args ...interface{}) {
	l.logf(ErrorLevel, chainID, true, format, args...)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logf(DebugLevel, 0, false, format, args...)
}

func (l *StdLogger) DebugWithChain(chainID uint64, format string, args ...interface{}) {
	l.logf(DebugLevel, chainID, true, format, args...)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logf(NoticeLevel, 0, false, format, args...)
}

func (l *StdLogger) NoticeWithChain(chainID uint64, format string, args ...interface{}) {
	l.logf(NoticeLevel, chainID, true, format, args...)
}
