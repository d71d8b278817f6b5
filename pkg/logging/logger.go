// Package logging provides the diagnostic file logger shared by all brain
// components.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides structured debug logging for brain components.
// All logs are written to a session-specific file, by default in ~/.brain/logs/.
//
// All log methods (Debugf, Infof, Warnf, Errorf) write unconditionally.
// There is currently no log level filtering.
type Logger struct {
	sessionID string
	component string
	runID     string
	out       io.Writer
	logger    *log.Logger
	mu        *sync.Mutex
	logPath   string
	closeOnce *sync.Once
}

// Options controls where log files go and how they rotate.
type Options struct {
	// Dir is the log directory. A leading ~ is expanded.
	Dir string

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int
}

// DefaultDir is the log directory used when none is configured.
const DefaultDir = "~/.brain/logs"

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	// initOnce ensures directory initialization happens once
	initOnce sync.Once

	// initErr stores any error from directory initialization
	initErr error

	// opts is set by Configure before the first logger is created.
	opts = Options{Dir: DefaultDir, MaxSizeMB: 10, MaxBackups: 3}

	// sink is the rotating file shared by every component logger.
	sink     *lumberjack.Logger
	sinkMu   sync.Mutex
	writeMu  sync.Mutex
	sinkPath string
)

// Configure sets the log directory and rotation policy. It only has effect
// when called before the first NewLogger.
func Configure(o Options) {
	if o.Dir == "" {
		o.Dir = DefaultDir
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 10
	}
	if o.MaxBackups < 0 {
		o.MaxBackups = 0
	}
	opts = o
}

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() error {
	initOnce.Do(func() {
		dir, err := homedir.Expand(opts.Dir)
		if err != nil {
			initErr = fmt.Errorf("failed to expand log directory: %w", err)
			return
		}

		logDir = dir
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// sharedSink returns the rotating writer for the session log file.
func sharedSink() (*lumberjack.Logger, string) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if sink == nil {
		sinkPath = filepath.Join(logDir, fmt.Sprintf("%s-brain.log", getSessionID()))
		sink = &lumberjack.Logger{
			Filename:   sinkPath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
	}
	return sink, sinkPath
}

// NewLogger creates a new logger for a specific component.
// The logger writes to <dir>/<session-id>-brain.log
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
// Callers can check the error to detect fallback mode and log warnings.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	w, path := sharedSink()

	// lumberjack opens lazily; touch the file now so failures surface here.
	if _, err := w.Write(nil); err != nil {
		return newFallbackLogger(component, fmt.Errorf("failed to open log file: %w", err)), err
	}

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		out:       w,
		logger:    log.New(w, "", 0), // We'll format timestamps ourselves
		mu:        &writeMu,
		logPath:   path,
		closeOnce: &sync.Once{},
	}, nil
}

// NewWriterLogger creates a logger that writes to w instead of the session file.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		out:       w,
		logger:    log.New(w, "", 0),
		mu:        &sync.Mutex{},
		closeOnce: &sync.Once{},
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriterLogger("discard", io.Discard)
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags|log.Lshortfile)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)
	logger.Printf("Falling back to stderr logging")

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		out:       os.Stderr,
		logger:    logger,
		mu:        &sync.Mutex{},
		closeOnce: &sync.Once{},
	}
}

// WithRun returns a logger that tags every entry with runID. The copy shares
// the underlying writer.
func (l *Logger) WithRun(runID string) *Logger {
	c := *l
	c.runID = runID
	return &c
}

// formatLogEntry creates a structured log entry with timestamp, component, and level
func (l *Logger) formatLogEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	if l.runID != "" {
		return fmt.Sprintf("[%s] [%s] [%s] [run=%s] %s", timestamp, l.component, level, l.runID, message)
	}
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Println(l.formatLogEntry(level, fmt.Sprintf(format, v...)))
}

// Printf logs a formatted message
func (l *Logger) Printf(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write("DEBUG", format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// Writer returns an io.Writer that writes to this logger's destination.
func (l *Logger) Writer() io.Writer {
	return l.out
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// RunID returns the run tag, empty for untagged loggers.
func (l *Logger) RunID() string {
	return l.runID
}

// LogPath returns the path to the log file
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times. The shared file is
// reopened by the next write from any other component.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if c, ok := l.out.(*lumberjack.Logger); ok {
			err = c.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
