package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/livesync/pkg/paths"
	"github.com/grovetools/livesync/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Environment overrides.
const (
	LevelEnv  = "LIVESYNC_LOG_LEVEL"
	CallerEnv = "LIVESYNC_LOG_CALLER"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	current   Config
	tuiActive bool

	fileSink     *os.File
	fileSinkPath string

	// Swapped in tests.
	stderr     io.Writer = os.Stderr
	isTerminal           = func() bool {
		return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	}
)

// NewLogger returns the logger for a component. Loggers are cached per
// component and follow later calls to Configure and SetLevel.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if entry, exists := loggers[component]; exists {
		return entry
	}

	logger := logrus.New()
	applyLocked(logger)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure applies cfg to every existing and future logger.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	current = cfg
	for _, entry := range loggers {
		applyLocked(entry.Logger)
	}
}

// SetLevel changes the level of every logger. The environment override
// still wins.
func SetLevel(level string) error {
	if _, err := logrus.ParseLevel(level); err != nil {
		return err
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	current.Level = level
	for _, entry := range loggers {
		entry.Logger.SetLevel(resolveLevel())
	}
	return nil
}

// Level returns the effective level.
func Level() logrus.Level {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	return resolveLevel()
}

// SetTUIActive tells the logger that a full-screen UI owns the terminal.
// In auto mode, stderr output is then dropped while stderr is a terminal.
func SetTUIActive(active bool) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	tuiActive = active
	for _, entry := range loggers {
		entry.Logger.SetOutput(outputLocked())
	}
}

func resolveLevel() logrus.Level {
	levelStr := "info"
	if env := os.Getenv(LevelEnv); env != "" {
		levelStr = env
	} else if current.Level != "" {
		levelStr = current.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func applyLocked(logger *logrus.Logger) {
	logger.SetLevel(resolveLevel())
	logger.SetReportCaller(os.Getenv(CallerEnv) == "true" || current.ReportCaller)

	switch current.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: current.Format})
	}

	logger.SetOutput(outputLocked())
}

func outputLocked() io.Writer {
	var writers []io.Writer

	if w := fileWriterLocked(); w != nil {
		writers = append(writers, w)
	}
	if shouldLogToStderr() {
		writers = append(writers, stderr)
	}

	switch len(writers) {
	case 0:
		return io.Discard
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

func shouldLogToStderr() bool {
	mode := current.Format.StructuredToStderr
	if mode == "" {
		mode = "auto"
	}
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		return !tuiActive || !isTerminal()
	}
}

// fileWriterLocked opens the configured file sink once per path.
func fileWriterLocked() io.Writer {
	if !current.File.Enabled {
		return nil
	}

	path := current.File.Path
	if path == "" {
		path = filepath.Join(paths.LogDir(), fmt.Sprintf("livesync-%s.log", time.Now().Format("2006-01-02")))
	}
	path = pathutil.Expand(path)

	if fileSink != nil && fileSinkPath == path {
		return fileSink
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(stderr, "livesync: failed to create log directory %s: %v\n", filepath.Dir(path), err)
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(stderr, "livesync: failed to open log file %s: %v\n", path, err)
		return nil
	}
	if fileSink != nil {
		_ = fileSink.Close()
	}
	fileSink, fileSinkPath = file, path
	return file
}
