// Package logger sets up zerolog with a console writer on stderr and a
// daily log file.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger
type Options struct {
	Level string
	// Dir holds the daily log files, empty disables file logging
	Dir     string
	Console io.Writer
	Now     func() time.Time
}

// DailyFile is an io.Writer that reopens its file when the day changes
type DailyFile struct {
	mu   sync.Mutex
	dir  string
	now  func() time.Time
	day  string
	file *os.File
}

// NewDailyFile creates dir if needed and opens today's file
func NewDailyFile(dir string, now func() time.Time) (*DailyFile, error) {
	if now == nil {
		now = time.Now
	}
	// Fix G301: Reduce directory permissions to 0750
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	d := &DailyFile{dir: dir, now: now}
	if err := d.rotate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.now().Format("2006-01-02") != d.day {
		if err := d.rotate(); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

// Path returns the file currently written to
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Name()
}

// Close closes the current file
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DailyFile) rotate() error {
	day := d.now().Format("2006-01-02")
	path := filepath.Join(d.dir, day+".log")
	if !isValidLogPath(d.dir, path) {
		return fmt.Errorf("invalid log file path: %s", path)
	}

	// Fix G302, G304: Reduce file permissions to 0600 and validate path
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 - path is validated by isValidLogPath
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file, d.day = f, day
	return nil
}

// isValidLogPath checks that path stays inside dir
func isValidLogPath(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(absPath, absDir+string(filepath.Separator))
}

// New builds the root logger. The returned closer releases the log file.
func New(opt Options) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = time.RFC3339

	var console io.Writer = os.Stderr
	if opt.Console != nil {
		console = opt.Console
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}}

	var closer io.Closer = nopCloser{}
	if opt.Dir != "" {
		f, err := NewDailyFile(opt.Dir, opt.Now)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		writers = append(writers, f)
		closer = f
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opt.Level)).
		With().Timestamp().Logger()
	return log, closer, nil
}

// ParseLevel maps a level name to zerolog, defaulting to info
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
