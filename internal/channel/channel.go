// Package channel provides the output channel: an append-only line buffer
// that is flushed to the user on demand and optionally mirrored to a
// rotating log file.
package channel

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating file mirror.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Channel collects lines for one named output stream.
type Channel struct {
	mu      sync.Mutex
	name    string
	out     io.Writer
	file    io.WriteCloser
	lines   []string
	flushed int
	now     func() time.Time
}

// New creates a channel that writes to out when shown.
func New(name string, out io.Writer) *Channel {
	return &Channel{name: name, out: out, now: time.Now}
}

// WithFile mirrors every appended line to a rotating file.
func (c *Channel) WithFile(cfg FileConfig) *Channel {
	if cfg.Path == "" {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.file = &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return c
}

// AppendLine implements conflict.OutputChannel.
func (c *Channel) AppendLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
	if c.file != nil {
		_, _ = fmt.Fprintf(c.file, "%s [%s] %s\n", c.now().UTC().Format(time.RFC3339), c.name, line)
	}
}

// Show writes the lines appended since the previous Show.
func (c *Channel) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flushed == len(c.lines) {
		return
	}
	for _, line := range c.lines[c.flushed:] {
		_, _ = fmt.Fprintln(c.out, line)
	}
	c.flushed = len(c.lines)
}

// Lines returns every appended line.
func (c *Channel) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

// Close shows pending lines and closes the file mirror.
func (c *Channel) Close() error {
	c.Show()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
