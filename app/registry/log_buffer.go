package registry

import (
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultLogLines is capacity of per-job log buffer
const DefaultLogLines = 50

// LogBuffer keeps the last N output lines of a job in a circular buffer. Thread safe.
type LogBuffer struct {
	maxLines int
	lines    []string
	mu       sync.Mutex
}

// NewLogBuffer makes buffer limited to last max lines
func NewLogBuffer(maximum int) *LogBuffer {
	return &LogBuffer{maxLines: maximum}
}

// Add appends a line, invalid utf-8 sequences replaced
func (b *LogBuffer) Add(line string) {
	if b.maxLines == 0 {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, "�")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) >= b.maxLines {
		b.lines = b.lines[1:]
	}
	b.lines = append(b.lines, line)
}

// Lines returns copy of buffered lines, oldest first
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	res := make([]string, len(b.lines))
	copy(res, b.lines)
	return res
}

// Tail returns last n lines joined with new lines
func (b *LogBuffer) Tail(n int) string {
	lines := b.Lines()
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
