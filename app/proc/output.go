package proc

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

const prefixMaxLen = 32
const prefixCutSuffix = "..."

// LogPrefixer implements io.Writer and adds {job id} prefix to each output line
type LogPrefixer struct {
	writer io.Writer
	prefix []byte
}

// NewLogPrefixer makes prefixer writing to writer
func NewLogPrefixer(writer io.Writer, jobID string) *LogPrefixer {
	return &LogPrefixer{writer: writer, prefix: prefixFor(jobID)}
}

func (p *LogPrefixer) Write(data []byte) (int, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	var bytesWritten int
	for {
		line, err := reader.ReadBytes('\n')
		// there can be data in line even with io.EOF, exit immediately only on unexpected error
		if err != nil && err != io.EOF {
			return bytesWritten, err
		}
		if len(line) > 0 {
			if _, writeErr := p.writer.Write(p.prefix); writeErr != nil {
				return bytesWritten, writeErr
			}
			n, writeErr := p.writer.Write(line)
			bytesWritten += n
			if writeErr != nil {
				return bytesWritten, writeErr
			}
		}
		if err == io.EOF {
			break
		}
	}
	return bytesWritten, nil
}

func prefixFor(jobID string) []byte {
	if len(jobID) > prefixMaxLen {
		jobID = jobID[:prefixMaxLen] + prefixCutSuffix
	}
	return []byte(fmt.Sprintf("{%s} ", jobID))
}

// MaxLineLen limits a single output line, longer lines are split
const MaxLineLen = 64 * 1024

// LineWriter is io.Writer calling fn for every complete line. Invalid utf-8 replaced,
// a partial line is kept till the next write or Flush, up to MaxLineLen. Thread safe.
type LineWriter struct {
	fn      func(line string)
	mu      sync.Mutex
	partial []byte
}

// NewLineWriter makes LineWriter
func NewLineWriter(fn func(line string)) *LineWriter {
	return &LineWriter{fn: fn}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		w.emit(w.partial[:idx])
		w.partial = w.partial[idx+1:]
	}
	if len(w.partial) >= MaxLineLen {
		for len(w.partial) >= MaxLineLen {
			w.emit(w.partial[:MaxLineLen])
			w.partial = w.partial[MaxLineLen:]
		}
		w.partial = bytes.Clone(w.partial)
	}
	return len(p), nil
}

// Flush sends the remaining partial line, if any
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit(w.partial)
		w.partial = nil
	}
}

func (w *LineWriter) emit(line []byte) {
	s := strings.ToValidUTF8(strings.TrimRight(string(line), "\r"), "�")
	if s == "" {
		return
	}
	w.fn(s)
}

// Env returns os environment with extra variables set, extra wins on conflicts
func Env(extra map[string]string) []string {
	res := make([]string, 0, len(os.Environ())+len(extra))
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		if _, found := extra[k]; found {
			continue
		}
		res = append(res, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		res = append(res, k+"="+extra[k])
	}
	return res
}
