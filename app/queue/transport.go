package queue

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/proc"
)

// ErrNotClaimed returned when no watcher picked the job up in time
var ErrNotClaimed = errors.New("job not claimed by a watcher")

// FileTransport dispatches jobs to the watcher through the queue and follows their output
type FileTransport struct {
	Queue        *Queue
	LogWait      time.Duration // how long to wait for the log file to appear
	ClaimTimeout time.Duration // max wait for a watcher to start the job, no limit if 0
	TailInterval time.Duration
}

// NewFileTransport makes FileTransport with default timings
func NewFileTransport(q *Queue) *FileTransport {
	return &FileTransport{Queue: q, LogWait: time.Minute, ClaimTimeout: 10 * time.Minute, TailInterval: 500 * time.Millisecond}
}

// Dispatch queues the job
func (t *FileTransport) Dispatch(_ context.Context, d Descriptor) error {
	return t.Queue.Put(d)
}

// Follow tails job log by byte offset calling onLine for each line, till the descriptor is removed.
// If the log doesn't show up within LogWait it keeps waiting for completion without output.
// A job with neither log nor completion after ClaimTimeout is canceled and ErrNotClaimed returned.
// Returns the job exit code, ErrNoExitCode if the job finished without one.
func (t *FileTransport) Follow(ctx context.Context, jobID string, onLine func(string)) (int, error) {
	logPath := t.Queue.LogPath(jobID)
	st := time.Now()
	deadline := st.Add(t.LogWait)
	ticker := time.NewTicker(t.TailInterval)
	defer ticker.Stop()

	var tail *logTail
	defer func() {
		if tail != nil {
			tail.close()
		}
	}()
	degraded := false

	for {
		if tail == nil && !degraded {
			if fh, err := os.Open(logPath); err == nil { //nolint:gosec // path inside queue log dir
				tail = &logTail{fh: fh}
			} else if time.Now().After(deadline) {
				log.Printf("[WARN] log of %s not found after %v, no further output", jobID, t.LogWait)
				degraded = true
			}
		}
		if tail != nil {
			tail.read(onLine)
		}

		if !t.Queue.Exists(jobID) {
			if tail == nil && !degraded {
				if fh, err := os.Open(logPath); err == nil { //nolint:gosec // path inside queue log dir
					tail = &logTail{fh: fh}
				}
			}
			if tail != nil {
				tail.read(onLine)
				tail.flush(onLine)
			}
			return t.Queue.ExitCode(jobID)
		}
		if tail == nil && t.ClaimTimeout > 0 && time.Since(st) > t.ClaimTimeout {
			if err := t.Cancel(jobID); err != nil {
				log.Printf("[WARN] can't cancel unclaimed job %s, %v", jobID, err)
			}
			return -1, fmt.Errorf("%w after %v", ErrNotClaimed, t.ClaimTimeout)
		}

		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cancel asks the watcher to stop the job and removes its descriptor, so a not yet claimed job never starts
func (t *FileTransport) Cancel(jobID string) error {
	if err := t.Queue.RequestCancel(jobID); err != nil {
		return err
	}
	t.Queue.remove(jobID)
	return nil
}

type logTail struct {
	fh      *os.File
	offset  int64
	partial []byte
}

func (l *logTail) read(onLine func(string)) {
	if st, err := l.fh.Stat(); err == nil && st.Size() < l.offset {
		l.offset = 0 // truncated
		l.partial = nil
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := l.fh.ReadAt(buf, l.offset)
		if n > 0 {
			l.offset += int64(n)
			l.partial = append(l.partial, buf[:n]...)
			l.emit(onLine)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("[WARN] can't read %s, %v", l.fh.Name(), err)
			}
			return
		}
	}
}

func (l *logTail) emit(onLine func(string)) {
	for {
		idx := bytes.IndexByte(l.partial, '\n')
		if idx < 0 {
			return
		}
		if line := decodeLine(l.partial[:idx]); line != "" {
			onLine(line)
		}
		l.partial = l.partial[idx+1:]
	}
	if len(l.partial) >= proc.MaxLineLen {
		for len(l.partial) >= proc.MaxLineLen {
			if line := decodeLine(l.partial[:proc.MaxLineLen]); line != "" {
				onLine(line)
			}
			l.partial = l.partial[proc.MaxLineLen:]
		}
		l.partial = bytes.Clone(l.partial)
	}
}

func (l *logTail) flush(onLine func(string)) {
	if line := decodeLine(l.partial); line != "" {
		onLine(line)
	}
	l.partial = nil
}

func (l *logTail) close() {
	if err := l.fh.Close(); err != nil {
		log.Printf("[DEBUG] can't close %s, %v", l.fh.Name(), err)
	}
}

func decodeLine(b []byte) string {
	return strings.ToValidUTF8(strings.TrimRight(string(b), "\r"), "�")
}

// String describes transport for logs
func (t *FileTransport) String() string {
	return fmt.Sprintf("queue %s", t.Queue.Dir())
}
