package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// File is the JSON-Lines, disk-backed journal. Writes are serialized
// through a single internal writer goroutine draining a request queue —
// the "file handle with drain-on-close" redesign from spec.md 9: Close
// marks the journal closed (rejecting further Record calls), enqueues a
// sentinel, and waits for the writer to drain everything queued before it.
type File struct {
	mu     sync.Mutex
	closed bool

	reqCh  chan writeRequest
	doneCh chan struct{}
	f      *os.File
	path   string
}

type writeRequest struct {
	entry    Entry
	errCh    chan error
	sentinel bool
}

// ErrClosed is returned by Record once Close has been called.
var ErrClosed = errors.New("journal: closed")

// NewFile opens (or creates) path for append and starts the writer
// goroutine.
func NewFile(path string) (*File, error) {
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	jf := &File{
		reqCh:  make(chan writeRequest, 256),
		doneCh: make(chan struct{}),
		f:      fh,
		path:   path,
	}
	go jf.run()
	return jf, nil
}

func (f *File) run() {
	defer close(f.doneCh)
	for req := range f.reqCh {
		if req.sentinel {
			return
		}
		line, err := json.Marshal(req.entry)
		if err == nil {
			line = append(line, '\n')
			_, err = f.f.Write(line)
		}
		req.errCh <- err
	}
}

// Record enqueues entry for the writer goroutine and blocks until it has
// been written (or the write failed). Concurrent callers never interleave
// partial lines because only the writer goroutine ever touches the file
// handle.
func (f *File) Record(entry Entry) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	errCh := make(chan error, 1)
	f.reqCh <- writeRequest{entry: entry, errCh: errCh}
	f.mu.Unlock()
	return <-errCh
}

// Close drains all pending writes, then closes the underlying file. Further
// Record calls return ErrClosed. Idempotent.
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.reqCh <- writeRequest{sentinel: true}
	f.mu.Unlock()

	<-f.doneCh
	return f.f.Close()
}

// CorruptLine captures a journal line that failed to parse during Restore.
type CorruptLine struct {
	LineNumber int
	Raw        string
}

// RestoreResult is the outcome of reading a journal file back.
type RestoreResult struct {
	Entries      []Entry
	CorruptLines []CorruptLine
}

// Restore reads path and parses each line independently. A missing file
// yields an empty, error-free result. A path that is a directory is a hard
// filesystem error. Corrupt lines are captured in CorruptLines, never
// silently dropped.
func Restore(path string) (RestoreResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return RestoreResult{}, nil
	}
	if err != nil {
		return RestoreResult{}, fmt.Errorf("journal: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return RestoreResult{}, fmt.Errorf("journal: %s is a directory", path)
	}

	fh, err := os.Open(path)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer fh.Close()

	var result RestoreResult
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			result.CorruptLines = append(result.CorruptLines, CorruptLine{LineNumber: lineNo, Raw: raw})
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("journal: read %s: %w", path, err)
	}
	return result, nil
}
