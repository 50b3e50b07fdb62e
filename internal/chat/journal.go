package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// FileJournal writes one JSONL file per session under dir, named
// <customerID>_<sessionID>.jsonl.
type FileJournal struct {
	dir string
}

func NewFileJournal(dir string) *FileJournal {
	return &FileJournal{dir: dir}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileBase(customerID, sessionID string) string {
	id := unsafeName.ReplaceAllString(customerID, "_")
	if id == "" || id == "." || id == ".." {
		id = "unknown"
	}
	return id + "_" + sessionID
}

// Open creates the session's file exclusively. Sessions for the same customer
// started within the same second get a -N suffix instead of sharing a file.
func (j *FileJournal) Open(_ context.Context, customerID, sessionID string) (EventLog, error) {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	base := fileBase(customerID, sessionID)
	for n := 1; n <= 1000; n++ {
		name := base
		if n > 1 {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		path := filepath.Join(j.dir, name+".jsonl")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		enc := json.NewEncoder(f)
		enc.SetEscapeHTML(false)
		return &fileLog{path: path, f: f, enc: enc}, nil
	}
	return nil, fmt.Errorf("open event log: too many sessions named %s", base)
}

type fileLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
	enc  *json.Encoder
}

func (l *fileLog) Append(_ context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(ev)
}

// Replay reads the file back from disk.
func (l *fileLog) Replay(_ context.Context) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var out []Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		out = append(out, ev)
	}
	return out, sc.Err()
}

func (l *fileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// MultiJournal fans every event out to several journals.
type MultiJournal []Journal

// Open returns a log over every journal that opened, together with the
// joined errors of those that did not.
func (m MultiJournal) Open(ctx context.Context, customerID, sessionID string) (EventLog, error) {
	var (
		logs multiLog
		errs []error
	)
	for _, j := range m {
		l, err := j.Open(ctx, customerID, sessionID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logs = append(logs, l)
	}
	if len(logs) == 0 {
		return nil, errors.Join(errs...)
	}
	return logs, errors.Join(errs...)
}

type multiLog []EventLog

func (m multiLog) Append(ctx context.Context, ev Event) error {
	var errs []error
	for _, l := range m {
		if err := l.Append(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Replay reads from the first member that can.
func (m multiLog) Replay(ctx context.Context) ([]Event, error) {
	for _, l := range m {
		if r, ok := l.(Replayer); ok {
			return r.Replay(ctx)
		}
	}
	return nil, ErrHistoryUnavailable
}

func (m multiLog) Close() error {
	var errs []error
	for _, l := range m {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
