package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gaugekit/gauge/internal/pkg/errors"
)

// JournalEntry is one line of the event journal.
type JournalEntry struct {
	Topic    string    `json:"topic"`
	LoggedAt time.Time `json:"logged_at"`
	Event    Event     `json:"event"`
}

// EventLog appends every published event to a JSONL journal so runs can be
// audited and replayed later. A zero path disables it.
type EventLog struct {
	path string

	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// maxJournalLine bounds a single journal line on read.
const maxJournalLine = 4 << 20

// OpenEventLog opens path for appending, creating its directory.
// An empty path returns a disabled log.
func OpenEventLog(path string) (*EventLog, error) {
	l := &EventLog{path: path}
	if path == "" {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "create event log directory", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "open event log", err)
	}
	l.file = f
	l.enc = json.NewEncoder(f)
	return l, nil
}

// Enabled reports whether entries are written.
func (l *EventLog) Enabled() bool { return l.path != "" }

// Path returns the journal path.
func (l *EventLog) Path() string { return l.path }

// Append writes one entry and syncs the file.
func (l *EventLog) Append(topic string, event Event) error {
	if !l.Enabled() {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeUnavailable, "event log is closed")
	}
	entry := JournalEntry{Topic: topic, LoggedAt: time.Now().UTC(), Event: event}
	if err := l.enc.Encode(entry); err != nil {
		return errors.Wrap(errors.CodeInternal, "encode journal entry", err)
	}
	return l.file.Sync()
}

// Filter selects journal entries. Zero fields match everything.
type Filter struct {
	Since time.Time
	Topic string
	RunID string
	Limit int
}

func (f Filter) match(e JournalEntry) bool {
	if !f.Since.IsZero() && !e.LoggedAt.After(f.Since) {
		return false
	}
	if f.Topic != "" && e.Topic != f.Topic {
		return false
	}
	if f.RunID != "" && e.Event.RunID != f.RunID {
		return false
	}
	return true
}

// Entries reads matching entries in write order. Corrupt lines are skipped.
func (l *EventLog) Entries(f Filter) ([]JournalEntry, error) {
	if !l.Enabled() {
		return nil, errors.New(errors.CodeUnavailable, "event log is disabled")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.CodeInternal, "open event log", err)
	}
	defer file.Close()

	var out []JournalEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxJournalLine)
	for scanner.Scan() {
		var e JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if !f.match(e) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "scan event log", err)
	}
	return out, nil
}

// Replay republishes matching entries to b and returns how many were sent.
func (l *EventLog) Replay(ctx context.Context, b Bus, f Filter) (int, error) {
	entries, err := l.Entries(f)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := b.Publish(ctx, e.Topic, e.Event); err != nil {
			return i, errors.Wrap(errors.CodeUnavailable, "replay event "+e.Event.ID, err)
		}
	}
	return len(entries), nil
}

// Close closes the journal file. It is safe to call twice.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.enc = nil
	return err
}
