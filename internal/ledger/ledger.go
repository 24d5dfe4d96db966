// Package ledger persists the set of catalog ids that have already been
// notified, so a giveaway is announced at most once.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lootbot/pkg/logx"
)

// Entry keeps minimal context next to each notified id; only the id
// matters for dedup, the rest helps when inspecting the file by hand.
type Entry struct {
	Name   string    `json:"name"`
	SentAt time.Time `json:"sent_at"`
}

// Ledger is a file-backed set of notified ids. The set only grows; there
// is no expiry (a giveaway notified once stays notified).
type Ledger struct {
	path string
	log  logx.Logger

	mu   sync.Mutex
	sent map[string]Entry
}

// Open loads the ledger at path. A missing or unreadable file yields an
// empty ledger rather than a startup failure.
func Open(path string, log logx.Logger) *Ledger {
	if log.IsZero() {
		log = logx.Nop()
	}
	l := &Ledger{path: path, log: log, sent: map[string]Entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("ledger unreadable, starting empty", logx.String("path", path), logx.Err(err))
		}
		return l
	}
	if len(data) == 0 {
		return l
	}
	if err := json.Unmarshal(data, &l.sent); err != nil {
		log.Warn("ledger corrupt, starting empty", logx.String("path", path), logx.Err(err))
		l.sent = map[string]Entry{}
		return l
	}
	log.Info("ledger loaded", logx.String("path", path), logx.Int("entries", len(l.sent)))
	return l
}

// Contains reports whether id has already been notified.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.sent[id]
	return ok
}

// Record marks id as notified and persists the set before returning.
// Recording an id twice is a no-op. A persist failure leaves the id
// marked in memory: better to lose the write than to re-notify forever.
func (l *Ledger) Record(id, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.sent[id]; ok {
		return nil
	}
	l.sent[id] = Entry{Name: name, SentAt: time.Now().UTC()}
	return l.persistLocked()
}

// Len returns the number of notified ids.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

// persistLocked writes the whole set atomically (tmp + rename), so a
// crash mid-write never leaves a truncated ledger behind.
func (l *Ledger) persistLocked() error {
	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(l.sent, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("rename ledger: %w", err)
	}
	return nil
}
