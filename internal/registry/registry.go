// Package registry stores the chats subscribed to giveaway alerts.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"lootbot/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS recipients (
	chat_id       INTEGER PRIMARY KEY,
	registered_at TEXT NOT NULL
);
`

// Registry is a SQLite-backed recipient set. Add is idempotent; there is
// no removal operation (Telegram's native block already stops delivery).
type Registry struct {
	db  *sql.DB
	log logx.Logger
}

func Open(path string, log logx.Logger) (*Registry, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("registry dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("registry migrate: %w", err)
	}
	return &Registry{db: db, log: log}, nil
}

func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Add registers a chat. Re-adding an existing chat keeps the original
// registration timestamp.
func (r *Registry) Add(ctx context.Context, chatID int64) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recipients(chat_id, registered_at) VALUES(?, ?)
		 ON CONFLICT(chat_id) DO NOTHING`,
		chatID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("registry add: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.log.Info("recipient registered", logx.Int64("chat_id", chatID))
	}
	return nil
}

// List returns all recipient chat ids in registration order.
func (r *Registry) List(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_id FROM recipients ORDER BY registered_at, chat_id`)
	if err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("registry list: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry list: %w", err)
	}
	return out, nil
}

// Count returns the number of registered recipients.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("registry count: %w", err)
	}
	return n, nil
}
