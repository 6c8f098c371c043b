// Package store provides the history of closed toasts, kept in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jmylchreest/toastd/internal/model"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Errors
var (
	ErrStoreClosed = errors.New("store is closed")
	ErrNotFound    = errors.New("history entry not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL,
	reason      INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	closed_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_closed_at ON history(closed_at);
CREATE INDEX IF NOT EXISTS idx_history_kind ON history(kind);
`

// ChangeType indicates the type of store change.
type ChangeType int

const (
	// ChangeTypeAdd indicates entries were added.
	ChangeTypeAdd ChangeType = iota
	// ChangeTypeClear indicates all entries were cleared.
	ChangeTypeClear
	// ChangeTypePrune indicates entries were pruned.
	ChangeTypePrune
)

// ChangeEvent signals store content changes.
type ChangeEvent struct {
	Type  ChangeType
	Count int
}

// Record is one closed toast.
type Record struct {
	ID         string            `json:"id" yaml:"id"`
	Kind       model.Kind        `json:"kind" yaml:"kind"`
	Title      string            `json:"title" yaml:"title"`
	Body       string            `json:"body" yaml:"body"`
	DurationMs int               `json:"duration_ms" yaml:"duration_ms"`
	Reason     model.CloseReason `json:"reason" yaml:"reason"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
	ClosedAt   time.Time         `json:"closed_at" yaml:"closed_at"`
}

// Lifetime is how long the toast was on screen before it began closing.
func (r Record) Lifetime() time.Duration {
	return r.ClosedAt.Sub(r.CreatedAt)
}

// RecordFromToast converts a closed toast into a history record.
func RecordFromToast(t *model.Toast) Record {
	closed := t.ClosedAt
	if closed.IsZero() {
		closed = t.CreatedAt
	}
	reason := t.Reason
	if reason == 0 {
		reason = model.ReasonClosed
	}
	return Record{
		ID:         t.ID,
		Kind:       t.Kind,
		Title:      t.Title,
		Body:       t.Body,
		DurationMs: t.DurationMs,
		Reason:     reason,
		CreatedAt:  t.CreatedAt,
		ClosedAt:   closed,
	}
}

// FilterOptions specifies criteria for listing history.
type FilterOptions struct {
	Since  time.Time         // Only entries closed at or after Since (zero = all)
	Kind   model.Kind        // Exact kind (empty = any)
	Reason model.CloseReason // Exact reason (0 = any)
	Search string            // Case-insensitive substring of title or body
	Limit  int               // Maximum results (0 = unlimited)
}

// Store is the SQLite-backed history. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	mu          sync.RWMutex
	subscribers []chan ChangeEvent
	closed      bool
}

// Open opens or creates the history database at path and applies the
// schema. Use MemoryPath for a throwaway database.
func Open(path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	// One connection: SQLite has a single writer, and each connection to
	// :memory: would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Add stores one record. Re-adding an existing id is a no-op.
func (s *Store) Add(ctx context.Context, r Record) error {
	return s.AddBatch(ctx, []Record{r})
}

// AddBatch stores records in a single transaction.
func (s *Store) AddBatch(ctx context.Context, rs []Record) error {
	if len(rs) == 0 {
		return nil
	}
	if err := s.checkOpen(); err != nil {
		return err
	}

	added := 0
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO history
			(id, kind, title, body, duration_ms, reason, created_at, closed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range rs {
			res, err := stmt.ExecContext(ctx, r.ID, string(r.Kind), r.Title, r.Body,
				r.DurationMs, uint32(r.Reason), r.CreatedAt.UnixMilli(), r.ClosedAt.UnixMilli())
			if err != nil {
				return fmt.Errorf("failed to insert %s: %w", r.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if added > 0 {
		s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, Count: added})
	}
	return nil
}

// Recent returns matching records, newest first.
func (s *Store) Recent(ctx context.Context, opts FilterOptions) ([]Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !opts.Since.IsZero() {
		where = append(where, "closed_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(opts.Kind))
	}
	if opts.Reason != 0 {
		where = append(where, "reason = ?")
		args = append(args, uint32(opts.Reason))
	}
	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR body LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT id, kind, title, body, duration_ms, reason, created_at, closed_at FROM history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY closed_at DESC, id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if err := s.checkOpen(); err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, title, body, duration_ms, reason, created_at, closed_at
		FROM history WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n)
	return n, err
}

// Prune deletes records closed before olderThan (zero = no age limit) and
// then keeps at most keep of the newest (0 = unlimited). It returns the
// number of deleted records.
func (s *Store) Prune(ctx context.Context, olderThan time.Time, keep int) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var deleted int64
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if !olderThan.IsZero() {
			res, err := tx.ExecContext(ctx, `DELETE FROM history WHERE closed_at < ?`, olderThan.UnixMilli())
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		if keep > 0 {
			res, err := tx.ExecContext(ctx, `DELETE FROM history WHERE id NOT IN
				(SELECT id FROM history ORDER BY closed_at DESC, id DESC LIMIT ?)`, keep)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}

	if deleted > 0 {
		s.notifyChange(ChangeEvent{Type: ChangeTypePrune, Count: int(deleted)})
	}
	return int(deleted), nil
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	n, _ := res.RowsAffected()
	s.notifyChange(ChangeEvent{Type: ChangeTypeClear, Count: int(n)})
	return nil
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	if s.closed {
		close(ch)
		return ch
	}
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(ch <-chan ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close releases the database and closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil

	return s.db.Close()
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (s *Store) notifyChange(event ChangeEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, skip
		}
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r                 Record
		kind              string
		reason            uint32
		created, closedAt int64
	)
	if err := sc.Scan(&r.ID, &kind, &r.Title, &r.Body, &r.DurationMs, &reason, &created, &closedAt); err != nil {
		return Record{}, err
	}
	r.Kind = model.Kind(kind)
	r.Reason = model.CloseReason(reason)
	r.CreatedAt = time.UnixMilli(created)
	r.ClosedAt = time.UnixMilli(closedAt)
	return r, nil
}
