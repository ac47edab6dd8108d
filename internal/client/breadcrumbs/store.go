// Package breadcrumbs implements the on-device landmark-photo subsystem:
// capture with a per-session cap, immediate upload, and a durable retry
// queue drained in the background. State lives in an embedded sqlite file
// so queued uploads survive process restarts.
package breadcrumbs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// MaxPerSession caps breadcrumbs per parking session.
	MaxPerSession = 5

	// queueCap bounds the retry queue; the oldest item is dropped past it.
	queueCap = 50
)

// Breadcrumb is a locally captured landmark photo plus its upload state.
type Breadcrumb struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	LocalPath  string    `json:"local_path"`
	RemotePath string    `json:"remote_path,omitempty"`
	Uploaded   bool      `json:"uploaded"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueueItem is one pending retry descriptor.
type QueueItem struct {
	ID          int64           `json:"id"`
	ItemType    string          `json:"item_type"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	NextRetryAt time.Time       `json:"next_retry_at"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// uploadPayload is the payload carried by breadcrumb_upload queue items.
type uploadPayload struct {
	BreadcrumbID string `json:"breadcrumb_id"`
	SessionID    string `json:"session_id"`
	LocalPath    string `json:"local_path"`
}

const itemTypeUpload = "breadcrumb_upload"

// Store persists breadcrumbs and the retry queue in a local sqlite file.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the on-device database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open breadcrumb store: %w", err)
	}
	// Single writer; the drain loop and capture path share one connection.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS breadcrumbs (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		local_path  TEXT NOT NULL,
		remote_path TEXT NOT NULL DEFAULT '',
		uploaded    INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_breadcrumbs_session ON breadcrumbs (session_id);
	CREATE TABLE IF NOT EXISTS upload_queue (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		item_type     TEXT NOT NULL,
		payload       TEXT NOT NULL,
		attempts      INTEGER NOT NULL DEFAULT 0,
		next_retry_at INTEGER NOT NULL DEFAULT 0,
		enqueued_at   INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize breadcrumb schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CountBreadcrumbs returns how many breadcrumbs a session holds.
func (s *Store) CountBreadcrumbs(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM breadcrumbs WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count breadcrumbs: %w", err)
	}
	return count, nil
}

// InsertBreadcrumb stores a freshly captured breadcrumb.
func (s *Store) InsertBreadcrumb(ctx context.Context, b *Breadcrumb) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO breadcrumbs (id, session_id, local_path, remote_path, uploaded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.SessionID, b.LocalPath, b.RemotePath, boolToInt(b.Uploaded), b.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert breadcrumb: %w", err)
	}
	return nil
}

// MarkUploaded records a successful upload from either the immediate path
// or a later retry.
func (s *Store) MarkUploaded(ctx context.Context, breadcrumbID, remotePath string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE breadcrumbs SET uploaded = 1, remote_path = ? WHERE id = ?`,
		remotePath, breadcrumbID)
	if err != nil {
		return fmt.Errorf("failed to mark breadcrumb uploaded: %w", err)
	}
	return nil
}

// GetBreadcrumb retrieves one breadcrumb by id.
func (s *Store) GetBreadcrumb(ctx context.Context, breadcrumbID string) (*Breadcrumb, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, local_path, remote_path, uploaded, created_at
		 FROM breadcrumbs WHERE id = ?`, breadcrumbID)
	return scanBreadcrumb(row)
}

// ListBreadcrumbs returns a session's breadcrumbs, oldest first.
func (s *Store) ListBreadcrumbs(ctx context.Context, sessionID string) ([]Breadcrumb, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, local_path, remote_path, uploaded, created_at
		 FROM breadcrumbs WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list breadcrumbs: %w", err)
	}
	defer rows.Close()

	var out []Breadcrumb
	for rows.Next() {
		var b Breadcrumb
		var uploaded int
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.SessionID, &b.LocalPath, &b.RemotePath, &uploaded, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan breadcrumb: %w", err)
		}
		b.Uploaded = uploaded != 0
		b.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Enqueue appends a retry descriptor, dropping the oldest items once the
// queue cap is exceeded.
func (s *Store) Enqueue(ctx context.Context, itemType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode queue payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin enqueue transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO upload_queue (item_type, payload, attempts, next_retry_at, enqueued_at)
		 VALUES (?, ?, 0, 0, ?)`,
		itemType, string(raw), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM upload_queue WHERE id NOT IN (
			SELECT id FROM upload_queue ORDER BY id DESC LIMIT ?
		)`, queueCap); err != nil {
		return fmt.Errorf("failed to trim queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit enqueue: %w", err)
	}
	return nil
}

// DueItems returns queued items whose retry time has passed, enqueue order.
func (s *Store) DueItems(ctx context.Context, now time.Time) ([]QueueItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_type, payload, attempts, next_retry_at, enqueued_at
		 FROM upload_queue WHERE next_retry_at <= ? ORDER BY id`, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list due queue items: %w", err)
	}
	defer rows.Close()

	var out []QueueItem
	for rows.Next() {
		var item QueueItem
		var payload string
		var nextRetry, enqueued int64
		if err := rows.Scan(&item.ID, &item.ItemType, &payload, &item.Attempts, &nextRetry, &enqueued); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		item.Payload = json.RawMessage(payload)
		item.NextRetryAt = time.Unix(nextRetry, 0)
		item.EnqueuedAt = time.Unix(enqueued, 0)
		out = append(out, item)
	}
	return out, rows.Err()
}

// PendingCount returns how many items sit in the queue.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM upload_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return count, nil
}

// RemoveItem deletes a queue item after a successful retry.
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM upload_queue WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
	}
	return nil
}

// BumpRetry records a failed attempt and schedules the next one.
func (s *Store) BumpRetry(ctx context.Context, itemID int64, attempts int, nextRetryAt time.Time) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE upload_queue SET attempts = ?, next_retry_at = ? WHERE id = ?`,
		attempts, nextRetryAt.Unix(), itemID); err != nil {
		return fmt.Errorf("failed to bump queue item: %w", err)
	}
	return nil
}

// ClearSession drops a session's breadcrumbs and any queued uploads for
// them. User-triggered; the only way to abandon a retry.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clear transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM upload_queue WHERE payload LIKE ?`,
		`%"session_id":"`+sessionID+`"%`); err != nil {
		return fmt.Errorf("failed to clear queued uploads: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM breadcrumbs WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear breadcrumbs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

func scanBreadcrumb(row *sql.Row) (*Breadcrumb, error) {
	var b Breadcrumb
	var uploaded int
	var createdAt int64
	err := row.Scan(&b.ID, &b.SessionID, &b.LocalPath, &b.RemotePath, &uploaded, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan breadcrumb: %w", err)
	}
	b.Uploaded = uploaded != 0
	b.CreatedAt = time.Unix(createdAt, 0)
	return &b, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
