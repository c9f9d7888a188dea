package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"platter/internal/config"
)

// Store manages rip-session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// ErrNotFound indicates the requested session does not exist.
var ErrNotFound = errors.New("session not found")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Paths.JournalPath)
}

// OpenPath opens the journal at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CreateSession records a new rip session for the disc.
func (s *Store) CreateSession(ctx context.Context, discID, albumTitle, albumArtist string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:          uuid.NewString(),
		DiscID:      discID,
		AlbumTitle:  albumTitle,
		AlbumArtist: albumArtist,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO sessions (id, disc_id, album_title, album_artist, status, error_message, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, '', ?, ?)`,
		session.ID, session.DiscID, session.AlbumTitle, session.AlbumArtist,
		string(session.Status), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// UpdateSessionStatus transitions a session's lifecycle status. The error
// message is recorded alongside failed transitions and cleared otherwise.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid session status %q", status)
	}
	if status != StatusFailed {
		errorMessage = ""
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE sessions SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		string(status), errorMessage, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordTrack upserts one track's outcome for a session.
func (s *Store) RecordTrack(ctx context.Context, entry TrackEntry) error {
	if entry.SessionID == "" {
		return fmt.Errorf("track entry requires a session id")
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO session_tracks (session_id, track_number, title, state, scale, error_message, lossless_path, lossy_path, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(session_id, track_number) DO UPDATE SET
             title = excluded.title,
             state = excluded.state,
             scale = excluded.scale,
             error_message = excluded.error_message,
             lossless_path = excluded.lossless_path,
             lossy_path = excluded.lossy_path,
             updated_at = excluded.updated_at`,
		entry.SessionID, entry.TrackNumber, entry.Title, entry.State, entry.Scale,
		entry.ErrorMessage, entry.LosslessPath, entry.LossyPath,
		formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("record track: %w", err)
	}
	return nil
}

// GetSession loads one session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, disc_id, album_title, album_artist, status, error_message, created_at, updated_at
         FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// FindByDiscID returns the most recent session for a disc fingerprint, or
// ErrNotFound when the disc has never been ripped.
func (s *Store) FindByDiscID(ctx context.Context, discID string) (*Session, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, disc_id, album_title, album_artist, status, error_message, created_at, updated_at
         FROM sessions WHERE disc_id = ? ORDER BY created_at DESC LIMIT 1`, discID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, disc_id, album_title, album_artist, status, error_message, created_at, updated_at
         FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// SessionTracks returns a session's track entries in track order.
func (s *Store) SessionTracks(ctx context.Context, sessionID string) ([]TrackEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, track_number, title, state, scale, error_message, lossless_path, lossy_path, updated_at
         FROM session_tracks WHERE session_id = ? ORDER BY track_number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var entries []TrackEntry
	for rows.Next() {
		var (
			entry     TrackEntry
			updatedAt string
		)
		if err := rows.Scan(&entry.SessionID, &entry.TrackNumber, &entry.Title, &entry.State,
			&entry.Scale, &entry.ErrorMessage, &entry.LosslessPath, &entry.LossyPath, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		entry.UpdatedAt = parseTime(updatedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return entries, nil
}

// DeleteSession removes a session and its track entries.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session            Session
		status             string
		createdAt, updated string
	)
	if err := row.Scan(&session.ID, &session.DiscID, &session.AlbumTitle, &session.AlbumArtist,
		&status, &session.ErrorMessage, &createdAt, &updated); err != nil {
		return nil, err
	}
	session.Status = Status(status)
	session.CreatedAt = parseTime(createdAt)
	session.UpdatedAt = parseTime(updated)
	return &session, nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
