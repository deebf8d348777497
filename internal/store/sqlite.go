// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite.
// ABOUTME: Persists pinned profiles and admin tokens with automatic schema creation.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema is
// created if it doesn't exist, and parent directories are created if needed.
// Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in-memory database exists per connection; the pool must not open
	// a second one or it sees an empty schema.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS pinned_profiles (
			address TEXT PRIMARY KEY,
			handle TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS admin_tokens (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			token_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_used_at DATETIME
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// UpsertPinnedProfile inserts or replaces the pin for p.Address.
func (s *SQLiteStore) UpsertPinnedProfile(ctx context.Context, p *PinnedProfile) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pinned_profiles (address, handle, display_name, avatar_url, bio, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			handle = excluded.handle,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			bio = excluded.bio,
			updated_at = excluded.updated_at`,
		p.Address, p.Handle, p.DisplayName, p.AvatarURL, p.Bio, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting pinned profile: %w", err)
	}
	return nil
}

// GetPinnedProfile returns the pin for address, or ErrNotFound.
func (s *SQLiteStore) GetPinnedProfile(ctx context.Context, address string) (*PinnedProfile, error) {
	var p PinnedProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT address, handle, display_name, avatar_url, bio, created_at, updated_at
		FROM pinned_profiles WHERE address = ?`, address,
	).Scan(&p.Address, &p.Handle, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting pinned profile: %w", err)
	}
	return &p, nil
}

// DeletePinnedProfile removes the pin for address, or ErrNotFound.
func (s *SQLiteStore) DeletePinnedProfile(ctx context.Context, address string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pinned_profiles WHERE address = ?`, address)
	if err != nil {
		return fmt.Errorf("deleting pinned profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting pinned profile: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPinnedProfiles returns all pins ordered by address.
func (s *SQLiteStore) ListPinnedProfiles(ctx context.Context) ([]*PinnedProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, handle, display_name, avatar_url, bio, created_at, updated_at
		FROM pinned_profiles ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("listing pinned profiles: %w", err)
	}
	defer rows.Close()

	var pins []*PinnedProfile
	for rows.Next() {
		var p PinnedProfile
		if err := rows.Scan(&p.Address, &p.Handle, &p.DisplayName, &p.AvatarURL, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning pinned profile: %w", err)
		}
		pins = append(pins, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pinned profiles: %w", err)
	}
	return pins, nil
}

// CreateAdminToken persists a new admin token record.
func (s *SQLiteStore) CreateAdminToken(ctx context.Context, t *AdminToken) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_tokens (id, name, token_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.TokenHash, createdAt,
	)
	if err != nil {
		return fmt.Errorf("creating admin token: %w", err)
	}
	return nil
}

// GetAdminToken returns the token record for id, or ErrNotFound.
func (s *SQLiteStore) GetAdminToken(ctx context.Context, id string) (*AdminToken, error) {
	var t AdminToken
	var lastUsed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, token_hash, created_at, last_used_at
		FROM admin_tokens WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.TokenHash, &t.CreatedAt, &lastUsed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting admin token: %w", err)
	}
	if lastUsed.Valid {
		t.LastUsedAt = &lastUsed.Time
	}
	return &t, nil
}

// TouchAdminToken records when the token was last used.
func (s *SQLiteStore) TouchAdminToken(ctx context.Context, id string, when time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE admin_tokens SET last_used_at = ? WHERE id = ?`, when.UTC(), id)
	if err != nil {
		return fmt.Errorf("touching admin token: %w", err)
	}
	return nil
}

// ListAdminTokens returns all token records ordered by creation time.
func (s *SQLiteStore) ListAdminTokens(ctx context.Context) ([]*AdminToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, token_hash, created_at, last_used_at
		FROM admin_tokens ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing admin tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*AdminToken
	for rows.Next() {
		var t AdminToken
		var lastUsed sql.NullTime
		if err := rows.Scan(&t.ID, &t.Name, &t.TokenHash, &t.CreatedAt, &lastUsed); err != nil {
			return nil, fmt.Errorf("scanning admin token: %w", err)
		}
		if lastUsed.Valid {
			t.LastUsedAt = &lastUsed.Time
		}
		tokens = append(tokens, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing admin tokens: %w", err)
	}
	return tokens, nil
}

// DeleteAdminToken revokes the token with the given id, or ErrNotFound.
func (s *SQLiteStore) DeleteAdminToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_tokens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting admin token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting admin token: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
