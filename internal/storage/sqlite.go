package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kalambet/folio/internal/profile"
)

const sqliteFileName = "folio.db"

// SQLiteStore keeps profile documents as JSON text in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) folio.db in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	if dataDir == ":memory:" {
		return openSQLiteFile(":memory:")
	}
	return openSQLiteFile(filepath.Join(dataDir, sqliteFileName))
}

func openSQLiteFile(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := migrate(context.Background(), db, sqliteDialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *SQLiteStore) AppliedMigrations(ctx context.Context) ([]int, error) {
	return appliedMigrations(ctx, s.db)
}

func (s *SQLiteStore) InsertProfile(ctx context.Context, p profile.Profile) error {
	doc, err := encodeDoc(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Email, string(doc), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return profile.ErrDuplicateProfile
	}
	return err
}

func (s *SQLiteStore) FindProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	return s.queryOne(ctx, s.db, `SELECT doc FROM profiles WHERE email = ?`, email)
}

func (s *SQLiteStore) FirstProfile(ctx context.Context) (profile.Profile, error) {
	return s.queryOne(ctx, s.db, `SELECT doc FROM profiles ORDER BY created_at ASC, rowid ASC LIMIT 1`)
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, email string, fn func(*profile.Profile) error) (profile.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := s.queryOne(ctx, tx, `SELECT doc FROM profiles WHERE email = ?`, email)
	if err != nil {
		return profile.Profile{}, err
	}
	if err := fn(&p); err != nil {
		return profile.Profile{}, err
	}

	doc, err := encodeDoc(p)
	if err != nil {
		return profile.Profile{}, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE profiles SET email = ?, doc = ?, updated_at = ? WHERE id = ?`,
		p.Email, string(doc), formatTime(p.UpdatedAt), p.ID,
	)
	if isUniqueViolation(err) {
		return profile.Profile{}, profile.ErrDuplicateProfile
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("writing profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return profile.Profile{}, fmt.Errorf("committing update: %w", err)
	}
	return p, nil
}

// SearchProfiles matches with instr() so the query is always literal. SQLite
// lower() folds ASCII letters only.
func (s *SQLiteStore) SearchProfiles(ctx context.Context, query string) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.doc FROM profiles p
		WHERE instr(lower(json_extract(p.doc, '$.name')), lower(?1)) > 0
		   OR EXISTS (
				SELECT 1 FROM json_each(p.doc, '$.skills') sk
				WHERE instr(lower(sk.value), lower(?1)) > 0)
		   OR EXISTS (
				SELECT 1 FROM json_each(p.doc, '$.projects') pr
				WHERE instr(lower(json_extract(pr.value, '$.title')), lower(?1)) > 0
				   OR instr(lower(json_extract(pr.value, '$.description')), lower(?1)) > 0)
		ORDER BY p.created_at ASC, p.rowid ASC`,
		query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []profile.Profile
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		p, err := decodeDoc([]byte(doc))
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) queryOne(ctx context.Context, q querier, query string, args ...any) (profile.Profile, error) {
	var doc string
	err := q.QueryRowContext(ctx, query, args...).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}
	return decodeDoc([]byte(doc))
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
