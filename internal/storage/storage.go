package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kalambet/folio/internal/profile"
)

//go:embed migrations
var migrationsFS embed.FS

// Backend is a profile document store that owns a database connection.
type Backend interface {
	profile.Store
	Close() error
}

// Open selects a backend from databaseURL:
//
//	""                               SQLite file folio.db under dataDir
//	":memory:"                       in-memory SQLite (tests)
//	"sqlite://<path>"                SQLite file at path
//	"postgres://" / "postgresql://"  PostgreSQL via pgx
func Open(ctx context.Context, databaseURL, dataDir string) (Backend, error) {
	switch {
	case databaseURL == "":
		return OpenSQLite(dataDir)
	case databaseURL == ":memory:":
		return OpenSQLite(":memory:")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return openSQLiteFile(strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return OpenPostgres(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database url %q: want sqlite:// or postgres://", redact(databaseURL))
	}
}

// Describe names the backend Open would select, without credentials.
func Describe(databaseURL, dataDir string) string {
	switch {
	case databaseURL == "":
		return "sqlite " + filepath.Join(dataDir, sqliteFileName)
	case databaseURL == ":memory:":
		return "sqlite (in-memory)"
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return "sqlite " + strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return redact(databaseURL)
	}
}

// redact hides credentials in a connection string for error messages.
func redact(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return u
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return u
}

// dialect captures the SQL differences migrate has to care about.
type dialect struct {
	name        string
	bootstrap   string
	placeholder string
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		bootstrap: `CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		placeholder: "?",
	}
	postgresDialect = dialect{
		name: "postgres",
		bootstrap: `CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		placeholder: "$1",
	}
)

// migrate reads the embedded SQL migration files for d and applies any that
// haven't been run yet, each in its own transaction.
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	if _, err := db.ExecContext(ctx, d.bootstrap); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	dir := "migrations/" + d.name
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		q := "SELECT COUNT(*) FROM schema_version WHERE version = " + d.placeholder
		if err := db.QueryRowContext(ctx, q, version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, dir+"/"+entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES ("+d.placeholder+")", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) ([]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
