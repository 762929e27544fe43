package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/kalambet/folio/internal/profile"
)

// PostgresStore keeps profile documents in a JSONB column.
type PostgresStore struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// OpenPostgres connects to dsn, pings, and runs pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["application_name"] = "folio"
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{pool: pool, sqlDB: stdlib.OpenDBFromPool(pool)}
	if err := migrate(ctx, s.sqlDB, postgresDialect); err != nil {
		s.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	var err error
	if s.sqlDB != nil {
		err = s.sqlDB.Close()
	}
	s.pool.Close()
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// AppliedMigrations returns the applied migration versions in ascending order.
func (s *PostgresStore) AppliedMigrations(ctx context.Context) ([]int, error) {
	return appliedMigrations(ctx, s.sqlDB)
}

func (s *PostgresStore) InsertProfile(ctx context.Context, p profile.Profile) error {
	doc, err := encodeDoc(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Email, doc, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if isUniqueViolationPG(err) {
		return profile.ErrDuplicateProfile
	}
	return err
}

func (s *PostgresStore) FindProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	return queryOnePG(ctx, s.pool, `SELECT doc FROM profiles WHERE email = $1`, email)
}

func (s *PostgresStore) FirstProfile(ctx context.Context) (profile.Profile, error) {
	return queryOnePG(ctx, s.pool, `SELECT doc FROM profiles ORDER BY created_at ASC, seq ASC LIMIT 1`)
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, email string, fn func(*profile.Profile) error) (profile.Profile, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("beginning update transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := queryOnePG(ctx, tx, `SELECT doc FROM profiles WHERE email = $1 FOR UPDATE`, email)
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
	_, err = tx.Exec(ctx, `UPDATE profiles SET email = $1, doc = $2, updated_at = $3 WHERE id = $4`,
		p.Email, doc, p.UpdatedAt.UTC(), p.ID)
	if isUniqueViolationPG(err) {
		return profile.Profile{}, profile.ErrDuplicateProfile
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("writing profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return profile.Profile{}, fmt.Errorf("committing update: %w", err)
	}
	return p, nil
}

// SearchProfiles matches with strpos() so the query is always literal.
func (s *PostgresStore) SearchProfiles(ctx context.Context, query string) ([]profile.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.doc FROM profiles p
		WHERE strpos(lower(p.doc->>'name'), lower($1)) > 0
		   OR EXISTS (
				SELECT 1 FROM jsonb_array_elements_text(COALESCE(p.doc->'skills', '[]'::jsonb)) sk
				WHERE strpos(lower(sk), lower($1)) > 0)
		   OR EXISTS (
				SELECT 1 FROM jsonb_array_elements(COALESCE(p.doc->'projects', '[]'::jsonb)) pr
				WHERE strpos(lower(pr->>'title'), lower($1)) > 0
				   OR strpos(lower(pr->>'description'), lower($1)) > 0)
		ORDER BY p.created_at ASC, p.seq ASC`,
		query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []profile.Profile
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		p, err := decodeDoc(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// pgQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryOnePG(ctx context.Context, q pgQuerier, query string, args ...any) (profile.Profile, error) {
	var doc []byte
	err := q.QueryRow(ctx, query, args...).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}
	return decodeDoc(doc)
}

func isUniqueViolationPG(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
