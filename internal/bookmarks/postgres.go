package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sharevia/snapshotd/internal/snapshot"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool for the direct Postgres store.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore reconciles bookmarks against a Postgres table directly.
type PostgresStore struct {
	pool  pgxQuerier
	table string
}

// NewPostgresStore creates a pgx-backed store using the provided config.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStoreWithPool(pool, cfg.Table)
}

// NewPostgresStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresStoreWithPool(pool pgxQuerier, table string) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "bookmarks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresStore{pool: pool, table: table}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// FindByURL resolves a bookmark by exact URL. Creation order breaks ties:
// the most recent row wins.
func (s *PostgresStore) FindByURL(ctx context.Context, url string) (snapshot.Bookmark, error) {
	query := fmt.Sprintf(
		`SELECT id, url, COALESCE(snapshot_id, '') FROM %s WHERE url = $1 ORDER BY created_at DESC LIMIT 1`,
		s.table,
	)
	var b snapshot.Bookmark
	err := s.pool.QueryRow(ctx, query, url).Scan(&b.ID, &b.URL, &b.SnapshotID)
	if errors.Is(err, pgx.ErrNoRows) {
		return snapshot.Bookmark{}, fmt.Errorf("url %s: %w", url, snapshot.ErrNoMatchingRecord)
	}
	if err != nil {
		return snapshot.Bookmark{}, fmt.Errorf("query bookmark by url: %w: %v", snapshot.ErrStoreFailed, err)
	}
	return b, nil
}

// ApplyUpdate writes the sparse field set in one UPDATE statement, so a
// concurrent reader never observes a partially applied update.
func (s *PostgresStore) ApplyUpdate(ctx context.Context, id string, update snapshot.BookmarkUpdate) error {
	fields := updateFields(update)
	if len(fields) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, f := range fields {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", f.column, i+1))
		args = append(args, f.value)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d",
		s.table, strings.Join(assignments, ", "), len(args),
	)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update bookmark %s: %w: %v", id, snapshot.ErrStoreFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bookmark %s: %w", id, snapshot.ErrNoMatchingRecord)
	}
	return nil
}
