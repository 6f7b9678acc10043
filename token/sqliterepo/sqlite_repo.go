package sqliterepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/taskflow-client/token"
	_ "modernc.org/sqlite"
)

// SQLiteRepo stores credential entries in a single key/value table.
type SQLiteRepo struct {
	db      *sql.DB
	path    string
	timeout time.Duration
	nowFunc func() time.Time
}

var _ token.Repo = (*SQLiteRepo)(nil)

// New opens (creating if needed) the database at path. Use ":memory:" for a
// throwaway database.
func New(path string) (*SQLiteRepo, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("[sqliterepo.New] open: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serialises writers.
	d.SetMaxOpenConns(1)

	r := &SQLiteRepo{db: d, path: path, timeout: 5 * time.Second, nowFunc: time.Now}
	if err := r.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepo) Init() error {
	ctx, cancel := r.ctx()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS credentials (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TEXT NOT NULL);`,
	}
	for _, q := range queries {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("[SQLiteRepo Init] %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Load(key string) (string, bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("[SQLiteRepo Load] %w", err)
	}
	return value, true, nil
}

// Save upserts every entry inside one transaction.
func (r *SQLiteRepo) Save(entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := r.ctx()
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("[SQLiteRepo Save] begin: %w", err)
	}
	defer tx.Rollback()

	now := r.nowFunc().UTC().Format(time.RFC3339Nano)
	for k, v := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, v, now); err != nil {
			return fmt.Errorf("[SQLiteRepo Save] %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("[SQLiteRepo Save] commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.ctx()
	defer cancel()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("[SQLiteRepo Delete] %w", err)
	}
	return nil
}

func (r *SQLiteRepo) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}
