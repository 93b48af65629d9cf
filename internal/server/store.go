/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound is returned for scripts that do not exist or belong to
	// another owner.
	ErrNotFound = errors.New("script not found")
	// ErrConflict is returned when an update names a stale version.
	ErrConflict = errors.New("script was modified concurrently")
)

// StoredScript is a script held by the server.
type StoredScript struct {
	ID           int64               `json:"id"`
	Title        string              `json:"title"`
	Content      screenplay.Document `json:"content"`
	LastModified time.Time           `json:"lastModified"`
	Version      int64               `json:"version"`
}

// ScriptMeta is the listing projection of a StoredScript.
type ScriptMeta struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
	Version      int64     `json:"version"`
}

// ScriptStore persists scripts per owner.
type ScriptStore interface {
	List(ctx context.Context, owner string) ([]ScriptMeta, error)
	Search(ctx context.Context, owner, text string) ([]ScriptMeta, error)
	Get(ctx context.Context, owner string, id int64) (StoredScript, error)
	Create(ctx context.Context, owner string, sf storage.ScriptFile) (StoredScript, error)
	// Update replaces the script. A non-zero baseVersion must match the
	// stored version or ErrConflict is returned.
	Update(ctx context.Context, owner string, id int64, sf storage.ScriptFile, baseVersion int64) (StoredScript, error)
	Ping(ctx context.Context) error
	Close() error
}

type dialect string

const (
	dialectSQLite   dialect = "sqlite"
	dialectPostgres dialect = "postgres"
)

// SQLStore implements ScriptStore on database/sql for SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

const storeTimeLayout = "2006-01-02T15:04:05.000000000Z"

// ServerDBFileName is the SQLite store inside the data dir.
const ServerDBFileName = "server.sqlite"

// OpenStore opens Postgres when databaseURL is set and SQLite under dataDir
// otherwise, then applies migrations.
func OpenStore(ctx context.Context, databaseURL, dataDir string) (*SQLStore, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return OpenPostgresStore(ctx, databaseURL)
	}
	return OpenSQLiteStore(ctx, filepath.Join(dataDir, ServerDBFileName))
}

// OpenSQLiteStore opens or creates the SQLite store at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return newSQLStore(ctx, db, dialectSQLite)
}

// OpenPostgresStore connects through the pgx database/sql driver.
func OpenPostgresStore(ctx context.Context, url string) (*SQLStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d, log: applog.WithComponent("server").With(slog.String("store", string(d)))}
	if err := s.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// rebind rewrites ? placeholders as $n for Postgres.
func (s *SQLStore) rebind(q string) string {
	if s.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each in schema_migrations.
func (s *SQLStore) applyMigrations(ctx context.Context) error {
	dir := path.Join("migrations", string(s.dialect))
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    BIGINT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied := map[int64]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join(dir, fname))
		if err != nil {
			return err
		}
		s.log.Info("applying migration", slog.String("file", fname))
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		for _, stmt := range splitStatements(string(b)) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply %s: %w", fname, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO schema_migrations(version, name, applied_at) VALUES(?,?,?)`),
			version, fname, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

// splitStatements splits a migration file on semicolons at line ends.
func splitStatements(sqlText string) []string {
	var out []string
	for _, part := range strings.Split(sqlText, ";\n") {
		if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";")); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

func (s *SQLStore) List(ctx context.Context, owner string) ([]ScriptMeta, error) {
	return s.queryMeta(ctx, `SELECT id, title, last_modified, version FROM scripts WHERE owner = ? ORDER BY updated_at DESC, id DESC`, owner)
}

// Search matches text against titles and element text. Postgres uses a
// full-text query; SQLite a case-insensitive substring match.
func (s *SQLStore) Search(ctx context.Context, owner, text string) ([]ScriptMeta, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s.List(ctx, owner)
	}
	if s.dialect == dialectPostgres {
		return s.queryMeta(ctx, `SELECT id, title, last_modified, version FROM scripts
			WHERE owner = ? AND to_tsvector('simple', title || ' ' || content) @@ plainto_tsquery('simple', ?)
			ORDER BY updated_at DESC, id DESC`, owner, text)
	}
	like := "%" + strings.ToLower(text) + "%"
	return s.queryMeta(ctx, `SELECT id, title, last_modified, version FROM scripts
		WHERE owner = ? AND (lower(title) LIKE ? OR lower(content) LIKE ?)
		ORDER BY updated_at DESC, id DESC`, owner, like, like)
}

func (s *SQLStore) queryMeta(ctx context.Context, q string, args ...any) ([]ScriptMeta, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	list := []ScriptMeta{}
	for rows.Next() {
		var m ScriptMeta
		var lm string
		if err := rows.Scan(&m.ID, &m.Title, &lm, &m.Version); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		m.LastModified, _ = time.Parse(storeTimeLayout, lm)
		list = append(list, m)
	}
	return list, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, owner string, id int64) (StoredScript, error) {
	var st StoredScript
	var content, lm string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, title, content, last_modified, version FROM scripts WHERE id = ? AND owner = ?`), id, owner).
		Scan(&st.ID, &st.Title, &content, &lm, &st.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredScript{}, ErrNotFound
	}
	if err != nil {
		return StoredScript{}, fmt.Errorf("get script: %w", err)
	}
	if err := json.Unmarshal([]byte(content), &st.Content); err != nil {
		return StoredScript{}, fmt.Errorf("decode script %d: %w", id, err)
	}
	st.LastModified, _ = time.Parse(storeTimeLayout, lm)
	return st, nil
}

func (s *SQLStore) Create(ctx context.Context, owner string, sf storage.ScriptFile) (StoredScript, error) {
	content, lm, err := encodeForStore(&sf)
	if err != nil {
		return StoredScript{}, err
	}
	now := time.Now().UTC().Format(storeTimeLayout)
	var id int64
	err = s.db.QueryRowContext(ctx, s.rebind(`INSERT INTO scripts(owner, title, content, last_modified, version, updated_at)
		VALUES(?,?,?,?,1,?) RETURNING id`), owner, sf.Title, content, lm, now).Scan(&id)
	if err != nil {
		return StoredScript{}, fmt.Errorf("insert script: %w", err)
	}
	s.log.Debug("script created", slog.Int64("id", id), slog.String("owner", owner))
	return StoredScript{ID: id, Title: sf.Title, Content: sf.Content, LastModified: sf.LastModified, Version: 1}, nil
}

func (s *SQLStore) Update(ctx context.Context, owner string, id int64, sf storage.ScriptFile, baseVersion int64) (StoredScript, error) {
	content, lm, err := encodeForStore(&sf)
	if err != nil {
		return StoredScript{}, err
	}
	now := time.Now().UTC().Format(storeTimeLayout)
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE scripts SET title = ?, content = ?, last_modified = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner = ? AND (? = 0 OR version = ?)`), sf.Title, content, lm, now, id, owner, baseVersion, baseVersion)
	if err != nil {
		return StoredScript{}, fmt.Errorf("update script: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := s.Get(ctx, owner, id); gerr != nil {
			return StoredScript{}, gerr
		}
		return StoredScript{}, ErrConflict
	}
	return s.Get(ctx, owner, id)
}

func encodeForStore(sf *storage.ScriptFile) (content, lastModified string, err error) {
	if err := sf.Content.Validate(); err != nil {
		return "", "", fmt.Errorf("%w: %v", errValidation, err)
	}
	if strings.TrimSpace(sf.Title) == "" {
		sf.Title = storage.DefaultTitle
	}
	if sf.LastModified.IsZero() {
		sf.LastModified = time.Now().UTC()
	}
	b, err := json.Marshal(sf.Content)
	if err != nil {
		return "", "", fmt.Errorf("encode content: %w", err)
	}
	return string(b), sf.LastModified.UTC().Format(storeTimeLayout), nil
}
