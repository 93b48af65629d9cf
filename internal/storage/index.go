/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2

	// sortableLayout is fixed width so stored timestamps order correctly as text.
	sortableLayout = "2006-01-02T15:04:05.000000000Z"
)

// Index is the per-user SQLite index of saved scripts.
type Index struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// IndexPath returns the index database path inside dataDir.
func IndexPath(dataDir string) string { return filepath.Join(dataDir, IndexFileName) }

// OpenIndex ensures the index exists in dataDir, enables WAL mode and
// brings the schema up to date.
func OpenIndex(ctx context.Context, dataDir string) (*Index, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_open").With(slog.String("dir", dataDir))
	if strings.TrimSpace(dataDir) == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		l.Error("create data dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := IndexPath(dataDir)
	db, err := openSQLite(ctx, path)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return &Index{db: db, path: path, log: applog.WithComponent("storage")}, nil
}

// openSQLite opens path with a busy timeout, a single connection and WAL.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(cctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return db, nil
}

func (x *Index) Close() error { return x.db.Close() }

func (x *Index) Path() string { return x.path }

// DB exposes the handle for stores that share the index file.
func (x *Index) DB() *sql.DB { return x.db }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the schema recorded in the version table.
func (x *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := x.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// elementLookupIndexes arrived with schema 2. Rebuild recreates them since
// dropping elements drops its indexes.
var elementLookupIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_elements_type ON elements(type);`,
	`CREATE INDEX IF NOT EXISTS idx_elements_cue ON elements(cue);`,
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = elementLookupIndexes
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		// Best-effort FTS optimize after a schema step.
		_, _ = db.ExecContext(ctx, `INSERT INTO fts_elements(fts_elements) VALUES('optimize')`)
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the index tables and FTS structures if missing.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scripts (
			id         INTEGER PRIMARY KEY,
			path       TEXT    NOT NULL UNIQUE,
			title      TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
		// One row per element. cue holds the nearest preceding character
		// cue for dialogue and parentheticals.
		`CREATE TABLE IF NOT EXISTS elements (
			id        INTEGER PRIMARY KEY,
			script_id INTEGER NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
			position  INTEGER NOT NULL,
			type      TEXT    NOT NULL,
			cue       TEXT,
			text      TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_elements_script ON elements(script_id, position);`,

		// Contentless FTS5 index fed from elements via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_elements USING fts5(
			text,
			content='',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS script_snapshots (
			id        INTEGER PRIMARY KEY,
			script_id INTEGER NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
			ts        TEXT    NOT NULL,
			body      TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_script_snapshots_ts ON script_snapshots(script_id, ts);`,

		`CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			script_id   INTEGER NOT NULL REFERENCES scripts(id) ON DELETE CASCADE,
			page        INTEGER NOT NULL,
			dpi         INTEGER NOT NULL,
			png         BLOB    NOT NULL,
			size        INTEGER NOT NULL,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_page ON previews(script_id, page, dpi);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS elements_ai AFTER INSERT ON elements BEGIN
			INSERT INTO fts_elements(rowid, text) VALUES (new.id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS elements_ad AFTER DELETE ON elements BEGIN
			INSERT INTO fts_elements(fts_elements, rowid, text) VALUES ('delete', old.id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS elements_au AFTER UPDATE OF text ON elements BEGIN
			INSERT INTO fts_elements(fts_elements, rowid, text) VALUES ('delete', old.id, old.text);
			INSERT INTO fts_elements(rowid, text) VALUES (new.id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// ScriptInfo is one indexed script.
type ScriptInfo struct {
	ID        int64
	Path      string
	Title     string
	UpdatedAt time.Time
}

// Upsert records sf as the current content of path and returns its id.
// A file whose modification time matches the indexed one is left alone;
// any other upsert drops the script's cached preview pages.
func (x *Index) Upsert(ctx context.Context, path string, sf ScriptFile) (int64, error) {
	return x.upsert(ctx, path, sf, false)
}

func (x *Index) upsert(ctx context.Context, path string, sf ScriptFile, force bool) (int64, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	ts := sf.LastModified
	if ts.IsZero() {
		ts = time.Now()
	} else if !force {
		if si, err := x.Script(ctx, abs); err == nil && si.UpdatedAt.Equal(ts.UTC()) {
			return si.ID, nil
		}
	}
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `INSERT INTO scripts(path, title, updated_at) VALUES(?,?,?)
		ON CONFLICT(path) DO UPDATE SET title=excluded.title, updated_at=excluded.updated_at
		RETURNING id`, abs, sf.Title, ts.UTC().Format(sortableLayout)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert script: %w", err)
	}
	if err := replaceElements(ctx, tx, id, sf.Content); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	if err := x.DropPreviews(ctx, id); err != nil {
		return 0, fmt.Errorf("drop stale previews: %w", err)
	}
	x.log.Debug("script indexed", slog.String("path", abs), slog.Int64("id", id), slog.Int("elements", sf.Content.Len()))
	return id, nil
}

func replaceElements(ctx context.Context, tx *sql.Tx, scriptID int64, doc screenplay.Document) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE script_id=?`, scriptID); err != nil {
		return fmt.Errorf("clear elements: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO elements(script_id, position, type, cue, text) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	var cue string
	for i, e := range doc.Elements() {
		rowCue := sql.NullString{}
		switch e.Type {
		case screenplay.Character:
			cue = strings.ToUpper(strings.TrimSpace(e.Text))
		case screenplay.Dialogue, screenplay.Parenthetical:
			rowCue = sql.NullString{String: cue, Valid: cue != ""}
		default:
			cue = ""
		}
		if _, err := ins.ExecContext(ctx, scriptID, i, string(e.Type), rowCue, e.Text); err != nil {
			return fmt.Errorf("insert element: %w", err)
		}
	}
	return nil
}

// Script returns the indexed script at path.
func (x *Index) Script(ctx context.Context, path string) (ScriptInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ScriptInfo{}, err
	}
	var si ScriptInfo
	var ts string
	err = x.db.QueryRowContext(ctx, `SELECT id, path, title, updated_at FROM scripts WHERE path=?`, abs).Scan(&si.ID, &si.Path, &si.Title, &ts)
	if err != nil {
		return ScriptInfo{}, err
	}
	si.UpdatedAt, _ = time.Parse(sortableLayout, ts)
	return si, nil
}

// Scripts lists every indexed script, most recently updated first.
func (x *Index) Scripts(ctx context.Context) ([]ScriptInfo, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT id, path, title, updated_at FROM scripts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScriptInfo
	for rows.Next() {
		var si ScriptInfo
		var ts string
		if err := rows.Scan(&si.ID, &si.Path, &si.Title, &ts); err != nil {
			return nil, err
		}
		si.UpdatedAt, _ = time.Parse(sortableLayout, ts)
		out = append(out, si)
	}
	return out, rows.Err()
}

// Rebuild drops the element and FTS tables and re-reads every indexed
// script from disk. Scripts whose file is gone are removed.
func (x *Index) Rebuild(ctx context.Context) error {
	scripts, err := x.Scripts(ctx)
	if err != nil {
		return err
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS elements_ai;",
		"DROP TRIGGER IF EXISTS elements_ad;",
		"DROP TRIGGER IF EXISTS elements_au;",
		"DROP TABLE IF EXISTS elements;",
		"DROP TABLE IF EXISTS fts_elements;",
	}
	for _, q := range drops {
		if _, err := x.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := ensureIndexSchema(ctx, x.db); err != nil {
		return err
	}
	for _, q := range elementLookupIndexes {
		if _, err := x.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("recreate element indexes: %w", err)
		}
	}
	for _, si := range scripts {
		sf, _, err := ReadScript(si.Path)
		if err != nil {
			x.log.Warn("dropping unreadable script from index", slog.String("path", si.Path), slog.Any("err", err))
			if _, err := x.db.ExecContext(ctx, `DELETE FROM scripts WHERE id=?`, si.ID); err != nil {
				return err
			}
			continue
		}
		if _, err := x.upsert(ctx, si.Path, sf, true); err != nil {
			return err
		}
	}
	return nil
}

// DetectAndRebuildIndex checks the index in dataDir for corruption. A
// damaged file is backed up and replaced by a fresh index. It returns the
// open index and whether it was recreated.
func DetectAndRebuildIndex(ctx context.Context, dataDir string) (*Index, bool, error) {
	path := IndexPath(dataDir)
	x, err := OpenIndex(ctx, dataDir)
	if err == nil {
		var chk string
		qerr := x.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk)
		if qerr == nil && strings.EqualFold(strings.TrimSpace(chk), "ok") {
			if _, perr := x.db.ExecContext(ctx, `SELECT 1 FROM elements LIMIT 1;`); perr == nil {
				return x, false, nil
			}
		}
		_ = x.Close()
	}
	applog.WithComponent("storage").Warn("index damaged, recreating", slog.String("path", path), slog.Any("err", err))
	backupIndexFile(path)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	x, err = OpenIndex(ctx, dataDir)
	if err != nil {
		return nil, false, fmt.Errorf("recreate index: %w", err)
	}
	return x, true, nil
}

// backupIndexFile copies the current index file into a timestamped backup.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
