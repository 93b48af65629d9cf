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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"screenwriter/internal/screenplay"
)

// language=SQL
// dialect=SQLite
const insertScriptSnapshotSQL = `INSERT INTO script_snapshots(script_id, ts, body) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestScriptSnapshotSQL = `SELECT id, ts, body FROM script_snapshots WHERE script_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listScriptSnapshotsSQL = `SELECT id, ts, body FROM script_snapshots WHERE script_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldScriptSnapshotsSQL = `DELETE FROM script_snapshots WHERE script_id = ? AND id NOT IN (
	SELECT id FROM script_snapshots WHERE script_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Snapshot is one saved state of a script's elements.
type Snapshot struct {
	ID      int64
	TS      time.Time
	Content screenplay.Document
}

// SaveSnapshot stores doc as the state of script scriptID at ts.
func (x *Index) SaveSnapshot(ctx context.Context, scriptID int64, doc screenplay.Document, ts time.Time) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = x.db.ExecContext(ctx, insertScriptSnapshotSQL, scriptID, ts.UTC().Format(sortableLayout), string(body))
	return err
}

// LatestSnapshot returns the newest snapshot. ok is false when there is none.
func (x *Index) LatestSnapshot(ctx context.Context, scriptID int64) (snap Snapshot, ok bool, err error) {
	var ts, body string
	err = x.db.QueryRowContext(ctx, selectLatestScriptSnapshotSQL, scriptID).Scan(&snap.ID, &ts, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if err := decodeSnapshot(&snap, ts, body); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// ListSnapshots returns up to limit most recent snapshots, newest first.
func (x *Index) ListSnapshots(ctx context.Context, scriptID int64, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := x.db.QueryContext(ctx, listScriptSnapshotsSQL, scriptID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var ts, body string
		if err := rows.Scan(&s.ID, &ts, &body); err != nil {
			return nil, err
		}
		if err := decodeSnapshot(&s, ts, body); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps at most keepLast snapshots of a script.
func (x *Index) PruneSnapshots(ctx context.Context, scriptID int64, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := x.db.ExecContext(ctx, pruneOldScriptSnapshotsSQL, scriptID, scriptID, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func decodeSnapshot(s *Snapshot, ts, body string) error {
	s.TS, _ = time.Parse(sortableLayout, ts)
	if err := json.Unmarshal([]byte(body), &s.Content); err != nil {
		return fmt.Errorf("decode snapshot %d: %w", s.ID, err)
	}
	return nil
}
