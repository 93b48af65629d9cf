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
	"os"
	"strconv"
	"time"
)

// EnvPreviewsMaxBytes caps the preview cache size.
const EnvPreviewsMaxBytes = "SW_PREVIEWS_MAX_BYTES"

// Preview returns the cached PNG of a page at dpi and marks it as used.
// It returns nil when nothing is cached.
func (x *Index) Preview(ctx context.Context, scriptID int64, page, dpi int) ([]byte, error) {
	var blob []byte
	err := x.db.QueryRowContext(ctx, `SELECT png FROM previews WHERE script_id=? AND page=? AND dpi=?`, scriptID, page, dpi).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(sortableLayout)
	_, _ = x.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE script_id=? AND page=? AND dpi=?`, now, scriptID, page, dpi)
	return blob, nil
}

// PutPreview stores a page PNG and evicts least recently used previews
// beyond the cache cap.
func (x *Index) PutPreview(ctx context.Context, scriptID int64, page, dpi int, png []byte) error {
	now := time.Now().UTC().Format(sortableLayout)
	_, err := x.db.ExecContext(ctx, `INSERT INTO previews(script_id, page, dpi, png, size, updated_at, last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(script_id, page, dpi) DO UPDATE SET png=excluded.png, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		scriptID, page, dpi, png, len(png), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes := MaxPreviewsBytesFromEnv(); capBytes > 0 {
		return x.evictPreviewsToFit(ctx, capBytes)
	}
	return nil
}

// PreviewOrRender returns the cached page or renders and caches it.
func (x *Index) PreviewOrRender(ctx context.Context, scriptID int64, page, dpi int, render func() ([]byte, error)) ([]byte, error) {
	if b, err := x.Preview(ctx, scriptID, page, dpi); err != nil || b != nil {
		return b, err
	}
	data, err := render()
	if err != nil {
		return nil, err
	}
	if err := x.PutPreview(ctx, scriptID, page, dpi, data); err != nil {
		return nil, err
	}
	return data, nil
}

// DropPreviews removes every cached page of a script.
func (x *Index) DropPreviews(ctx context.Context, scriptID int64) error {
	_, err := x.db.ExecContext(ctx, `DELETE FROM previews WHERE script_id=?`, scriptID)
	return err
}

// TotalPreviewBytes returns the size of the preview cache.
func (x *Index) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	err := x.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total)
	return total, err
}

// evictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func (x *Index) evictPreviewsToFit(ctx context.Context, capBytes int64) error {
	total, err := x.TotalPreviewBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := x.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	// The single connection must be released before writing.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	if _, err := x.db.ExecContext(ctx, `DELETE FROM previews WHERE id IN (`+placeholders(len(victims))+`)`, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// MaxPreviewsBytesFromEnv reads SW_PREVIEWS_MAX_BYTES, defaulting to 64MB.
func MaxPreviewsBytesFromEnv() int64 {
	const def = 64 * 1024 * 1024
	n, err := strconv.ParseInt(os.Getenv(EnvPreviewsMaxBytes), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
