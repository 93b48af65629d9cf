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
	"fmt"
	"strings"
)

// SearchQuery describes an index search.
// Text is matched against element text. Plain words are ANDed; set Raw to
// pass FTS5 syntax (phrases, OR, NOT, prefix*) through unchanged.
// Types restricts element types. Character restricts to dialogue spoken by
// that character cue. Limit/Offset paginate; zero Limit means 100.
type SearchQuery struct {
	Text      string
	Raw       bool
	Types     []string
	Character string
	ScriptID  int64
	Limit     int
	Offset    int
}

// SearchResult is a single matching element.
type SearchResult struct {
	ScriptID int64  `json:"scriptId"`
	Title    string `json:"title"`
	Path     string `json:"path"`
	Position int    `json:"position"`
	Type     string `json:"type"`
	Cue      string `json:"cue,omitempty"`
	Text     string `json:"text"`
}

// Search runs q. Without Text it scans elements with the filters applied.
func (x *Index) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	sb.WriteString("SELECT e.script_id, s.title, s.path, e.position, e.type, COALESCE(e.cue,''), e.text\n")
	if text := strings.TrimSpace(q.Text); text != "" {
		if !q.Raw {
			text = ftsTerms(text)
		}
		sb.WriteString("FROM fts_elements JOIN elements e ON fts_elements.rowid = e.id\n")
		sb.WriteString("JOIN scripts s ON s.id = e.script_id\n")
		sb.WriteString("WHERE fts_elements MATCH ?\n")
		args = append(args, text)
	} else {
		sb.WriteString("FROM elements e JOIN scripts s ON s.id = e.script_id\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND e.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if c := strings.TrimSpace(q.Character); c != "" {
		sb.WriteString(" AND e.type = 'dialogue' AND e.cue = ?\n")
		args = append(args, strings.ToUpper(c))
	}
	if q.ScriptID > 0 {
		sb.WriteString(" AND e.script_id = ?\n")
		args = append(args, q.ScriptID)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString("ORDER BY s.path, e.position\nLIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := x.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ScriptID, &r.Title, &r.Path, &r.Position, &r.Type, &r.Cue, &r.Text); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsTerms quotes every word so punctuation in user input cannot break the
// FTS5 query syntax.
func ftsTerms(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(fields, " ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
