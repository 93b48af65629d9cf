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
	"os"
	"path/filepath"
	"testing"
	"time"

	"screenwriter/internal/screenplay"
)

func openTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	x, err := OpenIndex(context.Background(), dir)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = x.Close() })
	return x, dir
}

func TestIndexUpsertAndSearch(t *testing.T) {
	x, dir := openTestIndex(t)
	ctx := context.Background()
	path := filepath.Join(dir, "coffee.script")
	id, err := x.Upsert(ctx, path, ScriptFile{Title: "Coffee", Content: screenplay.SeedDocument()})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	res, err := x.Search(ctx, SearchQuery{Text: "laptop"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 hits for laptop, got %d: %+v", len(res), res)
	}
	if res[0].ScriptID != id || res[0].Title != "Coffee" || res[0].Type != string(screenplay.Action) {
		t.Fatalf("unexpected first hit: %+v", res[0])
	}

	res, err = x.Search(ctx, SearchQuery{Character: "alex"})
	if err != nil {
		t.Fatalf("Search character: %v", err)
	}
	// The second dialogue follows an action line and has no cue.
	if len(res) != 1 {
		t.Fatalf("expected 1 dialogue line for ALEX, got %d: %+v", len(res), res)
	}
	for _, r := range res {
		if r.Type != string(screenplay.Dialogue) || r.Cue != "ALEX" {
			t.Fatalf("unexpected hit: %+v", r)
		}
	}

	res, err = x.Search(ctx, SearchQuery{Types: []string{string(screenplay.Transition)}})
	if err != nil || len(res) != 1 || res[0].Text != "CUT TO:" {
		t.Fatalf("type filter = %+v, %v", res, err)
	}

	// Punctuation in plain queries must not break FTS syntax.
	if _, err := x.Search(ctx, SearchQuery{Text: `"ALEX (30s`}); err != nil {
		t.Fatalf("quoted search: %v", err)
	}
}

func TestIndexUpsertReplacesElements(t *testing.T) {
	x, dir := openTestIndex(t)
	ctx := context.Background()
	path := filepath.Join(dir, "a.script")
	first := ScriptFile{Title: "A", Content: screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "zebra crossing"})}
	id1, err := x.Upsert(ctx, path, first)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second := ScriptFile{Title: "A2", Content: screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "giraffe"})}
	id2, err := x.Upsert(ctx, path, second)
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("same path should keep id: %d vs %d", id1, id2)
	}
	if res, _ := x.Search(ctx, SearchQuery{Text: "zebra"}); len(res) != 0 {
		t.Fatalf("stale element still indexed: %+v", res)
	}
	if res, _ := x.Search(ctx, SearchQuery{Text: "giraffe"}); len(res) != 1 || res[0].Title != "A2" {
		t.Fatalf("new element not indexed: %+v", res)
	}
	si, err := x.Script(ctx, path)
	if err != nil || si.ID != id1 || si.Title != "A2" {
		t.Fatalf("Script = %+v, %v", si, err)
	}
}

func TestIndexRebuildDropsMissingFiles(t *testing.T) {
	x, dir := openTestIndex(t)
	ctx := context.Background()
	keep := filepath.Join(dir, "keep.script")
	gone := filepath.Join(dir, "gone.script")
	for _, p := range []string{keep, gone} {
		sf := ScriptFile{Title: filepath.Base(p), Content: screenplay.SeedDocument(), LastModified: time.Now()}
		if err := WriteScript(p, sf); err != nil {
			t.Fatalf("WriteScript: %v", err)
		}
		if _, err := x.Upsert(ctx, p, sf); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	if err := x.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	list, err := x.Scripts(ctx)
	if err != nil || len(list) != 1 || filepath.Base(list[0].Path) != "keep.script" {
		t.Fatalf("Scripts after rebuild = %+v, %v", list, err)
	}
	if res, _ := x.Search(ctx, SearchQuery{Text: "notification"}); len(res) != 1 {
		t.Fatalf("rebuilt index search = %+v", res)
	}
}
