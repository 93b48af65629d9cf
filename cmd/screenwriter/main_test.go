/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"screenwriter/internal/config"
	"screenwriter/internal/remote"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/server"
	"screenwriter/internal/storage"
)

// setupEnv points config and data at a temp dir and returns it.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, filepath.Join(dir, "config"))
	t.Setenv(config.EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(config.EnvLogLevel, "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	setupEnv(t)
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "scene heading", args: []string{"INT.", "HOUSE", "-", "DAY"}, want: "scene-heading\n"},
		{name: "character cue", args: []string{"ALEX"}, want: "character\n"},
		{name: "parenthetical", args: []string{"(beat)"}, want: "parenthetical\n"},
		{name: "dialogue after character", args: []string{"--after", "character", "Where were you?"}, want: "dialogue\n"},
		{name: "action without context", args: []string{"Where were you?"}, want: "action\n"},
		{name: "transition", args: []string{"CUT TO:"}, want: "transition\n"},
		{name: "unknown preceding type", args: []string{"--after", "montage", "x"}, wantErr: true},
		{name: "no text", args: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"classify"}, tt.args...)...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNewStatsAndOpen(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "coffee.script")

	out, err := execute(t, "new", "--seed", "--title", "Coffee", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")

	_, err = execute(t, "new", path)
	require.ErrorIs(t, err, errExists)

	out, err = execute(t, "stats", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Title: Coffee")
	assert.Contains(t, out, "Lines: 8")
	assert.Contains(t, out, "Pages: 1")

	out, err = execute(t, "open", path)
	require.NoError(t, err)
	assert.Contains(t, out, "dialogue")
	assert.Contains(t, out, "transition")

	_, err = execute(t, "new", "--force", "--title", "Blank", path)
	require.NoError(t, err)
	sf, _, err := storage.ReadScript(path)
	require.NoError(t, err)
	assert.Equal(t, "Blank", sf.Title)
	assert.Equal(t, 0, sf.Content.Len())

	bogus := filepath.Join(dir, "notes.docx")
	require.NoError(t, os.WriteFile(bogus, []byte("x"), 0o644))
	_, err = execute(t, "open", bogus)
	assert.ErrorIs(t, err, storage.ErrUnsupportedFormat)
}

func TestImportCommand(t *testing.T) {
	dir := setupEnv(t)
	draft := filepath.Join(dir, "draft.txt")
	require.NoError(t, os.WriteFile(draft, []byte("INT. OFFICE - NIGHT\n\nSam enters, soaked.\nSAM\n(quietly)\nIs anyone here?\nCUT TO:\n"), 0o644))

	out, err := execute(t, "import", "--title", "Office", draft)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 6 elements")

	sf, _, err := storage.ReadScript(filepath.Join(dir, "office.script"))
	require.NoError(t, err)
	want := []screenplay.ElementType{screenplay.SceneHeading, screenplay.Action, screenplay.Character, screenplay.Parenthetical, screenplay.Dialogue, screenplay.Transition}
	require.Equal(t, len(want), sf.Content.Len())
	for i, w := range want {
		assert.Equal(t, w, sf.Content.At(i).Type, "element %d", i)
	}

	_, err = execute(t, "import", "--title", "Office", draft)
	assert.ErrorIs(t, err, errExists)
	_, err = execute(t, "import", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "coffee.script")
	_, err := execute(t, "new", "--seed", "--title", "Coffee", path)
	require.NoError(t, err)

	pdf := filepath.Join(dir, "out.pdf")
	pngDir := filepath.Join(dir, "pages")
	out, err := execute(t, "export", path, "-o", pdf, "--png-dir", pngDir, "--dpi", "36")
	require.NoError(t, err)
	assert.Contains(t, out, pdf)
	assert.FileExists(t, filepath.Join(pngDir, "coffee-page-1.png"))

	out, err = execute(t, "open", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "1 pages")

	out, err = execute(t, "export", path, "--text")
	require.NoError(t, err)
	assert.Contains(t, out, "INT. COFFEE SHOP - DAY")
	assert.Contains(t, out, "CUT TO:")

	batch := filepath.Join(dir, "batch")
	out, err = execute(t, "export", path, "--format", "txt,pdf", "-o", batch)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(batch, "coffee.txt"))
	assert.FileExists(t, filepath.Join(batch, "coffee.pdf"))
	assert.Contains(t, out, "coffee.txt")

	// Without -o the PDF lands next to the script.
	_, err = execute(t, "export", path)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "coffee.pdf"))
}

func TestPreviewCommandCaches(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "coffee.script")
	_, err := execute(t, "new", "--seed", "--title", "Coffee", path)
	require.NoError(t, err)

	png := filepath.Join(dir, "p1.png")
	for i := 0; i < 2; i++ {
		_, err = execute(t, "preview", path, "-o", png, "--dpi", "36")
		require.NoError(t, err)
	}
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	idx, err := openIndex(context.Background())
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()
	total, err := idx.TotalPreviewBytes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), total)

	_, err = execute(t, "preview", path, "--page", "9", "-o", png)
	assert.Error(t, err)
}

func TestSearchAndHistory(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "coffee.script")
	_, err := execute(t, "new", "--seed", "--title", "Coffee", path)
	require.NoError(t, err)

	out, err := execute(t, "search", "laptop")
	require.NoError(t, err)
	assert.Contains(t, out, "Coffee #2 [action]")
	assert.Contains(t, out, "Coffee #5 [action]")

	out, err = execute(t, "search", "--type", "Scene-Heading")
	require.NoError(t, err)
	assert.Contains(t, out, "INT. COFFEE SHOP - DAY")
	assert.NotContains(t, out, "[action]")

	out, err = execute(t, "search", "--character", "alex")
	require.NoError(t, err)
	assert.Contains(t, out, "This script writing tool")

	out, err = execute(t, "search", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "No matches.")

	_, err = execute(t, "search")
	assert.Error(t, err)

	_, err = execute(t, "new", "--force", "--title", "Coffee", path)
	require.NoError(t, err)

	out, err = execute(t, "history", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ELEMENTS")

	ctx := context.Background()
	idx, err := openIndex(ctx)
	require.NoError(t, err)
	si, err := idx.Script(ctx, path)
	require.NoError(t, err)
	snaps, err := idx.ListSnapshots(ctx, si.ID, 10)
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.Len(t, snaps, 2)
	seeded := snaps[1]
	assert.Equal(t, 8, seeded.Content.Len())

	_, err = execute(t, "history", path, "--restore", "999")
	assert.Error(t, err)
	_, err = execute(t, "history", path, "--restore", strconv.FormatInt(seeded.ID, 10))
	require.NoError(t, err)
	sf, _, err := storage.ReadScript(path)
	require.NoError(t, err)
	assert.True(t, sf.Content.Equal(screenplay.SeedDocument()))

	_, err = execute(t, "history", filepath.Join(dir, "unknown.script"))
	assert.Error(t, err)
}

func TestRemoteCommands(t *testing.T) {
	dir := setupEnv(t)
	keyring.MockInit()

	store, err := server.OpenSQLiteStore(context.Background(), filepath.Join(dir, "server.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ts := httptest.NewServer(server.New(server.Config{AuthSecret: "test-secret", LoginKey: "door"}, store).Handler())
	t.Cleanup(ts.Close)
	t.Setenv(config.EnvRemoteURL, ts.URL)

	path := filepath.Join(dir, "coffee.script")
	_, err = execute(t, "new", "--seed", "--title", "Coffee", path)
	require.NoError(t, err)

	_, err = execute(t, "push", path)
	require.ErrorIs(t, err, remote.ErrUnauthorized)

	_, err = execute(t, "login", "alice", "--key", "guess")
	require.ErrorIs(t, err, remote.ErrUnauthorized)

	t.Setenv(config.EnvLoginKey, "door")
	out, err := execute(t, "login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "as alice")
	tok, err := config.Token()
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	out, err = execute(t, "push", path)
	require.NoError(t, err)
	assert.Contains(t, out, "as id 1 version 1")

	pulled := filepath.Join(dir, "pulled.script")
	out, err = execute(t, "pull", "1", "-o", pulled)
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")
	sf, _, err := storage.ReadScript(pulled)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", sf.Title)
	assert.True(t, sf.Content.Equal(screenplay.SeedDocument()))

	out, err = execute(t, "push", path, "--id", "1", "--base-version", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "version 2")
	_, err = execute(t, "push", path, "--id", "1", "--base-version", "1")
	assert.ErrorIs(t, err, remote.ErrConflict)

	_, err = execute(t, "pull", "42", "-o", filepath.Join(dir, "nope.script"))
	assert.ErrorIs(t, err, remote.ErrNotFound)
	_, err = execute(t, "pull", "abc")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Screenwriter ")
}

func TestSessionOptionsFromConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv(config.EnvSplitPolicy, "reclassify")
	t.Setenv(config.EnvPaper, "a4")
	_, err := execute(t, "version")
	require.NoError(t, err)

	so, err := sessionOptions()
	require.NoError(t, err)
	assert.EqualValues(t, "reclassify", so.SplitPolicy)
	assert.True(t, so.AutoFormat)
	lo, err := layoutOptions()
	require.NoError(t, err)
	assert.EqualValues(t, "a4", lo.Paper)
}
