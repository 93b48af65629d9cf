/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"screenwriter/internal/config"
	"screenwriter/internal/editor"
	"screenwriter/internal/layout"
	applog "screenwriter/internal/log"
	"screenwriter/internal/remote"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

// snapshotsKept bounds the history stored per script.
const snapshotsKept = 50

// sessionOptions maps the editor and general config sections.
func sessionOptions() (editor.Options, error) {
	sp, err := editor.ParseSplitPolicy(cfg.Editor.SplitPolicy)
	if err != nil {
		return editor.Options{}, err
	}
	cs, err := editor.ParseCommitSignal(cfg.Editor.CommitSignal)
	if err != nil {
		return editor.Options{}, err
	}
	return editor.Options{
		Title:        cfg.General.DefaultTitle,
		AutoFormat:   cfg.General.AutoFormat,
		SplitPolicy:  sp,
		CommitSignal: cs,
		WordsPerPage: cfg.General.WordsPerPage,
	}, nil
}

func layoutOptions() (layout.Options, error) {
	paper, err := layout.ParsePaper(cfg.Export.Paper)
	if err != nil {
		return layout.Options{}, err
	}
	return layout.Options{Paper: paper, FontSize: cfg.Export.FontSize, LineHeight: cfg.Export.LineHeight}.WithDefaults(), nil
}

func defaultTitle() string {
	if cfg.General.DefaultTitle != "" {
		return cfg.General.DefaultTitle
	}
	return storage.DefaultTitle
}

// openIndex opens the per-user search index, recreating it when damaged.
func openIndex(ctx context.Context) (*storage.Index, error) {
	dir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	idx, rebuilt, err := storage.DetectAndRebuildIndex(ctx, dir)
	if err != nil {
		return nil, err
	}
	if rebuilt {
		applog.WithComponent("cli").Warn("search index was recreated", slog.String("path", idx.Path()))
	}
	return idx, nil
}

// recordSave indexes a saved script and appends a history snapshot when
// its content changed. Index failures are logged, never fatal: the .script
// file on disk is the source of truth.
func recordSave(ctx context.Context, path string, sf storage.ScriptFile) {
	l := applog.WithComponent("index")
	idx, err := openIndex(ctx)
	if err != nil {
		l.Warn("index unavailable", slog.Any("err", err))
		return
	}
	defer func() { _ = idx.Close() }()
	id, err := idx.Upsert(ctx, path, sf)
	if err != nil {
		l.Warn("index update failed", slog.String("path", path), slog.Any("err", err))
		return
	}
	last, ok, err := idx.LatestSnapshot(ctx, id)
	if err == nil && ok && last.Content.Equal(sf.Content) {
		return
	}
	ts := sf.LastModified
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := idx.SaveSnapshot(ctx, id, sf.Content, ts); err != nil {
		l.Warn("snapshot failed", slog.Any("err", err))
		return
	}
	if _, err := idx.PruneSnapshots(ctx, id, snapshotsKept); err != nil {
		l.Warn("prune snapshots failed", slog.Any("err", err))
	}
}

// saveScript writes sf to path and records it in the index.
func saveScript(ctx context.Context, path string, sf storage.ScriptFile) error {
	if sf.LastModified.IsZero() {
		sf.LastModified = time.Now().UTC()
	}
	if err := storage.WriteScript(path, sf); err != nil {
		return err
	}
	recordSave(ctx, path, sf)
	return nil
}

// readScript loads a .script file and warns on stderr when it had to fall
// back to a backup.
func readScript(path string) (storage.ScriptFile, error) {
	sf, recovered, err := storage.ReadScript(path)
	if err != nil {
		return storage.ScriptFile{}, err
	}
	if recovered {
		fmt.Fprintf(os.Stderr, "Warning: %s was damaged; loaded the newest backup\n", filepath.Base(path))
	}
	return sf, nil
}

// loadForEditing returns the document an editor should start with. No path
// starts from the sample scene; a path that does not exist yet starts empty.
func loadForEditing(path string) (string, screenplay.Document, error) {
	if path == "" {
		return defaultTitle(), screenplay.SeedDocument(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultTitle(), screenplay.Document{}, nil
	}
	sf, err := readScript(path)
	if err != nil {
		return "", screenplay.Document{}, err
	}
	return sf.Title, sf.Content, nil
}

// remoteClient builds a client with the keyring token, if any.
func remoteClient() *remote.Client {
	tok, err := config.Token()
	if err != nil {
		applog.WithComponent("cli").Debug("no stored token", slog.Any("err", err))
	}
	return remote.NewClient(cfg.Remote.BaseURL, tok, cfg.Remote.Timeout())
}

func parseTypeFlag(s string) (screenplay.ElementType, error) {
	if s == "" {
		return screenplay.NoType, nil
	}
	return screenplay.ParseElementType(s)
}
