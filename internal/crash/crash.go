/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash recovers panics in entry points, writes a crash report and
// autosaves the live script next to it.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
	"screenwriter/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Source is the live editing state worth saving. *editor.Session implements it.
type Source interface {
	Title() string
	Document() screenplay.Document
}

// Target tells Recover where to write. Dir is the directory of the open
// script; reports and autosaves go to its backups folder. A nil Target or
// empty Dir writes the report to the temp dir and skips the autosave.
type Target struct {
	Dir    string
	Source Source
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report file and attempts a crash-safe autosave of the live script.
//
// Usage: defer func(){ crash.Recover(target) }()
func Recover(t *Target) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(t, r, stack)
		if path, err := Autosave(t); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else if path != "" {
			l.Info("autosave written", slog.String("path", path))
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func backupsDir(t *Target) string {
	if t == nil || t.Dir == "" {
		return ""
	}
	return filepath.Join(t.Dir, storage.BackupsDirName)
}

// Autosave writes the source document to
// <Dir>/.backups/autosave-<title>-<stamp>.script. It returns "" without
// error when there is nothing to save.
func Autosave(t *Target) (string, error) {
	dir := backupsDir(t)
	if dir == "" || t.Source == nil {
		return "", nil
	}
	title := t.Source.Title()
	name := fmt.Sprintf("autosave-%s-%s%s", trimExt(storage.FileName(title)), time.Now().Format("20060102-150405"), storage.ScriptExt)
	path := filepath.Join(dir, name)
	sf := storage.ScriptFile{Title: title, Content: t.Source.Document()}
	if err := storage.WriteScript(path, sf); err != nil {
		return "", err
	}
	return path, nil
}

func trimExt(name string) string { return name[:len(name)-len(filepath.Ext(name))] }

func writeReport(t *Target, panicVal any, stack []byte) (string, error) {
	dir := backupsDir(t)
	if dir == "" {
		dir = os.TempDir()
	} else {
		_ = os.MkdirAll(dir, 0o755)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Screenwriter Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil && t.Source != nil {
		doc := t.Source.Document()
		_, _ = fmt.Fprintf(&buf, "Script: %s\n", t.Source.Title())
		_, _ = fmt.Fprintf(&buf, "Elements: %d\n", doc.Len())
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
