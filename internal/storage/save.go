/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "screenwriter/internal/log"
)

// BackupsDirName holds timestamped copies of replaced .script files, next
// to the script itself.
const BackupsDirName = ".backups"

const backupStamp = "20060102-150405.000"

// WriteScript writes sf to path with transactional semantics. A previous
// file at path is first copied to a timestamped backup.
func WriteScript(path string, sf ScriptFile) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("script path is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "write_script").With(slog.String("path", path))
	data, err := Encode(sf)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		bdir := filepath.Join(dir, BackupsDirName)
		bname := fmt.Sprintf("%s.%s.bak", filepath.Base(path), time.Now().Format(backupStamp))
		if cerr := copyFile(path, filepath.Join(bdir, bname)); cerr != nil {
			l.Error("backup failed", slog.Any("err", cerr))
			return fmt.Errorf("backup current script: %w", cerr)
		}
	}

	// Write to a temp file in the same directory, then rename over the target.
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp script: %w", werr)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		// Windows refuses to rename over an existing file.
		_ = os.Remove(path)
		if rerr = os.Rename(temp, path); rerr != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace script: %w", rerr)
		}
	}
	l.Debug("script written", slog.Int("bytes", len(data)))
	return nil
}

// ReadScript loads a .script file. When the file is unreadable or malformed
// the newest backup is used instead; recovered reports that case.
func ReadScript(path string) (sf ScriptFile, recovered bool, err error) {
	data, rerr := os.ReadFile(path)
	if rerr == nil {
		sf, rerr = Decode(data)
		if rerr == nil {
			return sf, false, nil
		}
	}
	bsf, berr := openFromLatestBackup(path)
	if berr != nil {
		return ScriptFile{}, false, fmt.Errorf("read script: %w; backup attempt: %v", rerr, berr)
	}
	applog.WithComponent("storage").Warn("script recovered from backup",
		slog.String("path", path), slog.Any("err", rerr))
	return bsf, true, nil
}

// Backups lists the backup files of path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func openFromLatestBackup(path string) (ScriptFile, error) {
	candidates, err := Backups(path)
	if err != nil {
		return ScriptFile{}, err
	}
	if len(candidates) == 0 {
		return ScriptFile{}, errors.New("no backups found")
	}
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return ScriptFile{}, fmt.Errorf("read latest backup: %w", err)
	}
	return Decode(b)
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
