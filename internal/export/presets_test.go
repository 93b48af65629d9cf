/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"os"
	"path/filepath"
	"testing"

	"screenwriter/internal/screenplay"
)

func TestBatchExport_PreviewPreset(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "preview")
	written, err := BatchExport("My Script", screenplay.SeedDocument(), BatchOptions{Preset: PresetPreview, OutDir: out})
	if err != nil {
		t.Fatalf("batch export preview: %v", err)
	}
	checks := []string{
		filepath.Join(out, "my_script.pdf"),
		filepath.Join(out, "png", "my_script-page-1.png"),
	}
	if len(written) != len(checks) {
		t.Fatalf("written = %v", written)
	}
	for _, p := range checks {
		st, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
		if st.Size() <= 0 {
			t.Fatalf("empty file: %s", p)
		}
	}
}

func TestBatchExport_DraftAndUnknown(t *testing.T) {
	out := t.TempDir()
	written, err := BatchExport("Draft", screenplay.SeedDocument(), BatchOptions{Preset: PresetDraft, OutDir: out})
	if err != nil || len(written) != 1 || filepath.Base(written[0]) != "draft.txt" {
		t.Fatalf("draft = %v, %v", written, err)
	}
	if _, err := BatchExport("x", screenplay.SeedDocument(), BatchOptions{OutDir: out, Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
