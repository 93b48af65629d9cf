/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetPrint   PresetName = "print"
	PresetPreview PresetName = "preview"
	PresetDraft   PresetName = "draft"
)

// BatchOptions controls exporting one script to several formats at once.
//
// Path semantics:
//   - OutDir defaults to the preset name and is created if missing.
//   - PDF and text outputs are <title>.pdf and <title>.txt in OutDir, named
//     after the title the same way save files are.
//   - PNG pages go to a png/ subfolder as <title>-page-<n>.png.
type BatchOptions struct {
	Preset    PresetName
	Formats   []string // allowed: pdf, png, txt; empty means preset defaults
	OutDir    string
	PDF       PDFOptions
	PNG       PNGOptions
	TextWidth int
}

// BatchExport writes doc in every requested format and returns the paths
// written.
func BatchExport(title string, doc screenplay.Document, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = string(PresetPrint)
		}
	}
	if err := os.MkdirAll(baseOut, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	png := opt.PNG
	if opt.Preset == PresetPreview {
		png.IncludeGuides = true
	}
	png.Layout = opt.PDF.Layout

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out := filepath.Join(baseOut, storage.PDFFileName(title))
			if err := ExportPDF(out, title, doc, opt.PDF); err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, out)
		case "png":
			paths, err := ExportPNGPages(filepath.Join(baseOut, "png"), storage.FileName(title), doc, png)
			written = append(written, paths...)
			if err != nil {
				return written, fmt.Errorf("png: %w", err)
			}
		case "txt", "text":
			name := strings.TrimSuffix(storage.FileName(title), storage.ScriptExt) + ".txt"
			out := filepath.Join(baseOut, name)
			if err := os.WriteFile(out, []byte(PlainText(doc, opt.TextWidth)), 0o644); err != nil {
				return written, fmt.Errorf("txt: %w", err)
			}
			written = append(written, out)
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetPreview:
		return []string{"pdf", "png"}
	case PresetDraft:
		return []string{"txt"}
	default:
		return []string{"pdf"}
	}
}
