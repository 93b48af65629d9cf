/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"screenwriter/internal/layout"
	"screenwriter/internal/screenplay"
)

func longScript(n int) screenplay.Document {
	var doc screenplay.Document
	for i := 0; i < n; i++ {
		doc.Append(screenplay.Element{Type: screenplay.SceneHeading, Text: "int. kitchen - day"})
		doc.Append(screenplay.Element{Type: screenplay.Character, Text: "Zoë"})
		doc.Append(screenplay.Element{Type: screenplay.Dialogue, Text: "Café au lait, s'il vous plaît."})
	}
	return doc
}

func TestExportPDF_CreatesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "exports", "coffee.pdf")
	if err := ExportPDF(out, "Coffee", screenplay.SeedDocument(), PDFOptions{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	st, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() <= 0 {
		t.Fatalf("pdf file empty")
	}
}

func TestRenderPDF_PageCountMatchesLayout(t *testing.T) {
	doc := longScript(30)
	want := len(layout.Paginate(doc.Elements(), layout.Options{}))
	if want < 2 {
		t.Fatalf("fixture should span pages, got %d", want)
	}
	data, err := RenderPDF("Long", doc, PDFOptions{Author: "Test"})
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	info, err := InspectPDF(data)
	if err != nil {
		t.Fatalf("InspectPDF: %v", err)
	}
	if info.Pages != want {
		t.Fatalf("pdf pages = %d, want %d", info.Pages, want)
	}
	if info.Size != len(data) || info.Version == "" {
		t.Fatalf("info = %+v", info)
	}
}

func TestRenderPDF_EmptyDocumentHasOnePage(t *testing.T) {
	data, err := RenderPDF("", screenplay.Document{}, PDFOptions{Layout: layout.Options{Paper: layout.A4}})
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if info, err := InspectPDF(data); err != nil || info.Pages != 1 {
		t.Fatalf("InspectPDF = %+v, %v", info, err)
	}
}

func TestInspectPDF_RejectsOtherData(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("hello"), []byte(`{"title":"x"}`), []byte("%PDF-1.4\nno end")} {
		if _, err := InspectPDF(in); !errors.Is(err, ErrNotPDF) {
			t.Errorf("InspectPDF(%q) err = %v, want ErrNotPDF", in, err)
		}
	}
}

func TestPreviewPage(t *testing.T) {
	png, err := PreviewPage(screenplay.SeedDocument(), 1, PNGOptions{DPI: 36, IncludeGuides: true})
	if err != nil {
		t.Fatalf("PreviewPage: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatalf("not a png")
	}
	if _, err := PreviewPage(screenplay.SeedDocument(), 2, PNGOptions{}); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestExportPNGPages(t *testing.T) {
	dir := t.TempDir()
	paths, err := ExportPNGPages(dir, "long.script", longScript(30), PNGOptions{DPI: 24})
	if err != nil {
		t.Fatalf("ExportPNGPages: %v", err)
	}
	if len(paths) < 2 || filepath.Base(paths[0]) != "long-page-1.png" {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestPlainText(t *testing.T) {
	doc := screenplay.NewDocument(
		screenplay.Element{Type: screenplay.SceneHeading, Text: "int. house - day"},
		screenplay.Element{Type: screenplay.Character, Text: "ann"},
		screenplay.Element{Type: screenplay.Parenthetical, Text: "(softly)"},
		screenplay.Element{Type: screenplay.Dialogue, Text: "Hi."},
		screenplay.Element{Type: screenplay.Action, Text: ""},
		screenplay.Element{Type: screenplay.Transition, Text: "cut to:"},
	)
	got := PlainText(doc, 40)
	want := strings.Join([]string{
		"INT. HOUSE - DAY",
		"",
		strings.Repeat(" ", 21) + "ANN",
		strings.Repeat(" ", 17) + "(softly)",
		strings.Repeat(" ", 14) + "Hi.",
		"",
		strings.Repeat(" ", 33) + "CUT TO:",
		"",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("PlainText =\n%q\nwant\n%q", got, want)
	}
}
