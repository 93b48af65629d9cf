/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"strings"
	"testing"

	"screenwriter/internal/screenplay"
)

func TestWrap(t *testing.T) {
	cases := []struct {
		text string
		cols int
		want []string
	}{
		{"one two three", 7, []string{"one two", "three"}},
		{"one two three", 0, []string{"one two three"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"hi abcdefgh", 4, []string{"hi", "abcd", "efgh"}},
		{"", 10, []string{""}},
		{"日本語テキスト", 6, []string{"日本語", "テキス", "ト"}},
	}
	for _, c := range cases {
		got := Wrap(c.text, c.cols)
		if strings.Join(got, "|") != strings.Join(c.want, "|") {
			t.Errorf("Wrap(%q, %d) = %q, want %q", c.text, c.cols, got, c.want)
		}
	}
}

func TestPaginatePositionsAndAdvance(t *testing.T) {
	doc := []screenplay.Element{
		{Type: screenplay.SceneHeading, Text: "int. office - night"},
		{Type: screenplay.Character, Text: "sam"},
		{Type: screenplay.Dialogue, Text: "Hello."},
		{Type: screenplay.Action, Text: "   "},
		{Type: screenplay.Transition, Text: "cut to:"},
	}
	pages := Paginate(doc, Options{})
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	lines := pages[0].Lines
	want := []Line{
		{X: 72, Y: 72, Text: "INT. OFFICE - NIGHT", Bold: true, Type: screenplay.SceneHeading},
		{X: 222, Y: 104, Text: "SAM", Type: screenplay.Character},
		{X: 172, Y: 120, Text: "Hello.", Type: screenplay.Dialogue},
		{X: 372, Y: 152, Text: "CUT TO:", Type: screenplay.Transition},
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %+v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], want[i])
		}
	}
}

func TestPaginateWrapsActionAndDialogue(t *testing.T) {
	o := DefaultOptions()
	if got := o.Columns(o.WrapWidth(screenplay.Action)); got != 65 {
		t.Fatalf("action columns = %d, want 65", got)
	}
	if got := o.Columns(o.WrapWidth(screenplay.Dialogue)); got != 44 {
		t.Fatalf("dialogue columns = %d, want 44", got)
	}
	if o.WrapWidth(screenplay.Character) != 0 {
		t.Fatalf("character lines are not wrapped")
	}
	long := strings.TrimSpace(strings.Repeat("word ", 30))
	pages := Paginate([]screenplay.Element{{Type: screenplay.Action, Text: long}, {Type: screenplay.Character, Text: "A"}}, o)
	lines := pages[0].Lines
	if len(lines) != 4 {
		t.Fatalf("expected 3 action rows and a cue, got %d", len(lines))
	}
	// Three wrapped rows plus one blank line.
	if lines[3].Y != 72+4*16 {
		t.Fatalf("cue y = %v", lines[3].Y)
	}
}

func TestPaginateBreaksPages(t *testing.T) {
	var doc []screenplay.Element
	for i := 0; i < 40; i++ {
		doc = append(doc, screenplay.Element{Type: screenplay.Character, Text: "BOB"})
	}
	pages := Paginate(doc, Options{})
	// Printable height is 648pt: 40 one-line elements fit on the first page
	// while y+16 <= 720, i.e. 40 rows from 72 through 696.
	if len(pages) != 1 || len(pages[0].Lines) != 40 {
		t.Fatalf("pages = %d, first has %d lines", len(pages), len(pages[0].Lines))
	}
	doc = append(doc, screenplay.Element{Type: screenplay.Character, Text: "EVE"})
	pages = Paginate(doc, Options{})
	if len(pages) != 2 || pages[1].Number != 2 || pages[1].Lines[0].Y != 72 || pages[1].Lines[0].Text != "EVE" {
		t.Fatalf("second page = %+v", pages)
	}
}

func TestPaginateNoTrailingBlankPage(t *testing.T) {
	var doc []screenplay.Element
	for i := 0; i < 19; i++ {
		doc = append(doc, screenplay.Element{Type: screenplay.SceneHeading, Text: "EXT. ROAD"})
	}
	// The headings end at y=680; three action rows plus a blank line end
	// below the bottom margin, but nothing follows them.
	doc = append(doc, screenplay.Element{Type: screenplay.Action, Text: strings.TrimSpace(strings.Repeat("word ", 30))})
	pages := Paginate(doc, Options{})
	if len(pages) != 1 {
		t.Fatalf("pages = %d, want 1", len(pages))
	}
	doc = append(doc, screenplay.Element{Type: screenplay.Character, Text: "ANN"})
	pages = Paginate(doc, Options{})
	if len(pages) != 2 || len(pages[1].Lines) != 1 {
		t.Fatalf("break after overflow missing: %+v", pages)
	}
}

func TestPaginateEmptyAndA4(t *testing.T) {
	pages := Paginate(nil, Options{})
	if len(pages) != 1 || len(pages[0].Lines) != 0 {
		t.Fatalf("empty = %+v", pages)
	}
	if p, err := ParsePaper("A4"); err != nil || p != A4 {
		t.Fatalf("ParsePaper = %q, %v", p, err)
	}
	if _, err := ParsePaper("legal"); err == nil {
		t.Fatalf("expected error for legal")
	}
	if w, h := A4.Size(); w >= 612 || h <= 792 {
		t.Fatalf("A4 size = %v x %v", w, h)
	}
}
