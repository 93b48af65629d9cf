/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMetricsWordAndPageCount(t *testing.T) {
	doc := NewDocument(Element{Type: Action, Text: "one two"}, Element{Type: Dialogue, Text: "three"})
	m := Recompute(doc, 0)
	if m.Words != 3 || m.Pages != 1 || m.Lines != 2 {
		t.Fatalf("Recompute = %+v, want words=3 pages=1 lines=2", m)
	}
}

func TestMetricsPageBoundary(t *testing.T) {
	words := func(n int) Document {
		return NewDocument(Element{Type: Action, Text: strings.TrimSpace(strings.Repeat("w ", n))})
	}
	if got := Recompute(words(250), DefaultWordsPerPage).Pages; got != 1 {
		t.Fatalf("250 words -> %d pages, want 1", got)
	}
	if got := Recompute(words(251), DefaultWordsPerPage).Pages; got != 2 {
		t.Fatalf("251 words -> %d pages, want 2", got)
	}
}

func TestMetricsEmptyDocument(t *testing.T) {
	m := Recompute(Document{}, 250)
	if m.Lines != 1 || m.Words != 0 || m.Pages != 1 {
		t.Fatalf("empty document metrics = %+v", m)
	}
}

func TestMetricsWordsDoNotMergeAcrossElements(t *testing.T) {
	doc := NewDocument(Element{Type: Action, Text: "end"}, Element{Type: Action, Text: "start"})
	if got := Recompute(doc, 0).Words; got != 2 {
		t.Fatalf("words = %d, want 2", got)
	}
}

func TestDocumentInsertAndClone(t *testing.T) {
	doc := NewDocument(Element{Type: Action, Text: "a"}, Element{Type: Action, Text: "c"})
	doc.Insert(1, Element{Type: Dialogue, Text: "b"})
	doc.Insert(99, Element{Type: Transition, Text: "CUT TO:"})
	if doc.Len() != 4 || doc.At(1).Text != "b" || doc.At(3).Type != Transition {
		t.Fatalf("unexpected document: %+v", doc.Elements())
	}
	c := doc.Clone()
	c.SetText(0, "changed")
	if doc.At(0).Text != "a" {
		t.Fatalf("clone shares storage with original")
	}
	if doc.Equal(c) {
		t.Fatalf("documents should differ after edit")
	}
}

func TestDocumentReadersOnReturnedValue(t *testing.T) {
	seed := func() Document { return SeedDocument() }
	if n := len(seed().Elements()); n != seed().Len() || n == 0 {
		t.Fatalf("Elements = %d, Len = %d", n, seed().Len())
	}
	if seed().At(0).Type != SceneHeading || seed().Text() == "" {
		t.Fatalf("seed = %+v", seed().Elements())
	}
	if !seed().Equal(seed().Clone()) || seed().Validate() != nil {
		t.Fatalf("seed clone differs or is invalid")
	}
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := SeedDocument()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Document
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(doc) {
		t.Fatalf("round trip mismatch")
	}
	if b, _ := json.Marshal(Document{}); string(b) != "[]" {
		t.Fatalf("empty document encodes as %s", b)
	}
}

func TestDocumentValidate(t *testing.T) {
	doc := SeedDocument()
	if err := doc.Validate(); err != nil {
		t.Fatalf("seed document invalid: %v", err)
	}
	doc.SetType(2, "montage")
	if err := doc.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestImportTextClassifiesWithContext(t *testing.T) {
	input := "INT. OFFICE - NIGHT\n\nSam enters, soaked.\nSAM\n(quietly)\nIs anyone here?\nCUT TO:\n"
	doc := ImportText(input)
	want := []ElementType{SceneHeading, Action, Character, Parenthetical, Dialogue, Transition}
	if doc.Len() != len(want) {
		t.Fatalf("imported %d elements, want %d: %+v", doc.Len(), len(want), doc.Elements())
	}
	for i, w := range want {
		if doc.At(i).Type != w {
			t.Errorf("element %d type = %q, want %q", i, doc.At(i).Type, w)
		}
	}
}

func TestNormalizeComposes(t *testing.T) {
	if got := Normalize("Cafe\u0301"); got != "Caf\u00e9" {
		t.Fatalf("Normalize = %q", got)
	}
}
