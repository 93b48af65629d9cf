/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor_test

import (
	"errors"
	"testing"

	"screenwriter/internal/editor"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/surface"
)

func newSession(doc screenplay.Document, opts editor.Options) (*editor.Session, *surface.Memory) {
	m := surface.NewMemory(doc)
	return editor.NewSession(m, opts), m
}

func TestEnterAfterCharacterStartsDialogue(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Character, Text: "ALEX"}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0, Offset: 4})
	if err := s.Enter(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 || m.Type(1) != screenplay.Dialogue {
		t.Fatalf("doc = %+v", m.Snapshot().Elements())
	}
	if s.CurrentType() != screenplay.Dialogue {
		t.Fatalf("current type = %q", s.CurrentType())
	}
	if got := s.Metrics(); got.Lines != 2 || got.Words != 1 {
		t.Fatalf("metrics = %+v", got)
	}
	if !s.Dirty() {
		t.Fatalf("session should be dirty after Enter")
	}
}

func TestEnterWithoutCaretIsNoop(t *testing.T) {
	s, m := newSession(screenplay.SeedDocument(), editor.Options{})
	m.ClearSelection()
	if err := s.Enter(); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if s.Dirty() {
		t.Fatalf("document changed without a caret")
	}
}

func TestEachEnterSplitsOnce(t *testing.T) {
	s, m := newSession(screenplay.Document{}, editor.Options{})
	for i := 0; i < 3; i++ {
		if err := s.Enter(); err != nil {
			t.Fatal(err)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("three Enters produced %d elements", m.Len())
	}
}

func TestRetypeAndShortcut(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "alex"}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0, Offset: 2})
	if err := s.Shortcut(3); err != nil {
		t.Fatal(err)
	}
	if m.Type(0) != screenplay.Character || s.CurrentType() != screenplay.Character {
		t.Fatalf("type = %q", m.Type(0))
	}
	if err := s.Shortcut(9); err == nil {
		t.Fatalf("expected error for unbound shortcut")
	}
	if err := s.Retype("montage"); err == nil {
		t.Fatalf("expected error for invalid type")
	}
}

func TestRetypeAtDocumentLevelAppends(t *testing.T) {
	s, m := newSession(screenplay.SeedDocument(), editor.Options{})
	n := m.Len()
	if err := s.Retype(screenplay.Transition); err != nil {
		t.Fatal(err)
	}
	if m.Len() != n+1 || m.Type(n) != screenplay.Transition || m.Text(n) != "" {
		t.Fatalf("doc = %+v", m.Snapshot().Elements())
	}
	if c, _ := editor.Locate(m); c != (editor.Caret{Element: n}) {
		t.Fatalf("caret = %+v", c)
	}
}

func TestCommitLineAutoFormat(t *testing.T) {
	doc := screenplay.NewDocument(
		screenplay.Element{Type: screenplay.Action, Text: "int. garage - night"},
		screenplay.Element{Type: screenplay.Action, Text: "MAYA"},
		screenplay.Element{Type: screenplay.Action, Text: "Where were you?"},
	)
	s, m := newSession(doc, editor.Options{AutoFormat: true})
	for i := 0; i < m.Len(); i++ {
		s.CommitLine(i)
	}
	want := []screenplay.ElementType{screenplay.SceneHeading, screenplay.Character, screenplay.Dialogue}
	for i, w := range want {
		if m.Type(i) != w {
			t.Errorf("element %d = %q, want %q", i, m.Type(i), w)
		}
	}

	off, mo := newSession(doc, editor.Options{AutoFormat: false})
	off.CommitLine(0)
	if mo.Type(0) != screenplay.Action {
		t.Fatalf("auto-format disabled but element was retyped")
	}
}

func TestMoveCaretCommitsLeftElement(t *testing.T) {
	doc := screenplay.NewDocument(
		screenplay.Element{Type: screenplay.Action, Text: "CUT TO:"},
		screenplay.Element{Type: screenplay.Action, Text: "x"},
	)
	s, m := newSession(doc, editor.Options{AutoFormat: true})
	m.SetCaret(editor.Caret{Element: 0, Offset: 3})
	s.MoveCaret(editor.Caret{Element: 0, Offset: 5})
	if m.Type(0) != screenplay.Action {
		t.Fatalf("moving within an element must not reclassify")
	}
	s.MoveCaret(editor.Caret{Element: 1})
	if m.Type(0) != screenplay.Transition {
		t.Fatalf("leaving the element should reclassify it, got %q", m.Type(0))
	}
}

func TestCommitOnEnterClassifiesBeforeSplit(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "SAM"}),
		editor.Options{AutoFormat: true, CommitSignal: editor.CommitOnEnter})
	m.SetCaret(editor.Caret{Element: 0, Offset: 3})
	if err := s.Enter(); err != nil {
		t.Fatal(err)
	}
	if m.Type(0) != screenplay.Character || m.Type(1) != screenplay.Dialogue {
		t.Fatalf("types = %q, %q", m.Type(0), m.Type(1))
	}
}

func TestInsertTextSplitsLines(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Character, Text: "AB"}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0, Offset: 1})
	if err := s.InsertText("x\r\nhello there"); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 || m.Text(0) != "Ax" || m.Text(1) != "hello thereB" || m.Type(1) != screenplay.Dialogue {
		t.Fatalf("doc = %+v", m.Snapshot().Elements())
	}
	if c, _ := editor.Locate(m); c != (editor.Caret{Element: 1, Offset: 11}) {
		t.Fatalf("caret = %+v", c)
	}
	if s.Metrics().Words != 3 {
		t.Fatalf("metrics = %+v", s.Metrics())
	}
}

func TestInsertTextBareCarriageReturn(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: ""}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0})
	if err := s.Paste("line one\rline two"); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 || m.Text(0) != "line one" || m.Text(1) != "line two" {
		t.Fatalf("doc = %+v", m.Snapshot().Elements())
	}
}

func TestEditingKeepsInvalidBytes(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "a\xffbc"}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0, Offset: 2})
	if err := s.InsertText("x"); err != nil {
		t.Fatal(err)
	}
	if m.Text(0) != "a\xffxbc" {
		t.Fatalf("text = %q", m.Text(0))
	}
	m.SetCaret(editor.Caret{Element: 0, Offset: 4})
	if err := s.DeleteBackward(); err != nil {
		t.Fatal(err)
	}
	if m.Text(0) != "a\xffxc" {
		t.Fatalf("text = %q", m.Text(0))
	}
	m.SetCaret(editor.Caret{Element: 0, Offset: 2})
	if err := s.DeleteBackward(); err != nil {
		t.Fatal(err)
	}
	if m.Text(0) != "axc" {
		t.Fatalf("text = %q", m.Text(0))
	}
}

func TestPasteDefersMetrics(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: ""}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0})
	if err := s.Paste("one two three"); err != nil {
		t.Fatal(err)
	}
	if s.Metrics().Words != 0 {
		t.Fatalf("metrics updated before the host finished: %+v", s.Metrics())
	}
	m.Flush()
	if s.Metrics().Words != 3 {
		t.Fatalf("metrics after flush = %+v", s.Metrics())
	}
}

func TestDeleteBackwardMergesElements(t *testing.T) {
	doc := screenplay.NewDocument(
		screenplay.Element{Type: screenplay.Action, Text: "one"},
		screenplay.Element{Type: screenplay.Dialogue, Text: "two"},
	)
	s, m := newSession(doc, editor.Options{})
	m.SetCaret(editor.Caret{Element: 1, Offset: 0})
	if err := s.DeleteBackward(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 1 || m.Text(0) != "onetwo" {
		t.Fatalf("doc = %+v", m.Snapshot().Elements())
	}
	if c, _ := editor.Locate(m); c != (editor.Caret{Element: 0, Offset: 3}) {
		t.Fatalf("caret = %+v", c)
	}
	if err := s.DeleteBackward(); err != nil {
		t.Fatal(err)
	}
	if m.Text(0) != "ontwo" {
		t.Fatalf("text = %q", m.Text(0))
	}
}

func TestNewDeclinedLeavesDocumentIdentical(t *testing.T) {
	asked := 0
	s, m := newSession(screenplay.SeedDocument(), editor.Options{Title: "Draft", Confirm: func(string) bool { asked++; return false }})
	m.SetCaret(editor.Caret{Element: 0, Offset: 3})
	if err := s.InsertText("X"); err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot()

	if err := s.New(); !errors.Is(err, editor.ErrDeclined) {
		t.Fatalf("New: %v", err)
	}
	after := m.Snapshot()
	if !after.Equal(before) || s.Title() != "Draft" || asked != 1 {
		t.Fatalf("declined New changed state (asked=%d, title=%q)", asked, s.Title())
	}

	if err := s.Load("Other", screenplay.NewDocument()); !errors.Is(err, editor.ErrDeclined) {
		t.Fatalf("Load: %v", err)
	}
	after = m.Snapshot()
	if !after.Equal(before) {
		t.Fatalf("declined Load changed the document")
	}
}

func TestNewWhenCleanSkipsConfirmation(t *testing.T) {
	s, m := newSession(screenplay.SeedDocument(), editor.Options{Title: "Draft", Confirm: func(string) bool {
		t.Fatalf("confirmation requested for a clean document")
		return false
	}})
	if err := s.New(); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 || s.Title() != editor.DefaultTitle || s.Dirty() {
		t.Fatalf("New left len=%d title=%q dirty=%v", m.Len(), s.Title(), s.Dirty())
	}
	if got := s.Metrics(); got.Lines != 1 || got.Pages != 1 || got.Words != 0 {
		t.Fatalf("metrics = %+v", got)
	}
}

func TestLoadMarksSaved(t *testing.T) {
	s, m := newSession(screenplay.Document{}, editor.Options{})
	doc := screenplay.SeedDocument()
	if err := s.Load("Coffee", doc); err != nil {
		t.Fatal(err)
	}
	if s.Dirty() || s.Title() != "Coffee" || m.Len() != doc.Len() {
		t.Fatalf("load state: dirty=%v title=%q len=%d", s.Dirty(), s.Title(), m.Len())
	}
	bad := screenplay.NewDocument(screenplay.Element{Type: "montage"})
	if err := s.Load("Bad", bad); err == nil {
		t.Fatalf("expected validation error")
	}
	m.SetCaret(editor.Caret{Element: 0})
	_ = s.InsertText("x")
	s.MarkSaved()
	if s.Dirty() {
		t.Fatalf("MarkSaved did not clear dirty state")
	}
}

type recorder struct{ saved, opened, exported int }

func (r *recorder) Save() error   { r.saved++; return nil }
func (r *recorder) Open() error   { r.opened++; return nil }
func (r *recorder) Export() error { r.exported++; return nil }

func TestActionDispatch(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "x"}), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0, Offset: 0})
	rec := &recorder{}

	for _, k := range []string{"ctrl+s", "cmd+o", "mod+e"} {
		if handled, err := s.Action(editor.ParseKey(k), rec); !handled || err != nil {
			t.Fatalf("%s: handled=%v err=%v", k, handled, err)
		}
	}
	if rec.saved != 1 || rec.opened != 1 || rec.exported != 1 {
		t.Fatalf("commands = %+v", rec)
	}
	if _, err := s.Action(editor.ParseKey("ctrl+6"), rec); err != nil || m.Type(0) != screenplay.Transition {
		t.Fatalf("ctrl+6: %v, type %q", err, m.Type(0))
	}
	if _, err := s.Action(editor.ParseKey("tab"), rec); err != nil || m.Text(0) != "    x" {
		t.Fatalf("tab: %v, text %q", err, m.Text(0))
	}
	if handled, _ := s.Action(editor.ParseKey("ctrl+q"), rec); handled {
		t.Fatalf("ctrl+q should be left to the host")
	}
	if handled, _ := s.Action(editor.ParseKey("ctrl+7"), rec); handled {
		t.Fatalf("ctrl+7 should be left to the host")
	}
}

func TestTextEditedRefreshesMetrics(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "one"}), editor.Options{})
	m.SetText(0, "one two three")
	if got := s.Metrics().Words; got != 1 {
		t.Fatalf("metrics changed before TextEdited: %d", got)
	}
	s.TextEdited()
	if got := s.Metrics().Words; got != 3 {
		t.Fatalf("words = %d, want 3", got)
	}
	if m.Type(0) != screenplay.Action {
		t.Fatalf("TextEdited must not reclassify")
	}
}

func TestStatusLine(t *testing.T) {
	s, m := newSession(screenplay.NewDocument(
		screenplay.Element{Type: screenplay.Character, Text: "ALEX"},
		screenplay.Element{Type: screenplay.Dialogue, Text: "Hi there."},
	), editor.Options{})
	m.SetCaret(editor.Caret{Element: 0})
	s.MoveCaret(editor.Caret{Element: 0})
	if got, want := s.Status(), "Element: Character | Words: 3 | Pages: 1 | Lines: 2"; got != want {
		t.Fatalf("Status = %q, want %q", got, want)
	}
}
