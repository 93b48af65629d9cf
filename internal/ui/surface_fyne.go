//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"screenwriter/internal/editor"
	"screenwriter/internal/screenplay"
)

// indentFor is the left inset of each type, in points.
func indentFor(t screenplay.ElementType) float32 {
	switch t {
	case screenplay.Character:
		return 150
	case screenplay.Dialogue:
		return 100
	case screenplay.Parenthetical:
		return 120
	case screenplay.Transition:
		return 300
	}
	return 0
}

// lineEntry is a single-line entry that reports Enter, Tab, arrows and
// shortcuts to the surface instead of handling them itself.
type lineEntry struct {
	widget.Entry
	s *Surface
}

func newLineEntry(s *Surface) *lineEntry {
	e := &lineEntry{s: s}
	e.ExtendBaseWidget(e)
	e.TextStyle = fyne.TextStyle{Monospace: true}
	return e
}

func (e *lineEntry) TypedKey(k *fyne.KeyEvent) {
	var key string
	switch k.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		key = "enter"
	case fyne.KeyTab:
		key = "tab"
	case fyne.KeyUp:
		key = "up"
	case fyne.KeyDown:
		key = "down"
	case fyne.KeyBackspace:
		if e.CursorColumn == 0 {
			key = "backspace"
		}
	}
	if key != "" && e.s.OnKey != nil && e.s.OnKey(editor.KeyBinding{Key: key}) {
		return
	}
	e.Entry.TypedKey(k)
}

func (e *lineEntry) TypedShortcut(sc fyne.Shortcut) {
	if cs, ok := sc.(*desktop.CustomShortcut); ok && e.s.OnKey != nil {
		if e.s.OnKey(editor.KeyBinding{Mod: true, Key: strings.ToLower(string(cs.KeyName))}) {
			return
		}
	}
	e.Entry.TypedShortcut(sc)
}

func (e *lineEntry) FocusGained() {
	e.Entry.FocusGained()
	e.s.focusGained(e)
}

type row struct {
	typ    screenplay.ElementType
	label  *widget.Label
	inset  *canvas.Rectangle
	entry  *lineEntry
	object fyne.CanvasObject
}

// Surface implements editor.Surface and editor.Deferrer on a column of
// single-line entries, one per element. The caret is the focused entry and
// its cursor column.
type Surface struct {
	rows     []*row
	box      *fyne.Container
	canvas   fyne.Canvas
	focused  int
	docLevel bool
	hasCaret bool
	// quiet is set while the surface moves focus or text itself.
	quiet bool

	// OnKey receives keys the entries do not handle. It reports whether
	// the key was consumed.
	OnKey func(k editor.KeyBinding) bool
	// OnFocus runs when the user focuses an element, before the surface
	// records the move, so the session can commit the element being left.
	OnFocus func(c editor.Caret)
	// OnEdit runs after the user changed element text in place.
	OnEdit func()
}

var (
	_ editor.Surface  = (*Surface)(nil)
	_ editor.Deferrer = (*Surface)(nil)
)

// NewSurface builds an empty surface. c may be nil when nothing is shown.
func NewSurface(c fyne.Canvas) *Surface {
	s := &Surface{box: container.NewVBox(), canvas: c}
	s.Replace(screenplay.Document{})
	return s
}

// Object is the scrollable widget tree to place in a window.
func (s *Surface) Object() fyne.CanvasObject { return container.NewVScroll(s.box) }

func (s *Surface) newRow(e screenplay.Element) *row {
	r := &row{
		label: widget.NewLabel(""),
		inset: canvas.NewRectangle(color.Transparent),
		entry: newLineEntry(s),
	}
	r.label.TextStyle = fyne.TextStyle{Italic: true}
	r.entry.OnChanged = func(string) {
		if !s.quiet && s.OnEdit != nil {
			s.OnEdit()
		}
	}
	left := container.NewHBox(container.NewGridWrap(fyne.NewSize(120, r.label.MinSize().Height), r.label), r.inset)
	r.object = container.NewBorder(nil, nil, left, nil, r.entry)
	s.quietly(func() { r.entry.SetText(e.Text) })
	s.applyType(r, e.Type)
	return r
}

func (s *Surface) applyType(r *row, t screenplay.ElementType) {
	r.typ = t
	r.label.SetText(t.Label())
	r.inset.SetMinSize(fyne.NewSize(indentFor(t), 1))
	r.entry.TextStyle = fyne.TextStyle{Monospace: true, Bold: t == screenplay.SceneHeading}
	r.entry.Refresh()
}

func (s *Surface) quietly(fn func()) {
	prev := s.quiet
	s.quiet = true
	defer func() { s.quiet = prev }()
	fn()
}

func (s *Surface) rebuild() {
	objs := make([]fyne.CanvasObject, len(s.rows))
	for i, r := range s.rows {
		objs[i] = r.object
	}
	s.box.Objects = objs
	s.box.Refresh()
}

func (s *Surface) indexOf(e *lineEntry) int {
	for i, r := range s.rows {
		if r.entry == e {
			return i
		}
	}
	return -1
}

func (s *Surface) focusGained(e *lineEntry) {
	i := s.indexOf(e)
	if i < 0 || s.quiet {
		return
	}
	c := editor.Caret{Element: i, Offset: e.CursorColumn}
	if s.OnFocus != nil {
		s.OnFocus(c)
		return
	}
	s.SetCaret(c)
}

func (s *Surface) Len() int { return len(s.rows) }

func (s *Surface) Type(i int) screenplay.ElementType { return s.rows[i].typ }

func (s *Surface) SetType(i int, t screenplay.ElementType) { s.applyType(s.rows[i], t) }

func (s *Surface) Text(i int) string { return s.rows[i].entry.Text }

func (s *Surface) SetText(i int, text string) {
	s.quietly(func() { s.rows[i].entry.SetText(text) })
}

func (s *Surface) Insert(i int, e screenplay.Element) {
	r := s.newRow(e)
	if i >= len(s.rows) {
		s.rows = append(s.rows, r)
	} else {
		if i < 0 {
			i = 0
		}
		s.rows = append(s.rows, nil)
		copy(s.rows[i+1:], s.rows[i:])
		s.rows[i] = r
		if !s.docLevel && s.focused >= i {
			s.focused++
		}
	}
	s.rebuild()
}

func (s *Surface) Selection() (editor.Selection, bool) {
	if !s.hasCaret {
		return editor.Selection{}, false
	}
	if s.docLevel || s.focused < 0 || s.focused >= len(s.rows) {
		return editor.Selection{Node: editor.NodeRef{Element: editor.DocumentLevel}}, true
	}
	return editor.Selection{Node: editor.NodeRef{Element: s.focused}, Offset: s.rows[s.focused].entry.CursorColumn}, true
}

// SetCaret focuses the element entry and places its cursor. A document
// level caret unfocuses all entries.
func (s *Surface) SetCaret(c editor.Caret) {
	s.hasCaret = true
	if c.DocumentLevel || c.Element < 0 || c.Element >= len(s.rows) {
		s.docLevel = true
		if s.canvas != nil {
			s.quietly(s.canvas.Unfocus)
		}
		return
	}
	s.docLevel = false
	s.focused = c.Element
	e := s.rows[c.Element].entry
	off := c.Offset
	if n := utf8.RuneCountInString(e.Text); off > n {
		off = n
	}
	if off < 0 {
		off = 0
	}
	e.CursorRow = 0
	e.CursorColumn = off
	e.Refresh()
	if s.canvas != nil && s.canvas.Focused() != e {
		s.quietly(func() { s.canvas.Focus(e) })
	}
}

// ClearCaret drops the caret, as when the window loses the editor.
func (s *Surface) ClearCaret() { s.hasCaret = false }

// Replace rebuilds all rows from doc and moves the caret to the document root.
func (s *Surface) Replace(doc screenplay.Document) {
	elems := doc.Elements()
	s.rows = make([]*row, len(elems))
	for i, e := range elems {
		s.rows[i] = s.newRow(e)
	}
	s.rebuild()
	s.docLevel = true
	s.hasCaret = true
	if s.canvas != nil {
		s.quietly(s.canvas.Unfocus)
	}
}

func (s *Surface) Snapshot() screenplay.Document {
	elems := make([]screenplay.Element, len(s.rows))
	for i, r := range s.rows {
		elems[i] = screenplay.Element{Type: r.typ, Text: r.entry.Text}
	}
	return screenplay.NewDocument(elems...)
}

// Defer queues fn on the UI goroutine after the current event.
func (s *Surface) Defer(fn func()) { fyne.Do(fn) }

const (
	recentPrefsKey = "recent.scripts"
	recentMax      = 10
)

func loadRecentScripts(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentScripts(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentScript(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentScripts(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentScripts(p, out)
}
