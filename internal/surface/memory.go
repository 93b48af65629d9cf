/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package surface provides an in-memory editor surface. Element text is kept
// as runs, the way a rich-text host keeps formatting fragments, so caret
// positions can point into any run.
package surface

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"screenwriter/internal/editor"
	"screenwriter/internal/screenplay"
)

type block struct {
	typ  screenplay.ElementType
	runs []string
}

func (b block) text() string { return strings.Join(b.runs, "") }

// Memory implements editor.Surface, editor.Fragmented and editor.Deferrer.
// Callbacks passed to Defer run on the next Flush.
type Memory struct {
	blocks   []block
	sel      editor.Selection
	hasCaret bool

	mu       sync.Mutex
	deferred []func()
}

var (
	_ editor.Surface    = (*Memory)(nil)
	_ editor.Fragmented = (*Memory)(nil)
	_ editor.Deferrer   = (*Memory)(nil)
)

// NewMemory loads doc. The caret starts on the document root.
func NewMemory(doc screenplay.Document) *Memory {
	m := &Memory{}
	m.Replace(doc)
	return m
}

func (m *Memory) Len() int { return len(m.blocks) }

func (m *Memory) Type(i int) screenplay.ElementType { return m.blocks[i].typ }

func (m *Memory) SetType(i int, t screenplay.ElementType) { m.blocks[i].typ = t }

func (m *Memory) Text(i int) string { return m.blocks[i].text() }

// SetText replaces the element text with a single run.
func (m *Memory) SetText(i int, text string) { m.blocks[i].runs = []string{text} }

func (m *Memory) Insert(i int, e screenplay.Element) {
	b := block{typ: e.Type, runs: []string{e.Text}}
	if i < 0 {
		i = 0
	}
	if i >= len(m.blocks) {
		m.blocks = append(m.blocks, b)
		return
	}
	m.blocks = append(m.blocks, block{})
	copy(m.blocks[i+1:], m.blocks[i:])
	m.blocks[i] = b
}

func (m *Memory) Selection() (editor.Selection, bool) { return m.sel, m.hasCaret }

// SetSelection places the native caret directly, as a host reports it.
func (m *Memory) SetSelection(sel editor.Selection) {
	m.sel = sel
	m.hasCaret = true
}

// ClearSelection removes the caret, as when the editor loses focus.
func (m *Memory) ClearSelection() { m.hasCaret = false }

// SetCaret resolves an element offset into the run that contains it. An
// offset on a run boundary lands at the end of the earlier run.
func (m *Memory) SetCaret(c editor.Caret) {
	m.hasCaret = true
	if c.DocumentLevel || c.Element < 0 || c.Element >= len(m.blocks) {
		m.sel = editor.Selection{Node: editor.NodeRef{Element: editor.DocumentLevel}}
		return
	}
	runs := m.blocks[c.Element].runs
	off := c.Offset
	if off < 0 {
		off = 0
	}
	for f, r := range runs {
		n := utf8.RuneCountInString(r)
		if off <= n || f == len(runs)-1 {
			if off > n {
				off = n
			}
			m.sel = editor.Selection{Node: editor.NodeRef{Element: c.Element, Fragment: f}, Offset: off}
			return
		}
		off -= n
	}
	m.sel = editor.Selection{Node: editor.NodeRef{Element: c.Element, Fragment: editor.WholeElement}}
}

// Replace swaps the content for doc and moves the caret to the document root.
func (m *Memory) Replace(doc screenplay.Document) {
	elems := doc.Elements()
	m.blocks = make([]block, len(elems))
	for i, e := range elems {
		m.blocks[i] = block{typ: e.Type, runs: []string{e.Text}}
	}
	m.sel = editor.Selection{Node: editor.NodeRef{Element: editor.DocumentLevel}}
	m.hasCaret = true
}

func (m *Memory) Snapshot() screenplay.Document {
	elems := make([]screenplay.Element, len(m.blocks))
	for i, b := range m.blocks {
		elems[i] = screenplay.Element{Type: b.typ, Text: b.text()}
	}
	return screenplay.NewDocument(elems...)
}

func (m *Memory) Fragments(i int) []string {
	out := make([]string, len(m.blocks[i].runs))
	copy(out, m.blocks[i].runs)
	return out
}

// SetRuns replaces the runs of element i. An empty runs slice leaves one
// empty run behind so the element always has a text node.
func (m *Memory) SetRuns(i int, runs ...string) error {
	if i < 0 || i >= len(m.blocks) {
		return fmt.Errorf("element %d out of range", i)
	}
	if len(runs) == 0 {
		runs = []string{""}
	}
	m.blocks[i].runs = append([]string(nil), runs...)
	return nil
}

// SplitRun cuts run fragment of element i in two at rune offset at. The
// element text is unchanged.
func (m *Memory) SplitRun(i, fragment, at int) error {
	if i < 0 || i >= len(m.blocks) {
		return fmt.Errorf("element %d out of range", i)
	}
	runs := m.blocks[i].runs
	if fragment < 0 || fragment >= len(runs) {
		return fmt.Errorf("fragment %d out of range", fragment)
	}
	if at < 0 || at > utf8.RuneCountInString(runs[fragment]) {
		return fmt.Errorf("offset %d out of range", at)
	}
	head, tail := editor.SplitText(runs[fragment], at)
	split := make([]string, 0, len(runs)+1)
	split = append(split, runs[:fragment]...)
	split = append(split, head, tail)
	split = append(split, runs[fragment+1:]...)
	m.blocks[i].runs = split
	return nil
}

func (m *Memory) Defer(fn func()) {
	m.mu.Lock()
	m.deferred = append(m.deferred, fn)
	m.mu.Unlock()
}

// Flush runs and clears the deferred callbacks in the order they were queued.
func (m *Memory) Flush() {
	m.mu.Lock()
	fns := m.deferred
	m.deferred = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
