/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"unicode/utf8"

	"screenwriter/internal/editor"
	"screenwriter/internal/screenplay"
)

// Buffer is the terminal surface: a plain element slice and a caret held
// as (element, rune offset). Each element is a single fragment.
type Buffer struct {
	elems    []screenplay.Element
	caret    editor.Caret
	hasCaret bool
}

var _ editor.Surface = (*Buffer)(nil)

// NewBuffer loads doc with the caret at the start of the first element, or
// on the document root when doc is empty.
func NewBuffer(doc screenplay.Document) *Buffer {
	b := &Buffer{}
	b.Replace(doc)
	if len(b.elems) > 0 {
		b.caret = editor.Caret{Element: 0}
	}
	return b
}

func (b *Buffer) Len() int { return len(b.elems) }

func (b *Buffer) Type(i int) screenplay.ElementType { return b.elems[i].Type }

func (b *Buffer) SetType(i int, t screenplay.ElementType) { b.elems[i].Type = t }

func (b *Buffer) Text(i int) string { return b.elems[i].Text }

func (b *Buffer) SetText(i int, text string) { b.elems[i].Text = text }

func (b *Buffer) Insert(i int, e screenplay.Element) {
	if i >= len(b.elems) {
		b.elems = append(b.elems, e)
		return
	}
	if i < 0 {
		i = 0
	}
	b.elems = append(b.elems, screenplay.Element{})
	copy(b.elems[i+1:], b.elems[i:])
	b.elems[i] = e
}

func (b *Buffer) Selection() (editor.Selection, bool) {
	if !b.hasCaret {
		return editor.Selection{}, false
	}
	if b.caret.DocumentLevel {
		return editor.Selection{Node: editor.NodeRef{Element: editor.DocumentLevel}}, true
	}
	return editor.Selection{Node: editor.NodeRef{Element: b.caret.Element}, Offset: b.caret.Offset}, true
}

// SetCaret clamps c into the document. Out-of-range elements land on the
// document root.
func (b *Buffer) SetCaret(c editor.Caret) {
	b.hasCaret = true
	if c.DocumentLevel || c.Element < 0 || c.Element >= len(b.elems) {
		b.caret = editor.Caret{DocumentLevel: true}
		return
	}
	n := utf8.RuneCountInString(b.elems[c.Element].Text)
	if c.Offset > n {
		c.Offset = n
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	b.caret = c
}

// Replace swaps the content and moves the caret to the document root.
func (b *Buffer) Replace(doc screenplay.Document) {
	b.elems = doc.Elements()
	b.caret = editor.Caret{DocumentLevel: true}
	b.hasCaret = true
}

func (b *Buffer) Snapshot() screenplay.Document { return screenplay.NewDocument(b.elems...) }

// Caret returns the caret as last set.
func (b *Buffer) Caret() editor.Caret { return b.caret }
