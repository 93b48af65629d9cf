/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the editing behaviour that sits between a native
// text surface and the screenplay model: caret location, line splitting,
// element retyping, auto-format and the session state a surface drives.
package editor

import "screenwriter/internal/screenplay"

const (
	// DocumentLevel as NodeRef.Element marks a caret on the document root,
	// between or after elements rather than inside one.
	DocumentLevel = -1
	// WholeElement as NodeRef.Fragment marks a caret on the element
	// container itself. The offset then counts child fragments.
	WholeElement = -1
)

// NodeRef names the native node that holds the caret.
type NodeRef struct {
	Element  int
	Fragment int
}

// Selection is the caret as the host surface reports it.
type Selection struct {
	Node   NodeRef
	Offset int
}

// Caret is a resolved caret position. Offset counts runes from the start of
// the element text. When DocumentLevel is set, Element and Offset carry no
// meaning.
type Caret struct {
	Element       int  `json:"element"`
	Offset        int  `json:"offset"`
	DocumentLevel bool `json:"documentLevel,omitempty"`
}

// Surface is the narrow contract the editing core is written against. Any
// host (terminal, desktop, websocket session, test double) implements it.
type Surface interface {
	Len() int
	Type(i int) screenplay.ElementType
	SetType(i int, t screenplay.ElementType)
	Text(i int) string
	SetText(i int, text string)
	// Insert places e at index i. i == Len() appends.
	Insert(i int, e screenplay.Element)
	// Selection reports the native caret. ok is false when there is none.
	Selection() (sel Selection, ok bool)
	SetCaret(c Caret)
	// Replace swaps the whole document in one step.
	Replace(doc screenplay.Document)
	Snapshot() screenplay.Document
}

// Fragmented is implemented by surfaces whose element text is stored as
// several runs. Joining the fragments of element i must yield Text(i).
type Fragmented interface {
	Fragments(i int) []string
}

// Deferrer is implemented by surfaces that can run work after the host
// finished processing the current event.
type Deferrer interface {
	Defer(fn func())
}
