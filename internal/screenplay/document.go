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
	"fmt"
	"strings"
)

// Element is one line of a screenplay. Its position is its index in the
// owning Document.
type Element struct {
	Type ElementType `json:"type"`
	Text string      `json:"text"`
}

// Document is a flat, ordered sequence of elements. The zero value is an
// empty document ready to use.
type Document struct {
	elems []Element
}

// NewDocument builds a document from a copy of elems.
func NewDocument(elems ...Element) Document {
	d := Document{elems: make([]Element, len(elems))}
	copy(d.elems, elems)
	return d
}

// SeedDocument returns the sample scene a fresh editor starts with.
func SeedDocument() Document {
	return NewDocument(
		Element{Type: SceneHeading, Text: "INT. COFFEE SHOP - DAY"},
		Element{Type: Action, Text: "A bustling coffee shop. Steam rises from cups. ALEX (30s, energetic) sits at a corner table, typing furiously on a laptop."},
		Element{Type: Character, Text: "ALEX"},
		Element{Type: Dialogue, Text: "This script writing tool is exactly what I needed!"},
		Element{Type: Action, Text: "A notification pops up on the laptop screen."},
		Element{Type: Parenthetical, Text: "(excited)"},
		Element{Type: Dialogue, Text: "Now I can write anywhere on my iPad!"},
		Element{Type: Transition, Text: "CUT TO:"},
	)
}

func (d Document) Len() int { return len(d.elems) }

// At returns the element at index i. It panics when i is out of range.
func (d Document) At(i int) Element { return d.elems[i] }

// Elements returns a copy of the element sequence.
func (d Document) Elements() []Element {
	out := make([]Element, len(d.elems))
	copy(out, d.elems)
	return out
}

// Insert places e at index i, shifting later elements. i == Len appends.
func (d *Document) Insert(i int, e Element) {
	if i < 0 {
		i = 0
	}
	if i >= len(d.elems) {
		d.elems = append(d.elems, e)
		return
	}
	d.elems = append(d.elems, Element{})
	copy(d.elems[i+1:], d.elems[i:])
	d.elems[i] = e
}

func (d *Document) Append(e Element) { d.elems = append(d.elems, e) }

func (d *Document) SetType(i int, t ElementType) { d.elems[i].Type = t }

func (d *Document) SetText(i int, text string) { d.elems[i].Text = text }

// Text joins all element texts with newlines, in order.
func (d Document) Text() string {
	parts := make([]string, len(d.elems))
	for i, e := range d.elems {
		parts[i] = e.Text
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy.
func (d Document) Clone() Document { return NewDocument(d.elems...) }

// Equal reports whether both documents hold the same types and texts in the same order.
func (d Document) Equal(o Document) bool {
	if len(d.elems) != len(o.elems) {
		return false
	}
	for i := range d.elems {
		if d.elems[i] != o.elems[i] {
			return false
		}
	}
	return true
}

// Validate checks that every element carries one of the six types.
func (d Document) Validate() error {
	for i, e := range d.elems {
		if !e.Type.Valid() {
			return fmt.Errorf("element %d: invalid type %q", i, e.Type)
		}
	}
	return nil
}

// MarshalJSON encodes the document as an array of {type, text} objects.
func (d Document) MarshalJSON() ([]byte, error) {
	if d.elems == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.elems)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var elems []Element
	if err := json.Unmarshal(b, &elems); err != nil {
		return err
	}
	d.elems = elems
	return nil
}
