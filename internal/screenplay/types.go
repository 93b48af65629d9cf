/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package screenplay holds the screenplay document model: the six element
// types and their transition rules, the line classifier, the flat element
// sequence and the derived line/word/page metrics.
package screenplay

import (
	"fmt"
	"strings"
)

// ElementType is the screenplay role of a single line. The string values
// are the names used in save files and on the wire.
type ElementType string

const (
	// NoType marks the absence of a preceding element.
	NoType        ElementType = ""
	SceneHeading  ElementType = "scene-heading"
	Action        ElementType = "action"
	Character     ElementType = "character"
	Dialogue      ElementType = "dialogue"
	Parenthetical ElementType = "parenthetical"
	Transition    ElementType = "transition"
)

// types is ordered by keyboard shortcut (1..6).
var types = []ElementType{SceneHeading, Action, Character, Dialogue, Parenthetical, Transition}

// next is the type control moves to when advancing past an element.
var next = map[ElementType]ElementType{
	SceneHeading:  Action,
	Action:        Action,
	Character:     Dialogue,
	Dialogue:      Action,
	Parenthetical: Dialogue,
	Transition:    SceneHeading,
}

var labels = map[ElementType]string{
	SceneHeading:  "Scene Heading",
	Action:        "Action",
	Character:     "Character",
	Dialogue:      "Dialogue",
	Parenthetical: "Parenthetical",
	Transition:    "Transition",
}

// Types returns the six element types in shortcut order.
func Types() []ElementType {
	out := make([]ElementType, len(types))
	copy(out, types)
	return out
}

// Valid reports whether t is one of the six element types.
func (t ElementType) Valid() bool {
	_, ok := next[t]
	return ok
}

// Label is the human readable name shown in status bars.
func (t ElementType) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}

// Display returns text as it is rendered for this type: upper-cased for
// scene headings, characters and transitions, unchanged otherwise.
func (t ElementType) Display(text string) string {
	if IsUpperCaseHeuristicType(t) {
		return strings.ToUpper(text)
	}
	return text
}

// ParseElementType accepts the wire name of a type, case-insensitively.
func ParseElementType(s string) (ElementType, error) {
	t := ElementType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return NoType, fmt.Errorf("unknown element type %q", s)
	}
	return t, nil
}

// TransitionTypeAfter returns the type of the element that follows t when
// the user advances without an explicit override. Unknown input yields Action.
func TransitionTypeAfter(t ElementType) ElementType {
	if n, ok := next[t]; ok {
		return n
	}
	return Action
}

// IsUpperCaseHeuristicType reports whether elements of type t render upper-cased.
func IsUpperCaseHeuristicType(t ElementType) bool {
	return t == SceneHeading || t == Character || t == Transition
}

// TypeForShortcut maps the digit of a Mod+digit shortcut to its type.
func TypeForShortcut(digit int) (ElementType, bool) {
	if digit < 1 || digit > len(types) {
		return NoType, false
	}
	return types[digit-1], true
}
