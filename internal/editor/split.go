/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"strings"

	"screenwriter/internal/screenplay"
)

// SplitPolicy selects the type of the element created by a split.
type SplitPolicy string

const (
	// PolicyTransition types the new element by the transition table.
	PolicyTransition SplitPolicy = "transition"
	// PolicyReclassify classifies non-blank carried-over text and lets the
	// result override the transition table.
	PolicyReclassify SplitPolicy = "reclassify"
)

// ParseSplitPolicy accepts "transition" or "reclassify". Empty means transition.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch SplitPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyTransition:
		return PolicyTransition, nil
	case PolicyReclassify:
		return PolicyReclassify, nil
	}
	return "", fmt.Errorf("unknown split policy %q", s)
}

// SplitResult describes what a split did. For an append at document level
// BeforeIndex is -1 and Before is zero.
type SplitResult struct {
	Before      screenplay.Element
	After       screenplay.Element
	BeforeIndex int
	AfterIndex  int
	Caret       Caret
	Appended    bool
}

// Split breaks the element under the caret in two at the caret offset. The
// text before the caret stays in place with its type; the text after it
// moves to a new element inserted right below, and the caret moves to the
// start of that element. A caret on the document root appends an empty
// action element instead.
func Split(s Surface, policy SplitPolicy) (SplitResult, error) {
	c, err := Locate(s)
	if err != nil {
		return SplitResult{}, err
	}

	if c.DocumentLevel {
		n := s.Len()
		e := screenplay.Element{Type: screenplay.Action}
		s.Insert(n, e)
		caret := Caret{Element: n}
		s.SetCaret(caret)
		return SplitResult{After: e, BeforeIndex: -1, AfterIndex: n, Caret: caret, Appended: true}, nil
	}

	i := c.Element
	typ := s.Type(i)
	head, tail := SplitText(s.Text(i), c.Offset)
	before := screenplay.Element{Type: typ, Text: head}
	after := screenplay.Element{Type: newElementType(typ, tail, policy), Text: tail}

	s.SetText(i, before.Text)
	s.Insert(i+1, after)
	caret := Caret{Element: i + 1}
	s.SetCaret(caret)

	return SplitResult{
		Before:      before,
		After:       after,
		BeforeIndex: i,
		AfterIndex:  i + 1,
		Caret:       caret,
	}, nil
}

func newElementType(current screenplay.ElementType, carried string, policy SplitPolicy) screenplay.ElementType {
	next := screenplay.TransitionTypeAfter(current)
	if policy == PolicyReclassify && strings.TrimSpace(carried) != "" {
		return screenplay.Classify(carried, current)
	}
	return next
}
