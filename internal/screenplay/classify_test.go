/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"strings"
	"testing"
)

func TestClassifyCases(t *testing.T) {
	cases := []struct {
		text      string
		preceding ElementType
		want      ElementType
	}{
		{"INT. HOUSE - DAY", Action, SceneHeading},
		{"ext. beach - night", NoType, SceneHeading},
		{"INT./EXT. CAR - MOVING", Action, SceneHeading},
		{"I/E SHIP DECK", Action, SceneHeading},
		{"INTERIOR DESIGN", Action, Character},
		{"ALEX", Action, Character},
		{"DR WHO 2", Dialogue, Character},
		{"(smiling)", Character, Parenthetical},
		{"CUT TO:", Dialogue, Transition},
		{"smash cut to:", Action, Transition},
		{"MATCH CUT TO:", Action, Transition},
		{"Hello there", Character, Dialogue},
		{"Hello there", Parenthetical, Dialogue},
		{"Hello there", Action, Action},
		{"Hello there", NoType, Action},
		{"", Action, Action},
		{"   ", Character, Action},
		{"  ALEX  ", Action, Character},
		// All-caps transitions without a colon are taken by the character rule first.
		{"FADE OUT", Action, Character},
		{"FADE OUT.", Action, Transition},
	}
	for _, c := range cases {
		if got := Classify(c.text, c.preceding); got != c.want {
			t.Errorf("Classify(%q, %q) = %q, want %q", c.text, c.preceding, got, c.want)
		}
	}
}

func TestClassifyLongCapsIsNotCharacter(t *testing.T) {
	long := strings.Repeat("A", 40)
	if got := Classify(long, Action); got != Action {
		t.Fatalf("Classify(40 caps) = %q, want action", got)
	}
	if got := Classify(strings.Repeat("A", 39), Action); got != Character {
		t.Fatalf("Classify(39 caps) = %q, want character", got)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	inputs := []string{"INT. HOUSE", "ALEX", "(beat)", "CUT TO:", "words words"}
	for _, in := range inputs {
		for _, p := range append(Types(), NoType) {
			first := Classify(in, p)
			for i := 0; i < 5; i++ {
				if got := Classify(in, p); got != first {
					t.Fatalf("Classify(%q, %q) not deterministic: %q vs %q", in, p, got, first)
				}
			}
			if !first.Valid() {
				t.Fatalf("Classify(%q, %q) returned invalid type %q", in, p, first)
			}
		}
	}
}

func TestTransitionTypeAfter(t *testing.T) {
	want := map[ElementType]ElementType{
		SceneHeading:  Action,
		Action:        Action,
		Character:     Dialogue,
		Dialogue:      Action,
		Parenthetical: Dialogue,
		Transition:    SceneHeading,
	}
	for _, typ := range Types() {
		got := TransitionTypeAfter(typ)
		if got != want[typ] {
			t.Errorf("TransitionTypeAfter(%q) = %q, want %q", typ, got, want[typ])
		}
		if !got.Valid() {
			t.Errorf("TransitionTypeAfter(%q) returned invalid type", typ)
		}
	}
	if got := TransitionTypeAfter("bogus"); got != Action {
		t.Fatalf("TransitionTypeAfter(bogus) = %q, want action", got)
	}
}

func TestShortcutsAndParsing(t *testing.T) {
	for i, typ := range Types() {
		got, ok := TypeForShortcut(i + 1)
		if !ok || got != typ {
			t.Fatalf("TypeForShortcut(%d) = %q,%v want %q", i+1, got, ok, typ)
		}
	}
	if _, ok := TypeForShortcut(7); ok {
		t.Fatalf("TypeForShortcut(7) should fail")
	}
	if got, err := ParseElementType(" Scene-Heading "); err != nil || got != SceneHeading {
		t.Fatalf("ParseElementType = %q, %v", got, err)
	}
	if _, err := ParseElementType("montage"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestUpperCaseHeuristic(t *testing.T) {
	upper := map[ElementType]bool{SceneHeading: true, Character: true, Transition: true}
	for _, typ := range Types() {
		if IsUpperCaseHeuristicType(typ) != upper[typ] {
			t.Errorf("IsUpperCaseHeuristicType(%q) = %v", typ, !upper[typ])
		}
	}
	if got := Character.Display("alex"); got != "ALEX" {
		t.Fatalf("Display = %q", got)
	}
	if got := Dialogue.Display("hi"); got != "hi" {
		t.Fatalf("Display = %q", got)
	}
}
