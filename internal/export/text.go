/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"screenwriter/internal/layout"
	"screenwriter/internal/screenplay"
)

// DefaultTextWidth matches the action column count of a Letter page.
const DefaultTextWidth = 65

// textIndent is the indent of each type in cells on a 65 column page.
var textIndent = map[screenplay.ElementType]int{
	screenplay.Character:     21,
	screenplay.Dialogue:      14,
	screenplay.Parenthetical: 17,
}

// PlainText renders doc as fixed-width text of at most width cells per
// line. Transitions are right aligned; blank elements are skipped.
func PlainText(doc screenplay.Document, width int) string {
	if width <= 0 {
		width = DefaultTextWidth
	}
	var b strings.Builder
	for _, e := range doc.Elements() {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		t := e.Type
		text = t.Display(text)
		ind := textIndent[t]
		if ind >= width {
			ind = 0
		}
		switch t {
		case screenplay.Transition:
			pad := width - runewidth.StringWidth(text)
			if pad < 0 {
				pad = 0
			}
			b.WriteString(strings.Repeat(" ", pad))
			b.WriteString(text)
			b.WriteString("\n")
		case screenplay.Action:
			writeRows(&b, layout.Wrap(text, width), 0)
		case screenplay.Dialogue:
			writeRows(&b, layout.Wrap(text, width-ind-7), ind)
		default:
			writeRows(&b, []string{text}, ind)
		}
		switch t {
		case screenplay.SceneHeading, screenplay.Action, screenplay.Dialogue, screenplay.Transition:
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeRows(b *strings.Builder, rows []string, indent int) {
	pad := strings.Repeat(" ", indent)
	for _, r := range rows {
		b.WriteString(pad)
		b.WriteString(r)
		b.WriteString("\n")
	}
}
