/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout paginates a screenplay into positioned lines. Courier is
// monospaced, so measurement is done in character cells rather than with a
// shaping engine. PDF and PNG output draw the same pages.
package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"screenwriter/internal/screenplay"
)

// Paper is a supported page size.
type Paper string

const (
	Letter Paper = "letter"
	A4     Paper = "a4"
)

// ParsePaper accepts "letter" or "a4", case-insensitively. Empty means Letter.
func ParsePaper(s string) (Paper, error) {
	switch p := Paper(strings.ToLower(strings.TrimSpace(s))); p {
	case "", Letter:
		return Letter, nil
	case A4:
		return A4, nil
	default:
		return "", fmt.Errorf("unknown paper %q", s)
	}
}

// Size returns the page size in points.
func (p Paper) Size() (w, h float64) {
	if p == A4 {
		return 595.28, 841.89
	}
	return 612, 792
}

// CourierAdvance is the advance width of one Courier cell in ems.
const CourierAdvance = 0.6

// Options are in points.
type Options struct {
	Paper      Paper
	FontSize   float64
	LineHeight float64
	Margin     float64
}

// DefaultOptions is US Letter, Courier 12pt, 16pt lines and one inch margins.
func DefaultOptions() Options {
	return Options{Paper: Letter, FontSize: 12, LineHeight: 16, Margin: 72}
}

// WithDefaults fills zero fields from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Paper == "" {
		o.Paper = d.Paper
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.LineHeight <= 0 {
		o.LineHeight = d.LineHeight
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
	return o
}

// PrintableWidth is the page width inside the left and right margins.
func (o Options) PrintableWidth() float64 {
	w, _ := o.Paper.Size()
	return w - 2*o.Margin
}

// Columns converts a width in points to whole Courier cells.
func (o Options) Columns(width float64) int {
	cell := CourierAdvance * o.FontSize
	if cell <= 0 || width <= 0 {
		return 0
	}
	return int(width / cell)
}

// Line is one drawn line. X and Y are the baseline origin in points from
// the top-left corner of the page.
type Line struct {
	X    float64                `json:"x"`
	Y    float64                `json:"y"`
	Text string                 `json:"text"`
	Bold bool                   `json:"bold,omitempty"`
	Type screenplay.ElementType `json:"type"`
}

// Page is numbered from 1.
type Page struct {
	Number int    `json:"number"`
	Lines  []Line `json:"lines"`
}

// indent is the x offset of each type from the left margin.
var indent = map[screenplay.ElementType]float64{
	screenplay.SceneHeading:  0,
	screenplay.Action:        0,
	screenplay.Character:     150,
	screenplay.Dialogue:      100,
	screenplay.Parenthetical: 120,
	screenplay.Transition:    300,
}

// Indent returns the x offset of t from the left margin. Unknown types sit
// at the margin.
func Indent(t screenplay.ElementType) float64 { return indent[t] }

// WrapWidth returns the wrap width of t in points; 0 means unwrapped.
func (o Options) WrapWidth(t screenplay.ElementType) float64 {
	switch t {
	case screenplay.Action:
		return o.PrintableWidth()
	case screenplay.Dialogue:
		return o.PrintableWidth() - 150
	}
	return 0
}

// advanceLines is how many line heights an element of type t with n
// wrapped lines moves the cursor down.
func advanceLines(t screenplay.ElementType, n int) int {
	switch t {
	case screenplay.SceneHeading, screenplay.Transition:
		return 2
	case screenplay.Action, screenplay.Dialogue:
		return n + 1
	default:
		return 1
	}
}

// Paginate lays elements out on pages. Blank elements are skipped. A page
// break happens before an element whose first line would cross the bottom
// margin and after an element that ended below it. An empty document still
// yields one empty page.
func Paginate(elems []screenplay.Element, opts Options) []Page {
	o := opts.WithDefaults()
	_, ph := o.Paper.Size()
	bottom := ph - o.Margin

	var pages []Page
	cur := Page{Number: 1}
	y := o.Margin
	breakPending := false
	newPage := func() {
		pages = append(pages, cur)
		cur = Page{Number: len(pages) + 1}
		y = o.Margin
		breakPending = false
	}

	for _, e := range elems {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		t := e.Type
		if !t.Valid() {
			t = screenplay.Action
		}
		if len(cur.Lines) > 0 && (breakPending || y+o.LineHeight > bottom) {
			newPage()
		}
		text = t.Display(text)
		rows := []string{text}
		if w := o.WrapWidth(t); w > 0 {
			rows = Wrap(text, o.Columns(w))
		}
		x := o.Margin + Indent(t)
		for i, r := range rows {
			cur.Lines = append(cur.Lines, Line{
				X:    x,
				Y:    y + float64(i)*o.LineHeight,
				Text: r,
				Bold: t == screenplay.SceneHeading,
				Type: t,
			})
		}
		y += float64(advanceLines(t, len(rows))) * o.LineHeight
		if y > bottom {
			breakPending = true
		}
	}
	return append(pages, cur)
}

// Wrap breaks text into lines of at most cols display cells, on spaces
// where possible. Words wider than cols are split. cols <= 0 disables
// wrapping.
func Wrap(text string, cols int) []string {
	if cols <= 0 {
		return []string{text}
	}
	var out []string
	var line strings.Builder
	lineW := 0
	flush := func() {
		out = append(out, line.String())
		line.Reset()
		lineW = 0
	}
	for _, word := range strings.Fields(text) {
		ww := runewidth.StringWidth(word)
		if lineW > 0 && lineW+1+ww > cols {
			flush()
		}
		for ww > cols {
			if lineW > 0 {
				flush()
			}
			head := runewidth.Truncate(word, cols, "")
			if head == "" {
				// A single cell wider than cols; emit it alone.
				_, size := utf8.DecodeRuneInString(word)
				head = word[:size]
			}
			out = append(out, head)
			word = word[len(head):]
			ww = runewidth.StringWidth(word)
		}
		if word == "" {
			continue
		}
		if lineW > 0 {
			line.WriteByte(' ')
			lineW++
		}
		line.WriteString(word)
		lineW += ww
	}
	if lineW > 0 || len(out) == 0 {
		flush()
	}
	return out
}
