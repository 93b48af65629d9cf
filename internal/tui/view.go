/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"screenwriter/internal/screenplay"
)

const gutterWidth = 15

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle   = lipgloss.NewStyle().Bold(true)
	caretStyle  = lipgloss.NewStyle().Reverse(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Background(lipgloss.Color("236"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// indentFor is the column offset of each type inside the text area.
func indentFor(t screenplay.ElementType) int {
	switch t {
	case screenplay.Character:
		return 20
	case screenplay.Dialogue:
		return 10
	case screenplay.Parenthetical:
		return 15
	case screenplay.Transition:
		return 35
	}
	return 0
}

// render lays out all elements and returns the text plus the line on which
// the caret element starts.
func (m *Model) render() (string, int) {
	textWidth := m.width - gutterWidth - 1
	if textWidth < 20 {
		textWidth = 20
	}
	c := m.buf.Caret()
	var b strings.Builder
	caretLine, line := 0, 0
	for i, e := range m.buf.elems {
		text := e.Type.Display(e.Text)
		if !c.DocumentLevel && c.Element == i {
			caretLine = line
			text = withCaret(text, c.Offset)
		}
		if e.Type == screenplay.SceneHeading {
			text = headStyle.Render(text)
		}
		ind := indentFor(e.Type)
		wrapped := wordwrap.String(text, max(10, textWidth-ind))
		body := indent.String(wrapped, uint(ind))
		for j, l := range strings.Split(body, "\n") {
			label := ""
			if j == 0 {
				label = e.Type.Label()
			}
			b.WriteString(gutterStyle.Render(runewidth.FillRight(label, gutterWidth)))
			b.WriteString(" ")
			b.WriteString(l)
			b.WriteString("\n")
			line++
		}
	}
	if c.DocumentLevel {
		caretLine = line
		b.WriteString(strings.Repeat(" ", gutterWidth+1))
		b.WriteString(caretStyle.Render(" "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), caretLine
}

func withCaret(text string, offset int) string {
	runes := []rune(text)
	if offset >= len(runes) {
		return text + caretStyle.Render(" ")
	}
	return string(runes[:offset]) + caretStyle.Render(string(runes[offset])) + string(runes[offset+1:])
}

// refresh re-renders into the viewport and keeps the caret line visible.
func (m *Model) refresh() {
	content, caretLine := m.render()
	m.vp.SetContent(content)
	if caretLine < m.vp.YOffset {
		m.vp.SetYOffset(caretLine)
	} else if caretLine >= m.vp.YOffset+m.vp.Height {
		m.vp.SetYOffset(caretLine - m.vp.Height + 1)
	}
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	dirty := ""
	if m.sess.Dirty() {
		dirty = " *"
	}
	header := titleStyle.Render(m.sess.Title() + dirty)

	var footer string
	switch m.mode {
	case modeConfirm:
		footer = promptStyle.Render(m.question + " (y/n)")
	case modePrompt:
		footer = m.input.View()
	default:
		bar := m.sess.Status()
		if m.status != "" {
			bar += "  " + m.status
		}
		footer = statusStyle.Width(m.width).Render(runewidth.Truncate(bar, m.width, "…"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.vp.View(), footer)
}
