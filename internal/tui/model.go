/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tui is the terminal editor surface, built on bubbletea.
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"screenwriter/internal/editor"
	"screenwriter/internal/export"
	"screenwriter/internal/layout"
	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

// Options configure the terminal editor.
type Options struct {
	Session editor.Options
	// Path is the .script file being edited. Empty saves to FileName(title)
	// inside Dir.
	Path   string
	Dir    string
	Layout layout.Options
	// OnSaved runs after every successful save, e.g. to update the index.
	OnSaved func(path string, sf storage.ScriptFile)
}

type mode int

const (
	modeEdit mode = iota
	modeConfirm
	modePrompt
)

type promptKind int

const (
	promptTitle promptKind = iota
	promptOpen
)

// StatusMsg sets the status line.
type StatusMsg string

// Model is the bubbletea model of one editing session.
type Model struct {
	buf  *Buffer
	sess *editor.Session
	opts Options
	log  *slog.Logger

	vp    viewport.Model
	input textinput.Model

	mode      mode
	prompt    promptKind
	question  string
	onYes     func() tea.Cmd
	confirmed bool

	status   string
	width    int
	height   int
	quitting bool
}

// New builds a model editing doc.
func New(doc screenplay.Document, opts Options) *Model {
	m := &Model{
		buf:   NewBuffer(doc),
		opts:  opts,
		log:   applog.WithComponent("tui"),
		vp:    viewport.New(80, 20),
		input: textinput.New(),
	}
	so := opts.Session
	so.Confirm = func(string) bool { return m.confirmed }
	if so.Logger == nil {
		so.Logger = m.log
	}
	m.sess = editor.NewSession(m.buf, so)
	m.width, m.height = 80, 24
	m.refresh()
	return m
}

// Session exposes the editing session, for crash recovery.
func (m *Model) Session() *editor.Session { return m.sess }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(1, msg.Height-2)
	case StatusMsg:
		m.status = string(msg)
	case tea.KeyMsg:
		switch m.mode {
		case modeConfirm:
			cmd = m.updateConfirm(msg)
		case modePrompt:
			cmd = m.updatePrompt(msg)
		default:
			cmd = m.updateEdit(msg)
		}
	}
	m.refresh()
	return m, cmd
}

func (m *Model) updateEdit(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "ctrl+c", "ctrl+q":
		if m.sess.Dirty() {
			m.ask("Quit without saving?", m.quit)
			return nil
		}
		return m.quit()
	case "left", "right", "up", "down", "home", "end":
		m.moveCaret(key)
		return nil
	case "backspace":
		m.report(m.sess.DeleteBackward())
		return nil
	case "pgup":
		m.vp.LineUp(max(1, m.vp.Height/2))
		return nil
	case "pgdown":
		m.vp.LineDown(max(1, m.vp.Height/2))
		return nil
	case "ctrl+y":
		m.copyElement()
		return nil
	case "ctrl+t":
		m.startPrompt(promptTitle, "Title: ", m.sess.Title())
		return nil
	}
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		if msg.Alt {
			break
		}
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		if msg.Paste {
			m.report(m.sess.Paste(text))
			return nil
		}
		m.report(m.sess.InsertText(text))
		return nil
	}
	return m.run(func() error {
		handled, err := m.sess.Action(editor.ParseKey(key), m)
		if !handled && err == nil {
			m.log.Debug("key ignored", slog.String("key", key))
		}
		return err
	})
}

// run executes fn and turns a declined replacement into a y/n prompt that
// retries fn with the discard confirmed.
func (m *Model) run(fn func() error) tea.Cmd {
	err := fn()
	if errors.Is(err, editor.ErrDeclined) {
		m.ask("You have unsaved changes. Discard them?", func() tea.Cmd {
			m.confirmed = true
			defer func() { m.confirmed = false }()
			m.report(fn())
			return nil
		})
		return nil
	}
	m.report(err)
	return nil
}

func (m *Model) report(err error) {
	if err != nil {
		m.status = "Error: " + err.Error()
		m.log.Warn("edit failed", slog.Any("err", err))
	}
}

func (m *Model) ask(q string, onYes func() tea.Cmd) {
	m.mode = modeConfirm
	m.question = q
	m.onYes = onYes
}

func (m *Model) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		m.mode = modeEdit
		return m.onYes()
	case "n", "N", "esc":
		m.mode = modeEdit
		m.status = "Cancelled"
	}
	return nil
}

func (m *Model) startPrompt(k promptKind, label, value string) {
	m.mode = modePrompt
	m.prompt = k
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeEdit
		m.input.Blur()
		return nil
	case "enter":
		m.mode = modeEdit
		m.input.Blur()
		value := strings.TrimSpace(m.input.Value())
		switch m.prompt {
		case promptTitle:
			m.sess.SetTitle(value)
		case promptOpen:
			return m.openPath(value)
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	return tea.Quit
}

// moveCaret navigates with arrow keys. Leaving an element commits it
// through MoveCaret.
func (m *Model) moveCaret(key string) {
	n := m.buf.Len()
	if n == 0 {
		return
	}
	c := m.buf.Caret()
	if c.DocumentLevel {
		last := n - 1
		m.sess.MoveCaret(editor.Caret{Element: last, Offset: utf8.RuneCountInString(m.buf.Text(last))})
		return
	}
	length := func(i int) int { return utf8.RuneCountInString(m.buf.Text(i)) }
	switch key {
	case "left":
		if c.Offset > 0 {
			c.Offset--
		} else if c.Element > 0 {
			c.Element--
			c.Offset = length(c.Element)
		}
	case "right":
		if c.Offset < length(c.Element) {
			c.Offset++
		} else if c.Element < n-1 {
			c.Element++
			c.Offset = 0
		}
	case "up":
		if c.Element > 0 {
			c.Element--
			c.Offset = min(c.Offset, length(c.Element))
		}
	case "down":
		if c.Element < n-1 {
			c.Element++
			c.Offset = min(c.Offset, length(c.Element))
		}
	case "home":
		c.Offset = 0
	case "end":
		c.Offset = length(c.Element)
	}
	m.sess.MoveCaret(c)
}

func (m *Model) copyElement() {
	c, err := editor.Locate(m.buf)
	if err != nil || c.DocumentLevel {
		m.status = "Nothing to copy"
		return
	}
	if err := clipboardWrite(m.buf.Text(c.Element)); err != nil {
		m.report(fmt.Errorf("copy: %w", err))
		return
	}
	m.status = "Copied " + m.buf.Type(c.Element).Label()
}

func (m *Model) savePath() string {
	if m.opts.Path != "" {
		return m.opts.Path
	}
	return filepath.Join(m.opts.Dir, storage.FileName(m.sess.Title()))
}

// Save writes the script and marks the session saved.
func (m *Model) Save() error {
	path := m.savePath()
	sf := storage.ScriptFile{Title: m.sess.Title(), Content: m.sess.Document()}
	if err := storage.WriteScript(path, sf); err != nil {
		return err
	}
	m.opts.Path = path
	m.sess.MarkSaved()
	if m.opts.OnSaved != nil {
		m.opts.OnSaved(path, sf)
	}
	m.status = "Saved " + path
	return nil
}

// Open asks for a path; the file is applied when the prompt is submitted.
func (m *Model) Open() error {
	m.startPrompt(promptOpen, "Open: ", "")
	return nil
}

func (m *Model) openPath(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	opened, err := storage.Open(path)
	if err != nil {
		m.report(err)
		return nil
	}
	if opened.Kind == storage.KindPDF {
		info, err := export.InspectPDF(opened.PDF)
		if err != nil {
			m.report(err)
			return nil
		}
		m.status = fmt.Sprintf("%s: PDF %s, %d pages (preview only)", filepath.Base(path), info.Version, info.Pages)
		return nil
	}
	return m.run(func() error {
		if err := m.sess.Load(opened.Script.Title, opened.Script.Content); err != nil {
			return err
		}
		m.opts.Path = path
		m.status = "Opened " + path
		if opened.Recovered {
			m.status += " (recovered from backup)"
		}
		return nil
	})
}

// Export writes a PDF next to the script.
func (m *Model) Export() error {
	base := m.savePath()
	out := filepath.Join(filepath.Dir(base), storage.PDFFileName(m.sess.Title()))
	if err := export.ExportPDF(out, m.sess.Title(), m.sess.Document(), export.PDFOptions{Layout: m.opts.Layout}); err != nil {
		return err
	}
	m.status = "Exported " + out
	return nil
}

// Run starts the terminal editor and blocks until the user quits.
func (m *Model) Run() error {
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run terminal editor: %w", err)
	}
	return nil
}
