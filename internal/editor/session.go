/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
)

// DefaultTitle is the title of a script that was never named.
const DefaultTitle = "Untitled Script"

// CommitSignal selects when auto-format reclassifies an element.
type CommitSignal string

const (
	// CommitOnLeave reclassifies an element when the caret leaves it.
	CommitOnLeave CommitSignal = "leave"
	// CommitOnEnter additionally reclassifies the text before the caret on
	// every Enter.
	CommitOnEnter CommitSignal = "enter"
)

// ParseCommitSignal accepts "leave" or "enter". Empty means leave.
func ParseCommitSignal(s string) (CommitSignal, error) {
	switch CommitSignal(strings.ToLower(strings.TrimSpace(s))) {
	case "", CommitOnLeave:
		return CommitOnLeave, nil
	case CommitOnEnter:
		return CommitOnEnter, nil
	}
	return "", fmt.Errorf("unknown commit signal %q", s)
}

// Confirmer asks the user a yes/no question.
type Confirmer func(prompt string) bool

// Options configure a Session. Zero values select the defaults.
type Options struct {
	Title        string
	AutoFormat   bool
	SplitPolicy  SplitPolicy
	CommitSignal CommitSignal
	WordsPerPage int
	Confirm      Confirmer
	Logger       *slog.Logger
}

// Session is the editing state of one open script on one surface. It
// replaces the per-page globals of a single-document editor: title, last
// saved content, focused element type and cached metrics.
//
// A Session is not safe for concurrent use; the host serialises events.
type Session struct {
	surface Surface
	opts    Options
	log     *slog.Logger

	title   string
	saved   screenplay.Document
	current screenplay.ElementType
	metrics screenplay.Metrics
}

const discardPrompt = "You have unsaved changes. Discard them?"

// NewSession wraps s. The surface content at this point counts as saved.
func NewSession(s Surface, opts Options) *Session {
	if opts.SplitPolicy == "" {
		opts.SplitPolicy = PolicyTransition
	}
	if opts.CommitSignal == "" {
		opts.CommitSignal = CommitOnLeave
	}
	if opts.WordsPerPage <= 0 {
		opts.WordsPerPage = screenplay.DefaultWordsPerPage
	}
	l := opts.Logger
	if l == nil {
		l = applog.Discard()
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DefaultTitle
	}
	sess := &Session{
		surface: s,
		opts:    opts,
		log:     l,
		title:   title,
		saved:   s.Snapshot(),
		current: screenplay.Action,
	}
	sess.syncCurrent()
	sess.recompute()
	return sess
}

func (s *Session) Surface() Surface { return s.surface }

func (s *Session) Title() string { return s.title }

// SetTitle renames the script. Blank titles fall back to DefaultTitle.
func (s *Session) SetTitle(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		t = DefaultTitle
	}
	s.title = t
}

// CurrentType is the type of the element that holds the caret, as last seen.
func (s *Session) CurrentType() screenplay.ElementType { return s.current }

func (s *Session) Metrics() screenplay.Metrics { return s.metrics }

// Status is the one-line metrics bar surfaces show under the editor.
func (s *Session) Status() string {
	return fmt.Sprintf("Element: %s | Words: %d | Pages: %d | Lines: %d",
		s.current.Label(), s.metrics.Words, s.metrics.Pages, s.metrics.Lines)
}

// Document returns a snapshot of the surface content.
func (s *Session) Document() screenplay.Document { return s.surface.Snapshot() }

// Dirty reports whether the content differs from the last saved snapshot.
func (s *Session) Dirty() bool {
	doc := s.surface.Snapshot()
	return !doc.Equal(s.saved)
}

// MarkSaved records the current content as saved.
func (s *Session) MarkSaved() { s.saved = s.surface.Snapshot() }

// Enter handles one Enter keystroke: exactly one split. A missing caret is
// a silent no-op.
func (s *Session) Enter() error {
	if s.opts.AutoFormat && s.opts.CommitSignal == CommitOnEnter {
		s.commitBeforeCaret()
	}
	res, err := Split(s.surface, s.opts.SplitPolicy)
	if errors.Is(err, ErrNoCaret) {
		s.log.Debug("enter ignored", slog.String("reason", "no caret"))
		return nil
	}
	if err != nil {
		return err
	}
	s.current = res.After.Type
	s.recompute()
	s.log.Debug("split",
		slog.Int("element", res.AfterIndex),
		slog.String("type", string(res.After.Type)),
		slog.Bool("appended", res.Appended))
	return nil
}

// Retype sets the type of the element under the caret. With the caret on
// the document root a new empty element of type t is appended and focused.
func (s *Session) Retype(t screenplay.ElementType) error {
	if !t.Valid() {
		return fmt.Errorf("retype: invalid element type %q", t)
	}
	c, err := Locate(s.surface)
	if err != nil {
		return nil
	}
	if c.DocumentLevel {
		n := s.surface.Len()
		s.surface.Insert(n, screenplay.Element{Type: t})
		s.surface.SetCaret(Caret{Element: n})
	} else {
		s.surface.SetType(c.Element, t)
	}
	s.current = t
	s.recompute()
	return nil
}

// Shortcut retypes the current element by keyboard digit 1..6.
func (s *Session) Shortcut(digit int) error {
	t, ok := screenplay.TypeForShortcut(digit)
	if !ok {
		return fmt.Errorf("no element type bound to %d", digit)
	}
	return s.Retype(t)
}

// CommitLine reclassifies element i against its predecessor. It is a no-op
// for blank text, out-of-range indices or with auto-format disabled.
func (s *Session) CommitLine(i int) {
	if !s.opts.AutoFormat || i < 0 || i >= s.surface.Len() {
		return
	}
	if s.reclassify(i, s.surface.Text(i)) {
		s.recompute()
	}
}

func (s *Session) commitBeforeCaret() {
	c, err := Locate(s.surface)
	if err != nil || c.DocumentLevel {
		return
	}
	head, _ := SplitText(s.surface.Text(c.Element), c.Offset)
	s.reclassify(c.Element, head)
}

func (s *Session) reclassify(i int, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	prev := screenplay.NoType
	if i > 0 {
		prev = s.surface.Type(i - 1)
	}
	t := screenplay.Classify(text, prev)
	if t == s.surface.Type(i) {
		return false
	}
	s.surface.SetType(i, t)
	if c, err := Locate(s.surface); err == nil && !c.DocumentLevel && c.Element == i {
		s.current = t
	}
	s.log.Debug("auto-format", slog.Int("element", i), slog.String("type", string(t)))
	return true
}

// InsertText inserts text at the caret. Line breaks inside text split the
// element through the split engine.
func (s *Session) InsertText(text string) error {
	if err := s.insert(text); err != nil {
		return err
	}
	s.recompute()
	return nil
}

// Paste inserts text like InsertText and recomputes metrics after the host
// finished applying the paste.
func (s *Session) Paste(text string) error {
	if err := s.insert(text); err != nil {
		return err
	}
	if d, ok := s.surface.(Deferrer); ok {
		d.Defer(s.recompute)
		return nil
	}
	s.recompute()
	return nil
}

func (s *Session) insert(text string) error {
	if text == "" {
		return nil
	}
	c, err := Locate(s.surface)
	if errors.Is(err, ErrNoCaret) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.DocumentLevel {
		n := s.surface.Len()
		s.surface.Insert(n, screenplay.Element{Type: screenplay.Action})
		s.surface.SetCaret(Caret{Element: n})
	}
	text = strings.ReplaceAll(screenplay.Normalize(text), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for n, line := range strings.Split(text, "\n") {
		if n > 0 {
			if _, err := Split(s.surface, s.opts.SplitPolicy); err != nil {
				return err
			}
		}
		c, err := Locate(s.surface)
		if err != nil {
			return err
		}
		cur := s.surface.Text(c.Element)
		k := clampOffset(cur, c.Offset)
		head, tail := SplitText(cur, k)
		s.surface.SetText(c.Element, head+line+tail)
		s.surface.SetCaret(Caret{Element: c.Element, Offset: k + utf8.RuneCountInString(line)})
	}
	s.syncCurrent()
	return nil
}

// TextEdited tells the session that the host changed element text itself,
// as native text widgets do while typing. Focus type and metrics are
// refreshed; no reclassification happens.
func (s *Session) TextEdited() {
	s.syncCurrent()
	s.recompute()
}

// DeleteBackward removes the rune before the caret. At the start of an
// element the element is merged into its predecessor.
func (s *Session) DeleteBackward() error {
	c, err := Locate(s.surface)
	if err != nil || c.DocumentLevel {
		return nil
	}
	text := s.surface.Text(c.Element)
	k := clampOffset(text, c.Offset)
	if k > 0 {
		s.surface.SetText(c.Element, text[:byteOffset(text, k-1)]+text[byteOffset(text, k):])
		s.surface.SetCaret(Caret{Element: c.Element, Offset: k - 1})
		s.recompute()
		return nil
	}
	if c.Element == 0 {
		return nil
	}
	doc := s.surface.Snapshot()
	elems := doc.Elements()
	prev := elems[c.Element-1]
	join := utf8.RuneCountInString(prev.Text)
	elems[c.Element-1].Text = prev.Text + text
	elems = append(elems[:c.Element], elems[c.Element+1:]...)
	s.surface.Replace(screenplay.NewDocument(elems...))
	s.surface.SetCaret(Caret{Element: c.Element - 1, Offset: join})
	s.syncCurrent()
	s.recompute()
	return nil
}

// MoveCaret places the caret and commits the element it left when the
// caret changes element.
func (s *Session) MoveCaret(c Caret) {
	from, err := Locate(s.surface)
	s.surface.SetCaret(c)
	if err == nil && !from.DocumentLevel && (c.DocumentLevel || from.Element != c.Element) {
		s.CommitLine(from.Element)
	}
	s.syncCurrent()
}

// New replaces the document with an empty one. Unsaved changes are only
// discarded after confirmation; otherwise ErrDeclined is returned and
// nothing changes.
func (s *Session) New() error {
	if !s.confirmDiscard() {
		return ErrDeclined
	}
	s.surface.Replace(screenplay.Document{})
	s.title = DefaultTitle
	s.saved = screenplay.Document{}
	s.current = screenplay.Action
	s.recompute()
	s.log.Info("new script")
	return nil
}

// Load replaces the document with doc in a single step, after the same
// confirmation as New. The loaded content counts as saved.
func (s *Session) Load(title string, doc screenplay.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if !s.confirmDiscard() {
		return ErrDeclined
	}
	s.surface.Replace(doc)
	s.SetTitle(title)
	s.saved = doc.Clone()
	s.syncCurrent()
	s.recompute()
	s.log.Info("script loaded", slog.String("title", s.title), slog.Int("elements", doc.Len()))
	return nil
}

func (s *Session) confirmDiscard() bool {
	if !s.Dirty() {
		return true
	}
	if s.opts.Confirm == nil {
		return false
	}
	return s.opts.Confirm(discardPrompt)
}

func (s *Session) syncCurrent() {
	c, err := Locate(s.surface)
	if err != nil || c.DocumentLevel {
		return
	}
	if t := s.surface.Type(c.Element); t.Valid() {
		s.current = t
	}
}

func (s *Session) recompute() {
	s.metrics = screenplay.Recompute(s.surface.Snapshot(), s.opts.WordsPerPage)
}
