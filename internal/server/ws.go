/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"screenwriter/internal/editor"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/surface"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 1 << 20
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin accepts clients that send no Origin (non-browser), the
// server's own host and the configured allowed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" && s.cfg.DevMode {
			return true
		}
		if strings.EqualFold(strings.TrimRight(allowed, "/"), u.Scheme+"://"+u.Host) {
			return true
		}
	}
	s.log.Warn("websocket origin rejected", slog.String("origin", origin))
	return false
}

// SessionRequest is one client message on /ws/session.
type SessionRequest struct {
	Op            string               `json:"op"`
	Type          string               `json:"type,omitempty"`
	Digit         int                  `json:"digit,omitempty"`
	Key           string               `json:"key,omitempty"`
	Text          string               `json:"text,omitempty"`
	Title         string               `json:"title,omitempty"`
	Element       int                  `json:"element,omitempty"`
	Offset        int                  `json:"offset,omitempty"`
	DocumentLevel bool                 `json:"documentLevel,omitempty"`
	Content       *screenplay.Document `json:"content,omitempty"`
	// Confirm answers the discard prompt of new and load in advance.
	Confirm bool `json:"confirm,omitempty"`
}

// SessionReply carries the full session state after every message.
type SessionReply struct {
	Op          string                 `json:"op"`
	Error       *APIError              `json:"error,omitempty"`
	Handled     bool                   `json:"handled,omitempty"`
	Title       string                 `json:"title"`
	Content     screenplay.Document    `json:"content"`
	Caret       *editor.Caret          `json:"caret,omitempty"`
	CurrentType screenplay.ElementType `json:"currentType"`
	Metrics     screenplay.Metrics     `json:"metrics"`
	Dirty       bool                   `json:"dirty"`
}

// liveSession is the editing state behind one websocket connection.
// Messages are handled one at a time by the read loop, so the session has
// a single writer.
type liveSession struct {
	mem     *surface.Memory
	sess    *editor.Session
	confirm bool
}

var errNotOverWebsocket = errors.New("not available in a websocket session")

func newLiveSession(opts editor.Options, l *slog.Logger) *liveSession {
	ls := &liveSession{mem: surface.NewMemory(screenplay.Document{})}
	opts.Confirm = func(string) bool { return ls.confirm }
	opts.Logger = l
	ls.sess = editor.NewSession(ls.mem, opts)
	return ls
}

// Save marks the current content as saved; the client owns persistence.
func (ls *liveSession) Save() error {
	ls.sess.MarkSaved()
	return nil
}

func (ls *liveSession) Open() error   { return errNotOverWebsocket }
func (ls *liveSession) Export() error { return errNotOverWebsocket }

// apply runs one request against the session. Deferred surface work is
// flushed before the reply is built.
func (ls *liveSession) apply(req SessionRequest) (handled bool, err error) {
	defer ls.mem.Flush()
	ls.confirm = req.Confirm
	s := ls.sess
	switch req.Op {
	case "snapshot":
	case "enter":
		err = s.Enter()
	case "retype":
		var t screenplay.ElementType
		if t, err = screenplay.ParseElementType(req.Type); err != nil {
			return false, fmt.Errorf("%w: %v", errValidation, err)
		}
		err = s.Retype(t)
	case "shortcut":
		err = s.Shortcut(req.Digit)
	case "insert":
		err = s.InsertText(req.Text)
	case "paste":
		err = s.Paste(req.Text)
	case "backspace":
		err = s.DeleteBackward()
	case "caret":
		s.MoveCaret(editor.Caret{Element: req.Element, Offset: req.Offset, DocumentLevel: req.DocumentLevel})
	case "blur":
		ls.mem.ClearSelection()
	case "commit":
		s.CommitLine(req.Element)
	case "title":
		s.SetTitle(req.Title)
	case "save":
		err = ls.Save()
	case "key":
		handled, err = s.Action(editor.ParseKey(req.Key), ls)
	case "new":
		err = s.New()
	case "load":
		if req.Content == nil {
			return false, fmt.Errorf("%w: load needs content", errValidation)
		}
		if verr := req.Content.Validate(); verr != nil {
			return false, fmt.Errorf("%w: %v", errValidation, verr)
		}
		err = s.Load(req.Title, *req.Content)
	default:
		return false, fmt.Errorf("%w: unknown op %q", errValidation, req.Op)
	}
	return handled, err
}

func (ls *liveSession) reply(op string, handled bool, err error) SessionReply {
	r := SessionReply{
		Op:          op,
		Handled:     handled,
		Title:       ls.sess.Title(),
		Content:     ls.sess.Document(),
		CurrentType: ls.sess.CurrentType(),
		Metrics:     ls.sess.Metrics(),
		Dirty:       ls.sess.Dirty(),
	}
	if c, lerr := editor.Locate(ls.mem); lerr == nil {
		r.Caret = &c
	}
	if err != nil {
		_, apiErr := classify(err)
		if errors.Is(err, errNotOverWebsocket) {
			apiErr = APIError{Code: CodeValidation, Message: err.Error()}
		}
		r.Error = &apiErr
	}
	return r
}

func (s *Server) handleSession(c *gin.Context) {
	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer func() { _ = conn.Close() }()

	l := s.log.With(slog.String("remote", c.Request.RemoteAddr))
	ls := newLiveSession(s.cfg.Session, l)
	l.Info("editing session opened")

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		t := time.NewTicker(wsPingPeriod)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	// Initial state so clients can render before the first edit.
	if err := writeReply(conn, ls.reply("snapshot", false, nil)); err != nil {
		return
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Warn("websocket read failed", slog.Any("err", err))
			}
			l.Info("editing session closed")
			return
		}
		var req SessionRequest
		var handled bool
		var aerr error
		if jerr := json.Unmarshal(msg, &req); jerr != nil {
			aerr = fmt.Errorf("%w: %v", errValidation, jerr)
		} else {
			handled, aerr = ls.apply(req)
		}
		if aerr != nil {
			l.Debug("session op failed", slog.String("op", req.Op), slog.Any("err", aerr))
		}
		if err := writeReply(conn, ls.reply(req.Op, handled, aerr)); err != nil {
			l.Warn("websocket write failed", slog.Any("err", err))
			return
		}
	}
}

func writeReply(conn *websocket.Conn, r SessionReply) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(r)
}
