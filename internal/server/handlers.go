/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"crypto/hmac"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"screenwriter/internal/export"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
	"screenwriter/internal/version"
)

const maxBody = 4 << 20

func (s *Server) handleReady(c *gin.Context) {
	if s.store == nil {
		c.String(http.StatusOK, "ready")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		c.String(http.StatusServiceUnavailable, "db not ready")
		return
	}
	c.String(http.StatusOK, "ready")
}

func (s *Server) handleVersion(c *gin.Context) {
	c.String(http.StatusOK, "screenwriter "+version.String())
}

func (s *Server) handleToken(c *gin.Context) {
	var req struct {
		Subject    string `json:"subject"`
		Key        string `json:"key"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	// The body is optional in dev mode.
	_ = c.ShouldBindJSON(&req)
	if err := s.cfg.checkSecret(); err != nil {
		fail(c, fmt.Errorf("%w: %v", errUnauthorized, err))
		return
	}
	if !s.cfg.DevMode {
		if s.cfg.LoginKey == "" {
			fail(c, fmt.Errorf("%w: token issuing is disabled", errUnauthorized))
			return
		}
		if !hmac.Equal([]byte(req.Key), []byte(s.cfg.LoginKey)) {
			s.log.Warn("token request with bad login key", slog.String("subject", req.Subject), slog.String("remote", c.ClientIP()))
			fail(c, fmt.Errorf("%w: bad login key", errUnauthorized))
			return
		}
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" {
		if !s.cfg.DevMode {
			fail(c, fmt.Errorf("%w: subject is required", errValidation))
			return
		}
		req.Subject = "dev"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = defaultTokenTTL
	}
	exp := time.Now().Add(ttl)
	tok, err := SignToken(s.cfg.AuthSecret, req.Subject, exp)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"token": tok, "expires_at": exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handleClassify(c *gin.Context) {
	var req struct {
		Text      string `json:"text"`
		Preceding string `json:"preceding"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errValidation, err))
		return
	}
	prev := screenplay.NoType
	if req.Preceding != "" {
		t, err := screenplay.ParseElementType(req.Preceding)
		if err != nil {
			fail(c, fmt.Errorf("%w: %v", errValidation, err))
			return
		}
		prev = t
	}
	ok(c, http.StatusOK, gin.H{"type": screenplay.Classify(screenplay.Normalize(req.Text), prev)})
}

type contentRequest struct {
	Title        string              `json:"title"`
	Content      screenplay.Document `json:"content"`
	WordsPerPage int                 `json:"wordsPerPage"`
	Width        int                 `json:"width"`
}

func bindContent(c *gin.Context) (contentRequest, bool) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errValidation, err))
		return req, false
	}
	if err := req.Content.Validate(); err != nil {
		fail(c, fmt.Errorf("%w: %v", errValidation, err))
		return req, false
	}
	return req, true
}

func (s *Server) handleMetrics(c *gin.Context) {
	req, good := bindContent(c)
	if !good {
		return
	}
	wpp := req.WordsPerPage
	if wpp <= 0 {
		wpp = s.cfg.Session.WordsPerPage
	}
	ok(c, http.StatusOK, screenplay.Recompute(req.Content, wpp))
}

func (s *Server) handleImport(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errValidation, err))
		return
	}
	ok(c, http.StatusOK, gin.H{"content": screenplay.ImportText(req.Text)})
}

func (s *Server) handleExportPDF(c *gin.Context) {
	req, good := bindContent(c)
	if !good {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = storage.DefaultTitle
	}
	data, err := export.RenderPDF(title, req.Content, export.PDFOptions{Layout: s.cfg.Layout})
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, storage.PDFFileName(title)))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) handleExportText(c *gin.Context) {
	req, good := bindContent(c)
	if !good {
		return
	}
	c.String(http.StatusOK, export.PlainText(req.Content, req.Width))
}

func (s *Server) requireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store == nil {
			fail(c, fmt.Errorf("%w: script storage is disabled", ErrNotFound))
			return
		}
		c.Next()
	}
}

func (s *Server) handleListScripts(c *gin.Context) {
	list, err := s.store.Search(c.Request.Context(), subject(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// readScriptBody decodes a .script payload, validating it against the
// save-file schema.
func readScriptBody(c *gin.Context) (storage.ScriptFile, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", errValidation, err))
		return storage.ScriptFile{}, false
	}
	sf, err := storage.Decode(body)
	if err != nil {
		fail(c, err)
		return storage.ScriptFile{}, false
	}
	return sf, true
}

func (s *Server) handleCreateScript(c *gin.Context) {
	sf, good := readScriptBody(c)
	if !good {
		return
	}
	st, err := s.store.Create(c.Request.Context(), subject(c), sf)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, st)
}

func scriptID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, fmt.Errorf("%w: invalid script id", errValidation))
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetScript(c *gin.Context) {
	id, good := scriptID(c)
	if !good {
		return
	}
	st, err := s.store.Get(c.Request.Context(), subject(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

// handleUpdateScript replaces a script. An If-Match header carrying the
// version the client last saw enables the stale-write check.
func (s *Server) handleUpdateScript(c *gin.Context) {
	id, good := scriptID(c)
	if !good {
		return
	}
	var base int64
	if m := strings.Trim(c.GetHeader("If-Match"), `" `); m != "" {
		v, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			fail(c, fmt.Errorf("%w: invalid If-Match", errValidation))
			return
		}
		base = v
	}
	sf, good := readScriptBody(c)
	if !good {
		return
	}
	st, err := s.store.Update(c.Request.Context(), subject(c), id, sf, base)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}
