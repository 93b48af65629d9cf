/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package remote is the HTTP client for a screenwriter server: it pushes
// and pulls .script documents and obtains bearer tokens.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

var (
	// ErrConflict is returned by Push when the server holds a newer version.
	ErrConflict = errors.New("remote script changed since last pull")
	// ErrNotFound is returned for unknown script ids.
	ErrNotFound = errors.New("remote script not found")
	// ErrUnauthorized is returned when the token is missing or rejected.
	ErrUnauthorized = errors.New("not logged in to remote")
)

// Client talks to the server API. The zero value is not usable; use NewClient.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a client. baseURL may include a trailing slash; it will
// be normalized. timeout <= 0 selects 10s.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("remote"),
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, header http.Header, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote %s %s: %w", method, u.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug("request", slog.String("method", method), slog.String("path", u.Path),
		slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("remote %s %s: %s", method, u.Path, resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return statusError(method, u.Path, resp.StatusCode, env.Error)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		return fmt.Errorf("remote %s %s: decode: %w", method, u.Path, err)
	}
	return nil
}

func statusError(method, path string, status int, e *apiError) error {
	msg := http.StatusText(status)
	if e != nil && e.Message != "" {
		msg = e.Message
	}
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case http.StatusBadRequest:
		if e != nil && e.Code == "MALFORMED_SCRIPT" {
			return fmt.Errorf("%w: %s", storage.ErrMalformedScript, msg)
		}
	}
	return fmt.Errorf("remote %s %s: %d %s", method, path, status, msg)
}

// Script is the listing projection of a remote script.
type Script struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
	Version      int64     `json:"version"`
}

// Pulled is a fetched script together with its server version.
type Pulled struct {
	ID      int64
	Version int64
	File    storage.ScriptFile
}

type storedScript struct {
	ID           int64               `json:"id"`
	Title        string              `json:"title"`
	Content      screenplay.Document `json:"content"`
	LastModified time.Time           `json:"lastModified"`
	Version      int64               `json:"version"`
}

func (s storedScript) pulled() Pulled {
	return Pulled{ID: s.ID, Version: s.Version, File: storage.ScriptFile{Title: s.Title, Content: s.Content, LastModified: s.LastModified}}
}

// Login exchanges the server's login key for a bearer token for subject
// and keeps it on the client.
func (c *Client) Login(ctx context.Context, subject, key string, ttl time.Duration) (string, error) {
	body, err := json.Marshal(map[string]any{"subject": subject, "key": key, "ttl_seconds": int64(ttl / time.Second)})
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/token", body, nil, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

// List returns the caller's scripts, filtered by query when it is not blank.
func (c *Client) List(ctx context.Context, query string) ([]Script, error) {
	path := "/api/scripts"
	if q := strings.TrimSpace(query); q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	var list []Script
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Pull fetches script id.
func (c *Client) Pull(ctx context.Context, id int64) (Pulled, error) {
	var st storedScript
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/scripts/%d", id), nil, nil, &st); err != nil {
		return Pulled{}, err
	}
	return st.pulled(), nil
}

// Push uploads sf. id 0 creates a new script; otherwise script id is
// replaced, and a non-zero baseVersion makes the server reject the write
// with ErrConflict when it holds a different version.
func (c *Client) Push(ctx context.Context, id, baseVersion int64, sf storage.ScriptFile) (Pulled, error) {
	body, err := storage.Encode(sf)
	if err != nil {
		return Pulled{}, err
	}
	var st storedScript
	if id == 0 {
		err = c.do(ctx, http.MethodPost, "/api/scripts", body, nil, &st)
	} else {
		h := http.Header{}
		if baseVersion > 0 {
			h.Set("If-Match", strconv.FormatInt(baseVersion, 10))
		}
		err = c.do(ctx, http.MethodPut, fmt.Sprintf("/api/scripts/%d", id), body, h, &st)
	}
	if err != nil {
		return Pulled{}, err
	}
	c.log.Info("pushed", slog.Int64("id", st.ID), slog.Int64("version", st.Version))
	return st.pulled(), nil
}
