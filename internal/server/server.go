/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes the screenplay engine over HTTP: stateless
// classification, metrics and PDF export, per-owner script storage on
// SQLite or Postgres, and live editing sessions over a websocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"screenwriter/internal/editor"
	"screenwriter/internal/layout"
	applog "screenwriter/internal/log"
)

// DevSecret signs tokens in dev mode when no secret is configured.
const DevSecret = "dev-secret-change-me"

// ErrInsecureSecret is returned by Run when no real auth secret is set
// outside dev mode.
var ErrInsecureSecret = errors.New("server: auth secret not set (configure server.auth_secret or enable dev mode)")

// Config holds server configuration.
type Config struct {
	Addr       string // http bind address, e.g. ":8080"
	AuthSecret string
	// LoginKey must accompany token requests. Empty disables token
	// minting unless DevMode is set.
	LoginKey string
	// DevMode allows DevSecret and tokens without a login key.
	DevMode bool
	// AllowedOrigins lists browser origins, besides the server's own host,
	// that may open editing sessions.
	AllowedOrigins []string
	// Session is the template for websocket editing sessions. Confirm and
	// Logger are set per connection.
	Session editor.Options
	Layout  layout.Options
}

// Server wires the gin engine to a ScriptStore.
type Server struct {
	cfg    Config
	store  ScriptStore
	engine *gin.Engine
	log    *slog.Logger
}

// New builds the router. store may be nil, in which case only the
// stateless endpoints and websocket sessions are served.
func New(cfg Config, store ScriptStore) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	l := applog.WithComponent("server")
	if cfg.AuthSecret == "" && cfg.DevMode {
		cfg.AuthSecret = DevSecret
		l.Warn("dev mode: using insecure dev secret")
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{cfg: cfg, store: store, engine: gin.New(), log: l}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/readyz", s.handleReady)
	r.GET("/version", s.handleVersion)

	api := r.Group("/api")
	api.POST("/auth/token", s.handleToken)
	api.POST("/classify", s.handleClassify)
	api.POST("/metrics", s.handleMetrics)
	api.POST("/import", s.handleImport)
	api.POST("/export/pdf", s.handleExportPDF)
	api.POST("/export/text", s.handleExportText)

	scripts := api.Group("/scripts", s.requireAuth(), s.requireStore())
	scripts.GET("", s.handleListScripts)
	scripts.POST("", s.handleCreateScript)
	scripts.GET("/:id", s.handleGetScript)
	scripts.PUT("/:id", s.handleUpdateScript)

	r.GET("/ws/session", s.handleSession)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("took", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			s.log.Error("request failed", append(attrs, slog.String("err", c.Errors.String()))...)
			return
		}
		s.log.Debug("request", attrs...)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.cfg.checkSecret(); err != nil {
		return err
	}
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(sctx)
}

// checkSecret rejects an empty secret, and the dev secret outside dev mode.
func (c Config) checkSecret() error {
	if c.AuthSecret == "" || (c.AuthSecret == DevSecret && !c.DevMode) {
		return ErrInsecureSecret
	}
	return nil
}
