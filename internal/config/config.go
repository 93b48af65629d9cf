/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "screenwriter/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. A .env file and process environment variables override it
// at runtime and are never written back.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Export        ExportConfig  `yaml:"export"`
	Server        ServerConfig  `yaml:"server"`
	Remote        RemoteConfig  `yaml:"remote"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	Theme        string `yaml:"theme"` // "system" | "light" | "dark"
	AutoFormat   bool   `yaml:"auto_format"`
	WordsPerPage int    `yaml:"words_per_page"`
	DefaultTitle string `yaml:"default_title"`
}

type EditorConfig struct {
	SplitPolicy  string `yaml:"split_policy"`  // "transition" | "reclassify"
	CommitSignal string `yaml:"commit_signal"` // "leave" | "enter"
}

type ExportConfig struct {
	Paper      string  `yaml:"paper"` // "letter" | "a4"
	FontSize   float64 `yaml:"font_size"`
	LineHeight float64 `yaml:"line_height"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"` // empty selects SQLite under DataDir
	DataDir     string `yaml:"data_dir"`
	AuthSecret  string `yaml:"auth_secret"`

	// LoginKey is the shared key clients present to obtain a token.
	LoginKey       string   `yaml:"login_key"`
	DevMode        bool     `yaml:"dev_mode"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RemoteConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// The bearer token is not stored on disk; it lives in the OS keyring.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system", AutoFormat: true, WordsPerPage: 250, DefaultTitle: "Untitled Script"},
		Editor:        EditorConfig{SplitPolicy: "transition", CommitSignal: "leave"},
		Export:        ExportConfig{Paper: "letter", FontSize: 12, LineHeight: 16},
		Server:        ServerConfig{Addr: ":8080"},
		Remote:        RemoteConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir     = "SW_CONFIG_DIR"
	EnvTheme         = "SW_THEME"
	EnvAutoFormat    = "SW_AUTO_FORMAT"
	EnvWordsPerPage  = "SW_WORDS_PER_PAGE"
	EnvSplitPolicy   = "SW_SPLIT_POLICY"
	EnvCommitSignal  = "SW_COMMIT_SIGNAL"
	EnvPaper         = "SW_PAPER"
	EnvServerAddr    = "SW_SERVER_ADDR"
	EnvDatabaseURL   = "SW_DATABASE_URL"
	EnvDataDir       = "SW_DATA_DIR"
	EnvAuthSecret    = "SW_AUTH_SECRET"
	EnvLoginKey      = "SW_LOGIN_KEY"
	EnvDevMode       = "SW_DEV_MODE"
	EnvOrigins       = "SW_ALLOWED_ORIGINS"
	EnvRemoteURL     = "SW_REMOTE_URL"
	EnvRemoteTimeout = "SW_REMOTE_TIMEOUT_MS"
	EnvLogLevel      = "SW_LOG_LEVEL"
	EnvLogFormat     = "SW_LOG_FORMAT"
	EnvLogSource     = "SW_LOG_SOURCE"
	EnvLogFile       = "SW_LOG_FILE"
)

var envKeys = map[string]string{
	"general.theme":          EnvTheme,
	"general.auto_format":    EnvAutoFormat,
	"general.words_per_page": EnvWordsPerPage,
	"editor.split_policy":    EnvSplitPolicy,
	"editor.commit_signal":   EnvCommitSignal,
	"export.paper":           EnvPaper,
	"server.addr":            EnvServerAddr,
	"server.database_url":    EnvDatabaseURL,
	"server.data_dir":        EnvDataDir,
	"server.auth_secret":     EnvAuthSecret,
	"server.login_key":       EnvLoginKey,
	"server.dev_mode":        EnvDevMode,
	"server.allowed_origins": EnvOrigins,
	"remote.base_url":        EnvRemoteURL,
	"remote.timeout_ms":      EnvRemoteTimeout,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
}

// Service/keys for OS keyring.
const (
	keyringService = "Screenwriter"
	keyringToken   = "remote_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore with the OS keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the token backend and returns a func restoring the
// previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// Token returns the stored remote bearer token. A missing entry is not an error.
func Token() (string, error) {
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// SaveToken stores tok in the keyring. An empty token deletes the entry.
func SaveToken(tok string) error {
	if tok == "" {
		err := tokenStore.Delete(keyringService, keyringToken)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return tokenStore.Set(keyringService, keyringToken, tok)
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Screenwriter")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Screenwriter")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "screenwriter")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "screenwriter")
		}
	}
	if base == "" || base == "screenwriter" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir is where the search index and server database live unless
// server.data_dir says otherwise.
func (c AppConfig) DataDir() (string, error) {
	if c.Server.DataDir != "" {
		return c.Server.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load reads the user config file (if present), applies defaults, loads a
// .env file from the working directory and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path, ".env")
}

// LoadFrom is Load with explicit file locations. Missing files are skipped.
// A malformed config file is reported but defaults and env still apply.
func LoadFrom(path, envFile string) (AppConfig, error) {
	cfg := Defaults()
	var parseErr error
	if data, err := os.ReadFile(path); err == nil {
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			parseErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			// godotenv.Load keeps variables that are already set, so the
			// process environment wins over the file.
			if err := godotenv.Load(envFile); err != nil && parseErr == nil {
				parseErr = fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil && parseErr == nil {
		parseErr = err
	}
	return cfg, parseErr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks enumerated values and numeric ranges.
func (c AppConfig) Validate() error {
	var errs []error
	if !oneOf(c.General.Theme, "system", "light", "dark") {
		errs = append(errs, fmt.Errorf("general.theme: unknown value %q", c.General.Theme))
	}
	if c.General.WordsPerPage <= 0 {
		errs = append(errs, fmt.Errorf("general.words_per_page: must be positive, got %d", c.General.WordsPerPage))
	}
	if !oneOf(c.Editor.SplitPolicy, "transition", "reclassify") {
		errs = append(errs, fmt.Errorf("editor.split_policy: unknown value %q", c.Editor.SplitPolicy))
	}
	if !oneOf(c.Editor.CommitSignal, "leave", "enter") {
		errs = append(errs, fmt.Errorf("editor.commit_signal: unknown value %q", c.Editor.CommitSignal))
	}
	if !oneOf(c.Export.Paper, "letter", "a4") {
		errs = append(errs, fmt.Errorf("export.paper: unknown value %q", c.Export.Paper))
	}
	if c.Export.FontSize <= 0 || c.Export.LineHeight <= 0 {
		errs = append(errs, errors.New("export: font_size and line_height must be positive"))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// LogOptions converts the logging section for log.Init.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{Level: c.Logging.Level, Format: c.Logging.Format, AddSource: c.Logging.Source, File: c.Logging.File}
}

// Timeout returns the remote request timeout.
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return time.Duration(Defaults().Remote.TimeoutMs) * time.Millisecond
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setString(&dst.General.Theme, src.General.Theme)
	dst.General.AutoFormat = src.General.AutoFormat
	if src.General.WordsPerPage > 0 {
		dst.General.WordsPerPage = src.General.WordsPerPage
	}
	if t := strings.TrimSpace(src.General.DefaultTitle); t != "" {
		dst.General.DefaultTitle = t
	}
	setString(&dst.Editor.SplitPolicy, src.Editor.SplitPolicy)
	setString(&dst.Editor.CommitSignal, src.Editor.CommitSignal)
	setString(&dst.Export.Paper, src.Export.Paper)
	if src.Export.FontSize > 0 {
		dst.Export.FontSize = src.Export.FontSize
	}
	if src.Export.LineHeight > 0 {
		dst.Export.LineHeight = src.Export.LineHeight
	}
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	dst.Server.DatabaseURL = strings.TrimSpace(src.Server.DatabaseURL)
	dst.Server.DataDir = strings.TrimSpace(src.Server.DataDir)
	dst.Server.AuthSecret = src.Server.AuthSecret
	dst.Server.LoginKey = src.Server.LoginKey
	dst.Server.DevMode = src.Server.DevMode
	dst.Server.AllowedOrigins = src.Server.AllowedOrigins
	if v := strings.TrimSpace(src.Remote.BaseURL); v != "" {
		dst.Remote.BaseURL = v
	}
	if src.Remote.TimeoutMs != 0 {
		dst.Remote.TimeoutMs = src.Remote.TimeoutMs
	}
	setString(&dst.Logging.Level, src.Logging.Level)
	setString(&dst.Logging.Format, src.Logging.Format)
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

// setString copies a lower-cased, trimmed enum value when it is set.
func setString(dst *string, v string) {
	if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	setString(&cfg.General.Theme, env(EnvTheme))
	if v := env(EnvAutoFormat); v != "" {
		cfg.General.AutoFormat = truthy(v)
	}
	if n, err := strconv.Atoi(env(EnvWordsPerPage)); err == nil {
		cfg.General.WordsPerPage = n
	}
	setString(&cfg.Editor.SplitPolicy, env(EnvSplitPolicy))
	setString(&cfg.Editor.CommitSignal, env(EnvCommitSignal))
	setString(&cfg.Export.Paper, env(EnvPaper))
	if v := env(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := env(EnvDatabaseURL); v != "" {
		cfg.Server.DatabaseURL = v
	}
	if v := env(EnvDataDir); v != "" {
		cfg.Server.DataDir = v
	}
	if v := env(EnvAuthSecret); v != "" {
		cfg.Server.AuthSecret = v
	}
	if v := env(EnvLoginKey); v != "" {
		cfg.Server.LoginKey = v
	}
	if v := env(EnvDevMode); v != "" {
		cfg.Server.DevMode = truthy(v)
	}
	if v := env(EnvOrigins); v != "" {
		cfg.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, o)
			}
		}
	}
	if v := env(EnvRemoteURL); v != "" {
		cfg.Remote.BaseURL = v
	}
	if n, err := strconv.Atoi(env(EnvRemoteTimeout)); err == nil {
		cfg.Remote.TimeoutMs = n
	}
	setString(&cfg.Logging.Level, env(EnvLogLevel))
	setString(&cfg.Logging.Format, env(EnvLogFormat))
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
