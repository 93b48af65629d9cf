/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screenwriter/internal/config"
	"screenwriter/internal/server"
	"screenwriter/internal/storage"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var (
		addr    string
		noStore bool
		dev     bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Long: `Serve exposes classification, metrics, PDF export, live editing sessions
over websocket and, unless --no-store is given, a script store.

The store is SQLite under the data directory, or Postgres when
server.database_url (SW_DATABASE_URL) is set.

Tokens are only issued to clients presenting server.login_key
(SW_LOGIN_KEY). A real server.auth_secret is required unless --dev is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			so, err := sessionOptions()
			if err != nil {
				return err
			}
			lo, err := layoutOptions()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			var store server.ScriptStore
			if !noStore {
				dir, err := cfg.DataDir()
				if err != nil {
					return err
				}
				st, err := server.OpenStore(ctx, cfg.Server.DatabaseURL, dir)
				if err != nil {
					return err
				}
				defer func() { _ = st.Close() }()
				store = st
			}
			srv := server.New(server.Config{
				Addr:           addr,
				AuthSecret:     cfg.Server.AuthSecret,
				LoginKey:       cfg.Server.LoginKey,
				DevMode:        dev || cfg.Server.DevMode,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Session:        so,
				Layout:         lo,
			}, store)
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "bind address (default from config)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "serve without the script store")
	cmd.Flags().BoolVar(&dev, "dev", false, "allow the built-in secret and tokens without a login key")
	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		ttl time.Duration
		key string
	)
	cmd := &cobra.Command{
		Use:   "login SUBJECT",
		Short: "Obtain a token from the server and keep it in the OS keyring",
		Long: `Login presents the server's login key and stores the returned token in
the OS keyring. Without --key the key comes from server.login_key
(SW_LOGIN_KEY).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = cfg.Server.LoginKey
			}
			c := remoteClient()
			tok, err := c.Login(cmd.Context(), args[0], key, ttl)
			if err != nil {
				return err
			}
			if err := config.SaveToken(tok); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s\n", c.BaseURL, args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (at most 24h)")
	cmd.Flags().StringVar(&key, "key", "", "server login key")
	return cmd
}

// NewPushCommand creates the push command.
func NewPushCommand() *cobra.Command {
	var id, base int64
	cmd := &cobra.Command{
		Use:   "push FILE.script",
		Short: "Upload a script to the server",
		Long: `Push uploads a script. Without --id a new remote script is created.
With --id the remote copy is replaced; --base-version makes the server
refuse the write when someone else pushed in the meantime.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := readScript(args[0])
			if err != nil {
				return err
			}
			p, err := remoteClient().Push(cmd.Context(), id, base, sf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %q as id %d version %d\n", p.File.Title, p.ID, p.Version)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "remote script id to replace")
	cmd.Flags().Int64Var(&base, "base-version", 0, "expected remote version")
	return cmd
}

// NewPullCommand creates the pull command.
func NewPullCommand() *cobra.Command {
	var (
		out   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "pull ID",
		Short: "Download a script from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid script id %q", args[0])
			}
			p, err := remoteClient().Pull(cmd.Context(), id)
			if err != nil {
				return err
			}
			if out == "" {
				out = storage.FileName(p.File.Title)
			}
			if err := refuseOverwrite(out, force); err != nil {
				return err
			}
			if err := saveScript(cmd.Context(), out, p.File); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled id %d version %d into %s\n", p.ID, p.Version, filepath.Clean(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "script file to write")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing script")
	return cmd
}
