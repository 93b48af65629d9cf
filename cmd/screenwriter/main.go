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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"screenwriter/internal/config"
	"screenwriter/internal/crash"
	applog "screenwriter/internal/log"
	"screenwriter/internal/version"
)

var (
	// cfg is loaded once per invocation before any command runs.
	cfg = config.Defaults()
	// target is filled by the editing commands so a panic can autosave the
	// live script.
	target = &crash.Target{}
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "screenwriter",
		Short:         "Screenplay editor with automatic element formatting",
		Long:          `Screenwriter edits screenplays as a flat list of typed elements (scene heading, action, character, dialogue, parenthetical, transition) and formats them as you type.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			cfg = c
			applog.Init(cfg.LogOptions())
			l := applog.WithComponent("cli")
			if err != nil {
				// Defaults and env overrides still apply.
				l.Warn("config not fully loaded", slog.Any("err", err))
			}
			l.Debug("start", slog.String("cmd", cmd.CommandPath()), slog.Int("args", len(args)))
			return nil
		},
	}
	root.AddCommand(
		NewClassifyCommand(),
		NewImportCommand(),
		NewNewCommand(),
		NewStatsCommand(),
		NewOpenCommand(),
		NewExportCommand(),
		NewPreviewCommand(),
		NewHistoryCommand(),
		NewSearchCommand(),
		NewServeCommand(),
		NewLoginCommand(),
		NewPushCommand(),
		NewPullCommand(),
		NewTUICommand(),
		NewUICommand(),
		NewVersionCommand(),
	)
	return root
}

func main() {
	defer func() { crash.Recover(target) }()
	if err := NewRootCommand().Execute(); err != nil {
		applog.WithComponent("cli").Error("command failed", slog.Any("err", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
