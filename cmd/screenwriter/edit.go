/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"screenwriter/internal/storage"
	"screenwriter/internal/tui"
	"screenwriter/internal/ui"
	"screenwriter/internal/version"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [FILE.script]",
		Short: "Edit a script in the terminal",
		Long: `Tui opens the terminal editor. Without a file it starts from the sample
scene and saves into the current directory, named after the title.

Keys: Enter new element, Alt+1..6 or Ctrl+1..6 set the element type,
Ctrl+S save, Ctrl+N new, Ctrl+O open, Ctrl+E export PDF, Ctrl+T title,
Ctrl+Y copy element, Ctrl+Q quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			title, doc, err := loadForEditing(path)
			if err != nil {
				return err
			}
			so, err := sessionOptions()
			if err != nil {
				return err
			}
			so.Title = title
			lo, err := layoutOptions()
			if err != nil {
				return err
			}
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			if path != "" {
				dir = filepath.Dir(path)
			}
			m := tui.New(doc, tui.Options{
				Session: so,
				Path:    path,
				Dir:     dir,
				Layout:  lo,
				OnSaved: onSaved(cmd.Context()),
			})
			target.Dir = dir
			target.Source = m.Session()
			return m.Run()
		},
	}
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [FILE.script]",
		Short: "Open the desktop editor",
		Long:  `Ui opens the desktop editor. It is only available in builds made with -tags fyne.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			so, err := sessionOptions()
			if err != nil {
				return err
			}
			lo, err := layoutOptions()
			if err != nil {
				return err
			}
			return ui.Run(path, ui.Options{Session: so, Layout: lo, OnSaved: onSaved(cmd.Context())})
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Screenwriter %s\n", version.String())
		},
	}
}

func onSaved(ctx context.Context) func(string, storage.ScriptFile) {
	return func(path string, sf storage.ScriptFile) { recordSave(ctx, path, sf) }
}
