/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"screenwriter/internal/export"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	var after string
	cmd := &cobra.Command{
		Use:   "classify [--after TYPE] TEXT...",
		Short: "Print the element type a line of text would get",
		Long: `Classify runs the auto-format rules on one line of text. The arguments are
joined with single spaces. --after names the type of the preceding element,
which decides between dialogue and action for ordinary text.

Examples:
  screenwriter classify INT. HOUSE - DAY
  screenwriter classify --after character "Where were you?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := parseTypeFlag(after)
			if err != nil {
				return err
			}
			text := screenplay.Normalize(strings.Join(args, " "))
			fmt.Fprintln(cmd.OutOrStdout(), screenplay.Classify(text, prev))
			return nil
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "type of the preceding element")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var (
		out   string
		title string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE.txt",
		Short: "Convert a plain-text draft into a .script file",
		Long: `Import reads a plain-text draft, one element per non-blank line, and
classifies every line using the previous line as context.

Without -o the script is written next to the draft, named after the title.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read draft: %w", err)
			}
			if title == "" {
				title = defaultTitle()
			}
			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), storage.FileName(title))
			}
			if err := refuseOverwrite(out, force); err != nil {
				return err
			}
			doc := screenplay.ImportText(string(data))
			if err := saveScript(cmd.Context(), out, storage.ScriptFile{Title: title, Content: doc}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d elements into %s\n", doc.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "script file to write")
	cmd.Flags().StringVar(&title, "title", "", "script title")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing script")
	return cmd
}

// NewNewCommand creates the new command.
func NewNewCommand() *cobra.Command {
	var (
		seed  bool
		title string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "new [--seed] [--title T] FILE.script",
		Short: "Create a script file",
		Long:  `New writes an empty script, or the sample coffee shop scene with --seed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if err := refuseOverwrite(path, force); err != nil {
				return err
			}
			if title == "" {
				title = defaultTitle()
			}
			var doc screenplay.Document
			if seed {
				doc = screenplay.SeedDocument()
			}
			if err := saveScript(cmd.Context(), path, storage.ScriptFile{Title: title, Content: doc}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "start from the sample scene")
	cmd.Flags().StringVar(&title, "title", "", "script title")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing script")
	return cmd
}

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE.script",
		Short: "Print line, word and page counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := readScript(args[0])
			if err != nil {
				return err
			}
			printMetrics(cmd, sf)
			return nil
		},
	}
}

// NewOpenCommand creates the open command.
func NewOpenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open FILE",
		Short: "Summarise a .script file or preview a .pdf",
		Long: `Open reads a .script file and prints its title, metrics and element
types, or inspects a PDF and prints its page count. PDFs are never imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := storage.Open(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch o.Kind {
			case storage.KindPDF:
				info, err := export.InspectPDF(o.PDF)
				if err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(o.Path), err)
				}
				fmt.Fprintf(w, "PDF %s: %d pages (%d bytes)\n", info.Version, info.Pages, info.Size)
			case storage.KindScript:
				if o.Recovered {
					fmt.Fprintf(os.Stderr, "Warning: %s was damaged; loaded the newest backup\n", filepath.Base(o.Path))
				}
				printMetrics(cmd, o.Script)
				counts := map[screenplay.ElementType]int{}
				for _, e := range o.Script.Content.Elements() {
					counts[e.Type]++
				}
				for _, t := range screenplay.Types() {
					if counts[t] > 0 {
						fmt.Fprintf(w, "  %-14s %d\n", t, counts[t])
					}
				}
			}
			return nil
		},
	}
}

func printMetrics(cmd *cobra.Command, sf storage.ScriptFile) {
	m := screenplay.Recompute(sf.Content, cfg.General.WordsPerPage)
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Title: %s\n", sf.Title)
	fmt.Fprintf(w, "Lines: %d\nWords: %d\nPages: %d\n", m.Lines, m.Words, m.Pages)
}

var errExists = errors.New("file exists (use --force to overwrite)")

func refuseOverwrite(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, errExists)
	}
	return nil
}
