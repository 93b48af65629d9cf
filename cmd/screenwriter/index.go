/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"screenwriter/internal/storage"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit   int
		restore int64
	)
	cmd := &cobra.Command{
		Use:   "history FILE.script",
		Short: "List saved snapshots of a script",
		Long: `History lists the snapshots recorded each time the script was saved
through screenwriter, newest first. --restore ID writes that snapshot back
to the file; the current content stays available as a new snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			idx, err := openIndex(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()
			si, err := idx.Script(ctx, path)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%s has no history yet", path)
			}
			if err != nil {
				return err
			}
			n := limit
			if restore != 0 {
				n = snapshotsKept
			}
			snaps, err := idx.ListSnapshots(ctx, si.ID, n)
			if err != nil {
				return err
			}
			if restore != 0 {
				for _, s := range snaps {
					if s.ID != restore {
						continue
					}
					sf, err := readScript(path)
					if err != nil {
						return err
					}
					sf.Content = s.Content
					sf.LastModified = time.Now().UTC()
					if err := saveScript(ctx, path, sf); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot %d into %s\n", restore, path)
					return nil
				}
				return fmt.Errorf("snapshot %d not found for %s", restore, path)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSAVED\tELEMENTS")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", s.ID, s.TS.Local().Format(time.DateTime), s.Content.Len())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of snapshots to list")
	cmd.Flags().Int64Var(&restore, "restore", 0, "snapshot id to write back to the file")
	return cmd
}

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var (
		types     []string
		character string
		limit     int
		raw       bool
	)
	cmd := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search elements of all saved scripts",
		Long: `Search queries the full-text index of every script saved through
screenwriter. --type restricts element types; --character restricts to
dialogue spoken by that character.

Examples:
  screenwriter search laptop
  screenwriter search --type scene-heading coffee
  screenwriter search --character alex`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := storage.SearchQuery{Types: types, Character: character, Limit: limit, Raw: raw}
			if len(args) == 1 {
				q.Text = args[0]
			}
			if q.Text == "" && len(types) == 0 && character == "" {
				return errors.New("give a query, --type or --character")
			}
			q.Types = nil
			for _, t := range types {
				et, err := parseTypeFlag(t)
				if err != nil {
					return err
				}
				q.Types = append(q.Types, string(et))
			}
			ctx := cmd.Context()
			idx, err := openIndex(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()
			res, err := idx.Search(ctx, q)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(res) == 0 {
				fmt.Fprintln(w, "No matches.")
				return nil
			}
			for _, r := range res {
				who := ""
				if r.Cue != "" {
					who = " " + r.Cue + ":"
				}
				fmt.Fprintf(w, "%s #%d [%s]%s %s\n", r.Title, r.Position+1, r.Type, who, r.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "element types to include")
	cmd.Flags().StringVarP(&character, "character", "c", "", "only dialogue of this character")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum results")
	cmd.Flags().BoolVar(&raw, "raw", false, "pass the query to FTS5 unchanged")
	return cmd
}
