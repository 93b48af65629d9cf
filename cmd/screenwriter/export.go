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
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"screenwriter/internal/export"
	"screenwriter/internal/storage"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var (
		out     string
		pngDir  string
		dpi     int
		text    bool
		width   int
		preset  string
		formats []string
	)
	cmd := &cobra.Command{
		Use:   "export FILE.script",
		Short: "Export a script to PDF, PNG pages or plain text",
		Long: `Export lays the script out on screenplay pages and writes a PDF.

Without -o the PDF goes next to the script, named after its title.
--png-dir additionally renders every page as PNG. --text prints a
fixed-width plain-text rendering to stdout instead of writing a PDF.
--preset or --format write several formats at once into one folder.

Examples:
  screenwriter export pilot.script
  screenwriter export pilot.script -o pilot-draft.pdf --png-dir pages
  screenwriter export pilot.script --text | less
  screenwriter export pilot.script --preset preview -o out/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sf, err := readScript(args[0])
			if err != nil {
				return err
			}
			lo, err := layoutOptions()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if text {
				fmt.Fprint(w, export.PlainText(sf.Content, width))
				return nil
			}
			pdfOpt := export.PDFOptions{Layout: lo}
			pngOpt := export.PNGOptions{Layout: lo, DPI: dpi}

			if preset != "" || len(formats) > 0 {
				paths, err := export.BatchExport(sf.Title, sf.Content, export.BatchOptions{
					Preset:    export.PresetName(strings.ToLower(preset)),
					Formats:   formats,
					OutDir:    out,
					PDF:       pdfOpt,
					PNG:       pngOpt,
					TextWidth: width,
				})
				for _, p := range paths {
					fmt.Fprintln(w, p)
				}
				return err
			}

			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), storage.PDFFileName(sf.Title))
			}
			if err := export.ExportPDF(out, sf.Title, sf.Content, pdfOpt); err != nil {
				return err
			}
			fmt.Fprintln(w, out)
			if pngDir != "" {
				paths, err := export.ExportPNGPages(pngDir, storage.FileName(sf.Title), sf.Content, pngOpt)
				for _, p := range paths {
					fmt.Fprintln(w, p)
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "PDF file, or output folder with --preset/--format")
	cmd.Flags().StringVar(&pngDir, "png-dir", "", "also render every page as PNG into this folder")
	cmd.Flags().IntVar(&dpi, "dpi", 96, "PNG resolution")
	cmd.Flags().BoolVar(&text, "text", false, "print plain text to stdout")
	cmd.Flags().IntVar(&width, "width", 0, "plain-text line width (0 selects the default)")
	cmd.Flags().StringVar(&preset, "preset", "", "batch preset: print, preview or draft")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "batch formats: pdf, png, txt")
	return cmd
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	var (
		page int
		dpi  int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "preview FILE.script",
		Short: "Render one page of the export as PNG",
		Long: `Preview renders a single laid-out page. Rendered pages are cached in the
search index until the script is saved again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			sf, err := readScript(path)
			if err != nil {
				return err
			}
			lo, err := layoutOptions()
			if err != nil {
				return err
			}
			render := func() ([]byte, error) {
				return export.PreviewPage(sf.Content, page, export.PNGOptions{Layout: lo, DPI: dpi})
			}
			ctx := cmd.Context()
			var png []byte
			idx, err := openIndex(ctx)
			if err == nil {
				defer func() { _ = idx.Close() }()
				id, uerr := idx.Upsert(ctx, path, sf)
				if uerr != nil {
					return uerr
				}
				png, err = idx.PreviewOrRender(ctx, id, page, dpi, render)
			} else {
				png, err = render()
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s-page-%d.png", strings.TrimSuffix(storage.FileName(sf.Title), storage.ScriptExt), page)
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&dpi, "dpi", 96, "resolution")
	cmd.Flags().StringVarP(&out, "output", "o", "", "PNG file to write")
	return cmd
}
