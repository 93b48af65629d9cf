/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a screenplay as an industry formatted PDF, as PNG
// page previews and as fixed-width text.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	applog "screenwriter/internal/log"
	"screenwriter/internal/layout"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/version"
)

// PDFOptions controls PDF export. Units are points.
// Courier is a core PDF font, so text stays vector without embedding.
type PDFOptions struct {
	Layout layout.Options
	Author string
}

// WritePDF writes pages to w as one PDF document titled title.
func WritePDF(w io.Writer, title string, pages []layout.Page, opt PDFOptions) error {
	lo := opt.Layout.WithDefaults()
	pw, ph := lo.Paper.Size()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetMargins(lo.Margin, lo.Margin, lo.Margin)
	pdf.SetAutoPageBreak(false, lo.Margin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("screenwriter "+version.String(), true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	// Core fonts are cp1252; translate so accented text survives.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(pages) == 0 {
		pages = []layout.Page{{Number: 1}}
	}
	for _, pg := range pages {
		pdf.AddPage()
		for _, ln := range pg.Lines {
			style := ""
			if ln.Bold {
				style = "B"
			}
			pdf.SetFont("Courier", style, lo.FontSize)
			pdf.Text(ln.X, ln.Y, tr(ln.Text))
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// RenderPDF paginates doc and returns the PDF bytes.
func RenderPDF(title string, doc screenplay.Document, opt PDFOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, title, layout.Paginate(doc.Elements(), opt.Layout), opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportPDF paginates doc and writes the PDF to outPath, creating parent
// directories as needed.
func ExportPDF(outPath, title string, doc screenplay.Document, opt PDFOptions) (err error) {
	if outPath == "" {
		return errors.New("output path is required")
	}
	l := applog.WithOperation(applog.WithComponent("export"), "pdf").With(slog.String("path", outPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close pdf: %w", cerr)
		}
	}()
	pages := layout.Paginate(doc.Elements(), opt.Layout)
	if err := WritePDF(f, title, pages, opt); err != nil {
		l.Error("pdf export failed", slog.Any("err", err))
		return err
	}
	l.Info("pdf exported", slog.Int("pages", len(pages)))
	return nil
}
