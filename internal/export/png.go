/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"screenwriter/internal/layout"
	"screenwriter/internal/screenplay"
)

// DefaultPreviewDPI is used when PNGOptions.DPI is not set.
const DefaultPreviewDPI = 96

// PNGOptions controls page previews.
// - DPI sets the pixel size of the page (1pt = 1/72").
// - IncludeGuides draws the margin box as a hairline.
// Glyphs come from the fixed 7x13 basic face and do not scale with DPI.
type PNGOptions struct {
	Layout        layout.Options
	DPI           int
	IncludeGuides bool
}

// RenderPreviewPNG rasterises one laid out page and writes it to w as PNG.
func RenderPreviewPNG(w io.Writer, page layout.Page, opt PNGOptions) error {
	lo := opt.Layout.WithDefaults()
	dpi := opt.DPI
	if dpi <= 0 {
		dpi = DefaultPreviewDPI
	}
	pw, ph := lo.Paper.Size()
	scale := float64(dpi) / 72.0
	pixW := int(math.Round(pw * scale))
	pixH := int(math.Round(ph * scale))

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	if opt.IncludeGuides {
		m := int(math.Round(lo.Margin * scale))
		strokeRect(img, m, m, pixW-m-1, pixH-m-1, color.RGBA{R: 200, G: 200, B: 255, A: 255})
	}

	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: basicfont.Face7x13}
	for _, ln := range page.Lines {
		x := int(math.Round(ln.X * scale))
		y := int(math.Round(ln.Y * scale))
		d.Dot = fixed.P(x, y)
		d.DrawString(ln.Text)
		if ln.Bold {
			// Overstrike one pixel to the right.
			d.Dot = fixed.P(x+1, y)
			d.DrawString(ln.Text)
		}
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// PreviewPage paginates doc and renders page number n (1-based).
func PreviewPage(doc screenplay.Document, n int, opt PNGOptions) ([]byte, error) {
	pages := layout.Paginate(doc.Elements(), opt.Layout)
	if n < 1 || n > len(pages) {
		return nil, fmt.Errorf("page %d out of range (1..%d)", n, len(pages))
	}
	var buf bytes.Buffer
	if err := RenderPreviewPNG(&buf, pages[n-1], opt); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportPNGPages writes one PNG per page into outDir as <base>-page-<n>.png
// and returns the written paths in page order.
func ExportPNGPages(outDir, base string, doc screenplay.Document, opt PNGOptions) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var out []string
	for _, pg := range layout.Paginate(doc.Elements(), opt.Layout) {
		name := filepath.Join(outDir, fmt.Sprintf("%s-page-%d.png", base, pg.Number))
		f, err := os.Create(name)
		if err != nil {
			return out, fmt.Errorf("create png: %w", err)
		}
		if err := RenderPreviewPNG(f, pg, opt); err != nil {
			_ = f.Close()
			return out, err
		}
		if err := f.Close(); err != nil {
			return out, fmt.Errorf("close png: %w", err)
		}
		out = append(out, name)
	}
	return out, nil
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}
