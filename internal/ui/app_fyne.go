//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"screenwriter/internal/crash"
	"screenwriter/internal/editor"
	"screenwriter/internal/export"
	applog "screenwriter/internal/log"
	"screenwriter/internal/screenplay"
	"screenwriter/internal/storage"
)

// desktopApp is the state of one editor window.
type desktopApp struct {
	opts      Options
	w         fyne.Window
	prefs     fyne.Preferences
	surf      *Surface
	sess      *editor.Session
	status    *widget.Label
	path      string
	confirmed bool
	target    *crash.Target
	log       *slog.Logger
}

// Run starts the desktop editor. path optionally names a .script to open.
func Run(path string, opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	fyneApp := app.NewWithID("screenwriter")
	w := fyneApp.NewWindow("Screenwriter")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1000)
	winH := prefs.IntWithFallback("window.height", 800)
	w.Resize(fyne.NewSize(float32(max(winW, 640)), float32(max(winH, 480))))

	a := &desktopApp{opts: opts, w: w, prefs: prefs, status: widget.NewLabel(""), log: l}
	a.surf = NewSurface(w.Canvas())
	so := opts.Session
	so.Confirm = func(string) bool { return a.confirmed }
	so.Logger = l
	a.sess = editor.NewSession(a.surf, so)
	a.target = &crash.Target{Source: a.sess}
	defer func() { crash.Recover(a.target) }()

	a.surf.OnKey = a.handleKey
	a.surf.OnFocus = func(c editor.Caret) {
		a.sess.MoveCaret(c)
		a.refresh()
	}
	a.surf.OnEdit = func() {
		a.sess.TextEdited()
		a.refresh()
	}

	w.SetMainMenu(a.menu())
	for d := 1; d <= 6; d++ {
		d := d
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyName(fmt.Sprint(d)), Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
			a.do(func() error { return a.sess.Shortcut(d) })
		})
	}

	w.SetContent(container.NewBorder(
		container.NewVBox(a.toolbar(), a.typeButtons()),
		a.status, nil, nil,
		a.surf.Object(),
	))
	w.SetCloseIntercept(func() {
		size := w.Canvas().Size()
		prefs.SetInt("window.width", int(size.Width))
		prefs.SetInt("window.height", int(size.Height))
		if !a.sess.Dirty() {
			w.Close()
			return
		}
		dialog.ShowConfirm("Quit", "You have unsaved changes. Quit anyway?", func(ok bool) {
			if ok {
				w.Close()
			}
		}, w)
	})

	if strings.TrimSpace(path) != "" {
		a.openPath(path)
	}
	a.refresh()
	w.ShowAndRun()
	return nil
}

func (a *desktopApp) refresh() {
	a.status.SetText(a.sess.Status())
	title := a.sess.Title()
	if a.sess.Dirty() {
		title += " *"
	}
	a.w.SetTitle(title + " - Screenwriter")
	if a.path != "" {
		a.target.Dir = filepath.Dir(a.path)
	}
}

// do runs fn and, when it was declined for unsaved changes, asks and
// retries with the discard confirmed.
func (a *desktopApp) do(fn func() error) {
	err := fn()
	if errors.Is(err, editor.ErrDeclined) {
		dialog.ShowConfirm("Unsaved changes", "You have unsaved changes. Discard them?", func(ok bool) {
			if !ok {
				return
			}
			a.confirmed = true
			defer func() { a.confirmed = false }()
			a.report(fn())
		}, a.w)
		return
	}
	a.report(err)
}

func (a *desktopApp) report(err error) {
	if err != nil {
		a.log.Warn("edit failed", slog.Any("err", err))
		dialog.ShowError(err, a.w)
	}
	a.refresh()
}

func (a *desktopApp) handleKey(k editor.KeyBinding) bool {
	switch {
	case !k.Mod && k.Key == "backspace":
		a.do(a.sess.DeleteBackward)
		return true
	case !k.Mod && (k.Key == "up" || k.Key == "down"):
		c, err := editor.Locate(a.surf)
		if err != nil || c.DocumentLevel {
			return false
		}
		next := c.Element - 1
		if k.Key == "down" {
			next = c.Element + 1
		}
		if next < 0 || next >= a.surf.Len() {
			return true
		}
		a.sess.MoveCaret(editor.Caret{Element: next, Offset: c.Offset})
		a.refresh()
		return true
	}
	var handled bool
	a.do(func() error {
		h, err := a.sess.Action(k, a)
		handled = h
		return err
	})
	return handled
}

func (a *desktopApp) toolbar() *widget.Toolbar {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { a.do(a.sess.New) }),
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() { a.report(a.Open()) }),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { a.report(a.Save()) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DownloadIcon(), func() { a.report(a.Export()) }),
	)
}

func (a *desktopApp) typeButtons() fyne.CanvasObject {
	box := container.NewHBox()
	for i, t := range screenplay.Types() {
		t := t
		box.Add(widget.NewButton(fmt.Sprintf("%s (%d)", t.Label(), i+1), func() {
			a.do(func() error { return a.sess.Retype(t) })
		}))
	}
	return box
}

func (a *desktopApp) menu() *fyne.MainMenu {
	newItem := fyne.NewMenuItem("New", func() { a.do(a.sess.New) })
	openItem := fyne.NewMenuItem("Open…", func() { a.report(a.Open()) })
	saveItem := fyne.NewMenuItem("Save", func() { a.report(a.Save()) })
	saveAsItem := fyne.NewMenuItem("Save As…", func() { a.saveAs() })
	exportItem := fyne.NewMenuItem("Export PDF", func() { a.report(a.Export()) })
	titleItem := fyne.NewMenuItem("Rename…", func() { a.rename() })

	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierControl}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}
	exportItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierControl}

	recent := fyne.NewMenuItem("Open Recent", nil)
	var items []*fyne.MenuItem
	for _, p := range loadRecentScripts(a.prefs) {
		p := p
		items = append(items, fyne.NewMenuItem(filepath.Base(p), func() { a.openPath(p) }))
	}
	recent.ChildMenu = fyne.NewMenu("", items...)
	recent.Disabled = len(items) == 0
	return fyne.NewMainMenu(fyne.NewMenu("File", newItem, openItem, recent, fyne.NewMenuItemSeparator(), saveItem, saveAsItem, exportItem, fyne.NewMenuItemSeparator(), titleItem))
}

// Save writes to the current path or asks for one.
func (a *desktopApp) Save() error {
	if a.path == "" {
		a.saveAs()
		return nil
	}
	return a.writeTo(a.path)
}

func (a *desktopApp) writeTo(path string) error {
	sf := storage.ScriptFile{Title: a.sess.Title(), Content: a.sess.Document()}
	if err := storage.WriteScript(path, sf); err != nil {
		return err
	}
	a.path = path
	a.sess.MarkSaved()
	addRecentScript(a.prefs, path)
	if a.opts.OnSaved != nil {
		a.opts.OnSaved(path, sf)
	}
	a.log.Info("saved", slog.String("path", path))
	return nil
}

func (a *desktopApp) saveAs() {
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		path := uc.URI().Path()
		_ = uc.Close()
		if filepath.Ext(path) != storage.ScriptExt {
			path += storage.ScriptExt
		}
		a.report(a.writeTo(path))
	}, a.w)
	fd.SetFileName(storage.FileName(a.sess.Title()))
	fd.SetFilter(fstorage.NewExtensionFileFilter([]string{storage.ScriptExt}))
	fd.Show()
}

// Open shows a file picker for .script and .pdf files.
func (a *desktopApp) Open() error {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		a.openPath(path)
	}, a.w)
	fd.SetFilter(fstorage.NewExtensionFileFilter([]string{storage.ScriptExt, storage.PDFExt}))
	fd.Show()
	return nil
}

func (a *desktopApp) openPath(path string) {
	opened, err := storage.Open(path)
	if err != nil {
		a.report(err)
		return
	}
	if opened.Kind == storage.KindPDF {
		info, err := export.InspectPDF(opened.PDF)
		if err != nil {
			a.report(err)
			return
		}
		dialog.ShowInformation("PDF preview", fmt.Sprintf("%s\nPDF %s, %d pages.\nPDF files can be previewed but not edited.", filepath.Base(path), info.Version, info.Pages), a.w)
		return
	}
	a.do(func() error {
		if err := a.sess.Load(opened.Script.Title, opened.Script.Content); err != nil {
			return err
		}
		a.path = path
		addRecentScript(a.prefs, path)
		if opened.Recovered {
			dialog.ShowInformation("Recovered", "The script was damaged and has been restored from its latest backup.", a.w)
		}
		return nil
	})
}

// Export writes a PDF next to the script, or in the working directory
// for unsaved scripts.
func (a *desktopApp) Export() error {
	dir := "."
	if a.path != "" {
		dir = filepath.Dir(a.path)
	}
	out := filepath.Join(dir, storage.PDFFileName(a.sess.Title()))
	if err := export.ExportPDF(out, a.sess.Title(), a.sess.Document(), export.PDFOptions{Layout: a.opts.Layout}); err != nil {
		return err
	}
	dialog.ShowInformation("Export", "Exported "+out, a.w)
	return nil
}

func (a *desktopApp) rename() {
	entry := widget.NewEntry()
	entry.SetText(a.sess.Title())
	dialog.ShowForm("Rename Script", "Rename", "Cancel", []*widget.FormItem{widget.NewFormItem("Title", entry)}, func(ok bool) {
		if ok {
			a.sess.SetTitle(entry.Text)
			a.refresh()
		}
	}, a.w)
}
