/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"screenwriter/internal/editor"
	"screenwriter/internal/screenplay"
)

func TestBufferCaretClamping(t *testing.T) {
	b := NewBuffer(screenplay.NewDocument(screenplay.Element{Type: screenplay.Action, Text: "héllo"}))
	c, err := editor.Locate(b)
	assert.NoError(t, err)
	assert.Equal(t, editor.Caret{Element: 0}, c)

	b.SetCaret(editor.Caret{Element: 0, Offset: 99})
	c, _ = editor.Locate(b)
	assert.Equal(t, 5, c.Offset)

	b.SetCaret(editor.Caret{Element: 7})
	c, _ = editor.Locate(b)
	assert.True(t, c.DocumentLevel)

	empty := NewBuffer(screenplay.Document{})
	c, err = editor.Locate(empty)
	assert.NoError(t, err)
	assert.True(t, c.DocumentLevel)
}

func TestBufferInsertAndSplit(t *testing.T) {
	b := NewBuffer(screenplay.NewDocument(
		screenplay.Element{Type: screenplay.Character, Text: "ALEX"},
		screenplay.Element{Type: screenplay.Action, Text: "end"},
	))
	b.SetCaret(editor.Caret{Element: 0, Offset: 4})
	res, err := editor.Split(b, editor.PolicyTransition)
	assert.NoError(t, err)
	assert.Equal(t, 1, res.AfterIndex)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, screenplay.Dialogue, b.Type(1))
	assert.Equal(t, "end", b.Text(2))
	assert.Equal(t, editor.Caret{Element: 1}, b.Caret())
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	b := NewBuffer(screenplay.SeedDocument())
	snap := b.Snapshot()
	b.SetText(0, "changed")
	assert.Equal(t, "INT. COFFEE SHOP - DAY", snap.At(0).Text)
}
