/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "unicode/utf8"

// Locate resolves the surface's native caret into an element index and a
// rune offset within that element's text.
//
// A caret inside a fragment counts the runes of all preceding fragments.
// A caret on the element container resolves to 0 when its offset is 0 and
// to the end of the text otherwise. A fragment that cannot be found also
// resolves to the end of the text.
func Locate(s Surface) (Caret, error) {
	sel, ok := s.Selection()
	if !ok {
		return Caret{}, ErrNoCaret
	}
	if sel.Node.Element == DocumentLevel {
		return Caret{DocumentLevel: true}, nil
	}
	i := sel.Node.Element
	if i < 0 || i >= s.Len() {
		return Caret{}, ErrNoCaret
	}

	frags := fragmentsOf(s, i)
	total := 0
	for _, f := range frags {
		total += utf8.RuneCountInString(f)
	}

	if sel.Node.Fragment == WholeElement {
		if sel.Offset <= 0 {
			return Caret{Element: i}, nil
		}
		return Caret{Element: i, Offset: total}, nil
	}

	f := sel.Node.Fragment
	if f < 0 || f >= len(frags) {
		return Caret{Element: i, Offset: total}, nil
	}
	off := 0
	for _, prev := range frags[:f] {
		off += utf8.RuneCountInString(prev)
	}
	within := sel.Offset
	if n := utf8.RuneCountInString(frags[f]); within > n {
		within = n
	}
	if within < 0 {
		within = 0
	}
	return Caret{Element: i, Offset: off + within}, nil
}

func fragmentsOf(s Surface, i int) []string {
	if fr, ok := s.(Fragmented); ok {
		return fr.Fragments(i)
	}
	return []string{s.Text(i)}
}

// clampOffset bounds off to [0, runeLen(text)].
func clampOffset(text string, off int) int {
	if off < 0 {
		return 0
	}
	if n := utf8.RuneCountInString(text); off > n {
		return n
	}
	return off
}

// SplitText cuts text at rune offset k, clamped to the text. Bytes are kept
// as they are: an invalid byte counts as one rune and is never rewritten.
func SplitText(text string, k int) (before, after string) {
	b := byteOffset(text, k)
	return text[:b], text[b:]
}

func byteOffset(text string, k int) int {
	b := 0
	for n := 0; n < k && b < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[b:])
		b += size
	}
	return b
}
