/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import "strings"

// DefaultWordsPerPage approximates a standard screenplay page.
const DefaultWordsPerPage = 250

// Metrics are derived from the element sequence and never stored.
type Metrics struct {
	Lines int `json:"lines"`
	Words int `json:"words"`
	Pages int `json:"pages"`
}

// Recompute derives line, word and page counts from doc. A document always
// reports at least one line and one page. wordsPerPage <= 0 selects the default.
func Recompute(doc Document, wordsPerPage int) Metrics {
	if wordsPerPage <= 0 {
		wordsPerPage = DefaultWordsPerPage
	}
	m := Metrics{Lines: doc.Len()}
	if m.Lines < 1 {
		m.Lines = 1
	}
	m.Words = len(strings.Fields(doc.Text()))
	m.Pages = (m.Words + wordsPerPage - 1) / wordsPerPage
	if m.Pages < 1 {
		m.Pages = 1
	}
	return m
}
