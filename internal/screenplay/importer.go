/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"bufio"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns text in Unicode NFC so that offsets and comparisons do
// not depend on how the input method composed characters.
func Normalize(text string) string {
	return norm.NFC.String(text)
}

// ImportText turns a plain-text draft into a document. Every non-blank line
// becomes one element, classified with the previous element as context.
// Leading and trailing whitespace of each line is dropped.
func ImportText(input string) Document {
	var doc Document
	prev := NoType
	scanner := bufio.NewScanner(strings.NewReader(Normalize(input)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimRight(scanner.Text(), "\r\n"))
		if line == "" {
			continue
		}
		t := Classify(line, prev)
		doc.Append(Element{Type: t, Text: line})
		prev = t
	}
	return doc
}
