/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind tells what Open found.
type Kind int

const (
	KindScript Kind = iota + 1
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindPDF:
		return "pdf"
	}
	return "unknown"
}

// Opened is the result of Open. Exactly one of Script or PDF is set,
// according to Kind. A PDF is only ever previewed, never imported.
type Opened struct {
	Kind      Kind
	Path      string
	Script    ScriptFile
	Recovered bool
	PDF       []byte
}

// Open reads path and dispatches on its extension. It never touches an
// editing session; callers apply a script through a single Load.
func Open(path string) (Opened, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ScriptExt:
		sf, recovered, err := ReadScript(path)
		if err != nil {
			return Opened{}, err
		}
		return Opened{Kind: KindScript, Path: path, Script: sf, Recovered: recovered}, nil
	case PDFExt:
		data, err := os.ReadFile(path)
		if err != nil {
			return Opened{}, fmt.Errorf("read pdf: %w", err)
		}
		return Opened{Kind: KindPDF, Path: path, PDF: data}, nil
	}
	return Opened{}, fmt.Errorf("%w (%s)", ErrUnsupportedFormat, filepath.Base(path))
}
