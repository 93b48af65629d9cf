/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"screenwriter/internal/screenplay"
)

const (
	ScriptExt    = ".script"
	PDFExt       = ".pdf"
	DefaultTitle = "Untitled Script"
)

var (
	// ErrMalformedScript reports a .script file that is not valid JSON or
	// does not match the save format.
	ErrMalformedScript = errors.New("malformed script file")
	// ErrUnsupportedFormat reports a file that is neither .script nor .pdf.
	ErrUnsupportedFormat = errors.New("unsupported file format: open .script or .pdf files")
)

//go:embed script.schema.json
var scriptSchema []byte

var scriptSchemaLoader = gojsonschema.NewBytesLoader(scriptSchema)

// ScriptFile is the on-disk save format.
type ScriptFile struct {
	Title        string              `json:"title"`
	Content      screenplay.Document `json:"content"`
	LastModified time.Time           `json:"lastModified"`
}

// FileName derives the save file name from a title: every character outside
// [A-Za-z0-9] becomes "_" and the result is lower-cased.
func FileName(title string) string { return baseName(title) + ScriptExt }

// PDFFileName is FileName for PDF exports.
func PDFFileName(title string) string { return baseName(title) + PDFExt }

func baseName(title string) string {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Encode serialises sf. A zero LastModified is stamped with the current time.
func Encode(sf ScriptFile) ([]byte, error) {
	if sf.LastModified.IsZero() {
		sf.LastModified = time.Now().UTC()
	}
	if strings.TrimSpace(sf.Title) == "" {
		sf.Title = DefaultTitle
	}
	if err := sf.Content.Validate(); err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a .script payload. Every failure wraps
// ErrMalformedScript. A missing title becomes DefaultTitle.
func Decode(data []byte) (ScriptFile, error) {
	res, err := gojsonschema.Validate(scriptSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return ScriptFile{}, fmt.Errorf("%w: %v", ErrMalformedScript, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return ScriptFile{}, fmt.Errorf("%w: %s", ErrMalformedScript, strings.Join(msgs, "; "))
	}
	var sf ScriptFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return ScriptFile{}, fmt.Errorf("%w: %v", ErrMalformedScript, err)
	}
	if err := sf.Content.Validate(); err != nil {
		return ScriptFile{}, fmt.Errorf("%w: %v", ErrMalformedScript, err)
	}
	if strings.TrimSpace(sf.Title) == "" {
		sf.Title = DefaultTitle
	}
	return sf, nil
}
