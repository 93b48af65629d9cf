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
	"errors"
	"fmt"
	"regexp"
)

// ErrNotPDF is returned when bytes do not start with a PDF header.
var ErrNotPDF = errors.New("not a PDF document")

// PDFInfo summarises a PDF opened for preview.
type PDFInfo struct {
	Version string
	Pages   int
	Size    int
}

var (
	pdfHeader  = regexp.MustCompile(`^%PDF-(\d\.\d)`)
	pageObject = regexp.MustCompile(`/Type\s*/Page(?:[^s]|$)`)
)

// InspectPDF checks the header of data and counts its page objects. Page
// objects stored inside compressed object streams are not counted.
func InspectPDF(data []byte) (PDFInfo, error) {
	m := pdfHeader.FindSubmatch(data)
	if m == nil {
		return PDFInfo{}, ErrNotPDF
	}
	if !bytes.Contains(data, []byte("%%EOF")) {
		return PDFInfo{}, fmt.Errorf("%w: missing end-of-file marker", ErrNotPDF)
	}
	return PDFInfo{
		Version: string(m[1]),
		Pages:   len(pageObject.FindAllIndex(data, -1)),
		Size:    len(data),
	}, nil
}
