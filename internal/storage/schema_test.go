/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"screenwriter/internal/screenplay"
)

func TestEncodedScriptConformsToSchema(t *testing.T) {
	data, err := Encode(ScriptFile{Title: "Schema Test", Content: screenplay.SeedDocument()})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	result, err := gojsonschema.Validate(scriptSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("script does not conform to schema")
	}
}

func TestEmptyScriptConformsToSchema(t *testing.T) {
	data, err := Encode(ScriptFile{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sf, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode empty script: %v", err)
	}
	if sf.Content.Len() != 0 || sf.Title != DefaultTitle {
		t.Fatalf("decoded = %+v", sf)
	}
}
