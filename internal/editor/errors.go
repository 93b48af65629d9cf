/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "errors"

var (
	// ErrNoCaret reports that the surface has no usable caret. Key handlers
	// treat it as a silent no-op.
	ErrNoCaret = errors.New("editor: no active caret")
	// ErrDeclined reports that the user declined to discard unsaved changes.
	ErrDeclined = errors.New("editor: replacement declined")
)
