/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reSceneHeading  = regexp.MustCompile(`^(INT|EXT|INT\./EXT|INT/EXT|I/E)[\s.]`)
	reCharacterCue  = regexp.MustCompile(`^[A-Z][A-Z\s\d]+$`)
	reParenthetical = regexp.MustCompile(`^\(.*\)$`)
	reTransition    = regexp.MustCompile(`^(FADE TO:|CUT TO:|DISSOLVE TO:|SMASH CUT TO:|QUICK CUT TO:|FADE OUT\.?|TO BLACK\.?)$`)
)

// maxCharacterCue is the exclusive rune length limit for a character cue.
const maxCharacterCue = 40

// Classify infers the element type of a line from its trimmed text and the
// type of the element before it (NoType when there is none). Rules are
// evaluated in order and the first match wins. Blank text is always Action.
func Classify(text string, preceding ElementType) ElementType {
	text = strings.TrimSpace(text)
	if text == "" {
		return Action
	}
	upper := strings.ToUpper(text)

	if reSceneHeading.MatchString(upper) {
		return SceneHeading
	}
	if reCharacterCue.MatchString(text) && utf8.RuneCountInString(text) < maxCharacterCue {
		return Character
	}
	if reParenthetical.MatchString(text) {
		return Parenthetical
	}
	if reTransition.MatchString(upper) || (strings.HasSuffix(upper, "TO:") && text == upper) {
		return Transition
	}
	if preceding == Character || preceding == Parenthetical {
		return Dialogue
	}
	return Action
}
