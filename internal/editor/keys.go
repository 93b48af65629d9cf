/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyBinding is a key press as hosts report it. Mod is Ctrl on most
// platforms and Cmd on macOS.
type KeyBinding struct {
	Mod bool
	Key string
}

// ParseKey reads bindings such as "ctrl+1", "mod+s", "enter" or "tab".
func ParseKey(s string) KeyBinding {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range []string{"ctrl+", "cmd+", "mod+", "alt+"} {
		if strings.HasPrefix(s, p) {
			return KeyBinding{Mod: true, Key: strings.TrimPrefix(s, p)}
		}
	}
	return KeyBinding{Key: s}
}

func (k KeyBinding) String() string {
	if k.Mod {
		return "mod+" + k.Key
	}
	return k.Key
}

// Commands are host operations the session cannot perform on its own.
type Commands interface {
	Save() error
	Open() error
	Export() error
}

// tabIndent is inserted for Tab.
const tabIndent = "    "

// Action dispatches a key binding. handled is false for keys the editor
// leaves to the host.
func (s *Session) Action(k KeyBinding, cmds Commands) (handled bool, err error) {
	if !k.Mod {
		switch k.Key {
		case "enter":
			return true, s.Enter()
		case "tab":
			return true, s.InsertText(tabIndent)
		}
		return false, nil
	}
	if d, convErr := strconv.Atoi(k.Key); convErr == nil {
		if d < 1 || d > 6 {
			return false, nil
		}
		return true, s.Shortcut(d)
	}
	switch k.Key {
	case "n":
		return true, s.New()
	case "s", "o", "e":
		if cmds == nil {
			return true, fmt.Errorf("%s: no command handler", k)
		}
		switch k.Key {
		case "s":
			return true, cmds.Save()
		case "o":
			return true, cmds.Open()
		default:
			return true, cmds.Export()
		}
	}
	return false, nil
}
