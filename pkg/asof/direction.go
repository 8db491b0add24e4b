/*
Copyright 2023 The Tempoproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package asof

import "fmt"

// Direction selects which side of a probe row's timestamp the lookup
// candidates are taken from.
type Direction string

const (
	// DirectionBackward selects the candidate with the greatest timestamp at
	// or before the probe timestamp.
	DirectionBackward Direction = "backward"
	// DirectionForward selects the candidate with the smallest timestamp at
	// or after the probe timestamp.
	DirectionForward Direction = "forward"
	// DirectionNearest selects the candidate with the smallest absolute
	// timestamp distance. On a distance tie the backward candidate wins.
	DirectionNearest Direction = "nearest"
)

// ParseDirection parses a direction name as used in flags and config files.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionBackward, DirectionForward, DirectionNearest:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q, must be one of backward, forward, nearest", s)
	}
}

// Mode selects which rows are retained in the join output.
type Mode string

const (
	// ModeLeft emits one row per self row, filling defaults when no other row
	// is selected.
	ModeLeft Mode = "left"
	// ModeRight emits one row per other row, filling defaults when no self
	// row is selected.
	ModeRight Mode = "right"
	// ModeFull emits the left output plus one row for every other row no self
	// row ever selected, in arrival order, with self side defaults.
	ModeFull Mode = "full"
	// ModeInner emits only self rows for which an other row was selected.
	ModeInner Mode = "inner"
)

// ParseMode parses a mode name as used in flags and config files.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLeft, ModeRight, ModeFull, ModeInner:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q, must be one of left, right, full, inner", s)
	}
}
