package mapcompare

import (
	"fmt"
	"strings"
)

// Mode is the active comparison technique. Exactly one mode is active at a
// time and transitions only happen through Coordinator.Activate and Stop.
type Mode uint8

const (
	ModeInactive        Mode = iota // no comparison running
	ModeSplitVertical               // left/right split window
	ModeSplitHorizontal             // top/bottom split window
	ModeLens                        // circular window following the cursor
	ModeMirror                      // second synchronized viewport
)

var modeNames = [...]string{"inactive", "vertical", "horizontal", "lens", "mirror"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// IsMask reports whether the mode is rendered through the mask layer pipeline.
func (m Mode) IsMask() bool {
	return m == ModeSplitVertical || m == ModeSplitHorizontal || m == ModeLens
}

// ParseMode maps a mode name to a Mode. The empty string parses as
// ModeInactive.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "inactive", "none", "stop":
		return ModeInactive, nil
	case "vertical", "split-vertical":
		return ModeSplitVertical, nil
	case "horizontal", "split-horizontal":
		return ModeSplitHorizontal, nil
	case "lens":
		return ModeLens, nil
	case "mirror":
		return ModeMirror, nil
	}
	return ModeInactive, fmt.Errorf("mapcompare: unknown mode %q", name)
}
