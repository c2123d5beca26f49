package session

import (
	"fmt"
	"strings"

	"github.com/menta2k/image-annotator/pkg/intent"
	"github.com/menta2k/image-annotator/pkg/logwriter"
)

// Mode is the per-program policy of a session: which actions it accepts,
// which log format and filename prefix it writes, and its key bindings.
type Mode struct {
	Name   string
	Prefix string
	Format logwriter.Format
	// AllowSkip enables the skip action and the skip colour
	AllowSkip bool
	// AllowLanes enables lane switching; only meaningful with the dual lane format
	AllowLanes bool

	keys intent.Keymap
}

var (
	// Distance measures road markings on two lanes
	Distance = Mode{Name: "distance", Prefix: "Di#", Format: logwriter.DualLane, AllowSkip: true, AllowLanes: true}
	// Vehicle tracks a single vehicle trajectory
	Vehicle = Mode{Name: "vehicle", Prefix: "TS#", Format: logwriter.Simple}
	// Viaduct records a plain list of points
	Viaduct = Mode{Name: "viaduct", Prefix: "RV#", Format: logwriter.Simple}
)

// Modes returns every known mode
func Modes() []Mode {
	return []Mode{Distance, Vehicle, Viaduct}
}

// ModeByName looks a mode up by its name, case-insensitively
func ModeByName(name string) (Mode, error) {
	for _, m := range Modes() {
		if strings.EqualFold(m.Name, strings.TrimSpace(name)) {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("unknown mode %q (use distance, vehicle or viaduct)", name)
}

// WithKeymap returns a copy of the mode bound to km. Keys for actions the
// mode does not accept are dropped.
func (m Mode) WithKeymap(km intent.Keymap) Mode {
	var drop []intent.Kind
	if !m.AllowSkip {
		drop = append(drop, intent.Skip)
	}
	if !m.AllowLanes {
		drop = append(drop, intent.LaneSwitch)
	}
	m.keys = km.Without(drop...)
	return m
}

// Keymap returns the key bindings of the mode
func (m Mode) Keymap() intent.Keymap {
	return m.keys
}

// Accepts reports whether the mode handles an action
func (m Mode) Accepts(k intent.Kind) bool {
	switch k {
	case intent.Skip:
		return m.AllowSkip
	case intent.LaneSwitch:
		return m.AllowLanes
	case intent.None:
		return false
	default:
		return true
	}
}

func (m Mode) String() string {
	return m.Name
}
