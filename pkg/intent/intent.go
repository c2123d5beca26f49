// Package intent defines the discrete operator actions fed into an annotation
// session and resolves raw key input into them.
package intent

import (
	"fmt"

	"github.com/menta2k/image-annotator/pkg/types"
)

// Kind identifies an operator action
type Kind int

const (
	None Kind = iota
	ZoomToggle
	Mark
	Skip
	LaneSwitch
	Next
	Previous
	PointerMove
	// Key carries a key name still to be resolved through a Keymap
	Key
	// Code carries a raw platform key code still to be resolved through a Keymap
	Code
)

var kindNames = map[Kind]string{
	None:        "none",
	ZoomToggle:  "zoom",
	Mark:        "mark",
	Skip:        "skip",
	LaneSwitch:  "lane",
	Next:        "next",
	Previous:    "prev",
	PointerMove: "move",
	Key:         "key",
	Code:        "code",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Intent is one action with its payload. Point is in current display space.
type Intent struct {
	Kind  Kind
	Point types.Point
	Key   string
	Code  int
	// Line is the script line the intent was read from, zero otherwise
	Line int
}

func (i Intent) String() string {
	switch i.Kind {
	case Mark, PointerMove:
		return fmt.Sprintf("%s %d %d", i.Kind, i.Point.X, i.Point.Y)
	case Key:
		return fmt.Sprintf("key %s", i.Key)
	case Code:
		return fmt.Sprintf("code %d", i.Code)
	default:
		return i.Kind.String()
	}
}

// Bindings names the key bound to each keyboard action
type Bindings struct {
	Zoom       string `json:"zoom" toml:"zoom" yaml:"zoom"`
	Next       string `json:"next" toml:"next" yaml:"next"`
	Previous   string `json:"previous" toml:"previous" yaml:"previous"`
	Skip       string `json:"skip" toml:"skip" yaml:"skip"`
	LaneSwitch string `json:"lane_switch" toml:"lane_switch" yaml:"lane_switch"`
}

// Action pairs a keyboard action with the key bound to it
type Action struct {
	Kind Kind
	Key  string
}

// Actions returns the bound key for every keyboard action, in display order
func (b Bindings) Actions() []Action {
	return []Action{
		{ZoomToggle, b.Zoom},
		{Next, b.Next},
		{Previous, b.Previous},
		{Skip, b.Skip},
		{LaneSwitch, b.LaneSwitch},
	}
}

// Keymap resolves key names and raw key codes to actions.
// It is built once at startup for the running platform.
type Keymap struct {
	bindings Bindings
	byName   map[string]Kind
	byCode   map[int]string
}

// NewKeymap builds a keymap. codes translates raw platform key codes to key names.
func NewKeymap(b Bindings, codes map[int]string) Keymap {
	km := Keymap{
		bindings: b,
		byName:   make(map[string]Kind),
		byCode:   make(map[int]string, len(codes)),
	}
	for _, a := range b.Actions() {
		if a.Key == "" {
			continue
		}
		if _, taken := km.byName[a.Key]; !taken {
			km.byName[a.Key] = a.Kind
		}
	}
	for code, name := range codes {
		km.byCode[code] = name
	}
	return km
}

// Bindings returns the bindings the keymap was built from
func (k Keymap) Bindings() Bindings {
	return k.bindings
}

// Resolve returns the action bound to a key name
func (k Keymap) Resolve(name string) (Kind, bool) {
	kind, ok := k.byName[name]
	return kind, ok
}

// ResolveCode returns the action bound to a raw key code
func (k Keymap) ResolveCode(code int) (Kind, bool) {
	name, ok := k.byCode[code]
	if !ok {
		return None, false
	}
	return k.Resolve(name)
}

// Without returns a copy of the keymap with the given actions unbound
func (k Keymap) Without(kinds ...Kind) Keymap {
	out := Keymap{
		bindings: k.bindings,
		byName:   make(map[string]Kind, len(k.byName)),
		byCode:   k.byCode,
	}
	for name, kind := range k.byName {
		drop := false
		for _, d := range kinds {
			if kind == d {
				drop = true
				break
			}
		}
		if !drop {
			out.byName[name] = kind
		}
	}
	return out
}
