package validation

import (
	"strconv"
	"strings"
)

// Toggle is a boolean form option that may be unset. Unset resolves to true.
type Toggle int

// Toggle states.
const (
	Unset Toggle = iota
	On
	Off
)

// ToggleOf resolves a form value: a bool, or a string parsed like
// strconv.ParseBool. Anything else is Unset.
func ToggleOf(v any) Toggle {
	switch b := v.(type) {
	case bool:
		if b {
			return On
		}
		return Off
	case *bool:
		if b == nil {
			return Unset
		}
		return ToggleOf(*b)
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return Unset
		}
		return ToggleOf(parsed)
	case Toggle:
		return b
	}
	return Unset
}

// Enabled resolves the toggle, treating Unset as true.
func (t Toggle) Enabled() bool {
	return t != Off
}

func (t Toggle) String() string {
	switch t {
	case On:
		return "on"
	case Off:
		return "off"
	}
	return "unset"
}

// Toggles holds the toggle state by variable name.
type Toggles map[string]Toggle

// Enabled resolves the toggle named name.
func (t Toggles) Enabled(name string) bool {
	return t[name].Enabled()
}
