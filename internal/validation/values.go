package validation

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/imamik/wsdeploy/internal/util/labels"
)

// Values maps variable names to form values: strings, bools, numbers,
// string lists, or the tag list under TagsField.
type Values map[string]any

// String returns the value of name as a trimmed string, "" when absent or not a string.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return strings.TrimSpace(s)
}

// Tags returns the tag list.
func (v Values) Tags() []labels.Tag {
	tags, _ := v[TagsField].([]labels.Tag)
	return tags
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	return maps.Clone(v)
}

// IsEmpty reports whether a value counts as missing: nil, a blank string,
// or an empty list or map.
func IsEmpty(value any) bool {
	switch x := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []labels.Tag:
		return len(x) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// stringList returns the string elements of a list value.
func stringList(value any) []string {
	switch x := value.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(x, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}
