package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is a hidden form input carried alongside the visible fields,
// such as an anti-forgery token or a record version.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for name with value formatted as text.
func Hidden(name string, value any) HiddenField {
	text := ""
	if value != nil {
		text = fmt.Sprint(value)
	}
	return HiddenField{Name: strings.TrimSpace(name), Value: text}
}

// AddHidden records fields on the context; later fields replace earlier
// ones with the same name and empty names are ignored.
func (vc *ViewContext) AddHidden(fields ...HiddenField) {
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			continue
		}
		if vc.Hidden == nil {
			vc.Hidden = make(map[string]string)
		}
		vc.Hidden[name] = field.Value
	}
}

// SortedHiddenFields returns fields ordered by name. Empty names are dropped.
func SortedHiddenFields(fields map[string]string) []HiddenField {
	out := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, HiddenField{Name: name, Value: value})
		}
	}
	if len(out) == 0 {
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
