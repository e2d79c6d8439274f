package plugins

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-xview/pkg/document"
	"github.com/goliatone/go-xview/pkg/plugin"
)

// TextPlugin offers string helpers to programs.
type TextPlugin struct {
	plugin.Base
}

func (TextPlugin) Upper(s string) string { return strings.ToUpper(s) }

func (TextPlugin) Lower(s string) string { return strings.ToLower(s) }

func (TextPlugin) Trim(s string) string { return strings.TrimSpace(s) }

// Title capitalises each word.
func (TextPlugin) Title(s string) string {
	return cases.Title(language.Und).String(s)
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func (TextPlugin) Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n == 1 {
		return "…"
	}
	return strings.TrimRightFunc(string(runes[:n-1]), func(r rune) bool { return r == ' ' }) + "…"
}

// Join concatenates the text of items with sep. Items may be a slice of
// nodes or of any printable values.
func (TextPlugin) Join(items any, sep string) string {
	return strings.Join(texts(items), sep)
}

// Default returns fallback when value is empty.
func (TextPlugin) Default(value any, fallback string) string {
	text := textOf(value)
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

func (TextPlugin) Replace(s, old, replacement string) string {
	return strings.ReplaceAll(s, old, replacement)
}

func texts(items any) []string {
	if items == nil {
		return nil
	}
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{textOf(items)}
	}
	values := make([]any, rv.Len())
	for idx := range values {
		values[idx] = rv.Index(idx).Interface()
	}
	return lo.FilterMap(values, func(item any, _ int) (string, bool) {
		text := textOf(item)
		return text, text != ""
	})
}

func textOf(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case *document.Node:
		return v.InnerText()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
