package render

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Field names a form control and an optional explicit value.
type Field struct {
	Name     string
	Value    string
	HasValue bool
}

// Markup produces the host markup the helper forwards to. Implementations
// return complete fragments; an empty string means nothing to render.
type Markup interface {
	ActionLink(vc *ViewContext, text, action, controller string) string
	ValidationSummary(vc *ViewContext, message string) string
	ValidationMessage(vc *ViewContext, field, message string) string
	TextBox(vc *ViewContext, field Field) string
	Password(vc *ViewContext, field Field) string
	CheckBox(vc *ViewContext, field Field) string
	Hidden(field HiddenField) string
	Encode(value string) string
}

// URLFunc builds the URL for a controller action.
type URLFunc func(controller, action string) string

// DefaultURL routes to "/{controller}/{action}".
func DefaultURL(controller, action string) string {
	if controller == "" {
		return "/" + url.PathEscape(action)
	}
	return "/" + url.PathEscape(controller) + "/" + url.PathEscape(action)
}

// HTMLMarkup renders HTML fragments. Message text is passed through a strict
// sanitizer so only plain text reaches the page.
type HTMLMarkup struct {
	URL URLFunc
}

var (
	messagePolicy     *bluemonday.Policy
	messagePolicyOnce sync.Once
)

func sanitizeMessage(message string) string {
	messagePolicyOnce.Do(func() {
		messagePolicy = bluemonday.StrictPolicy()
	})
	return messagePolicy.Sanitize(message)
}

func (m HTMLMarkup) ActionLink(vc *ViewContext, text, action, controller string) string {
	if controller == "" && vc != nil {
		controller = vc.Route.Controller
	}
	urlFor := m.URL
	if urlFor == nil {
		urlFor = DefaultURL
	}
	return fmt.Sprintf(`<a href="%s">%s</a>`, attr(urlFor(controller, action)), html.EscapeString(text))
}

func (m HTMLMarkup) ValidationSummary(vc *ViewContext, message string) string {
	if vc == nil || vc.Errors.IsValid() {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="validation-summary-errors">`)
	if message = strings.TrimSpace(message); message != "" {
		b.WriteString("<span>" + sanitizeMessage(message) + "</span>")
	}
	b.WriteString("<ul>")
	for _, msg := range vc.Errors.All() {
		b.WriteString("<li>" + sanitizeMessage(msg) + "</li>")
	}
	b.WriteString("</ul></div>")
	return b.String()
}

func (m HTMLMarkup) ValidationMessage(vc *ViewContext, field, message string) string {
	if vc == nil {
		return ""
	}
	messages := vc.Errors.Field(field)
	if len(messages) == 0 {
		return ""
	}
	if message = strings.TrimSpace(message); message == "" {
		message = messages[0]
	}
	return `<span class="field-validation-error">` + sanitizeMessage(message) + `</span>`
}

func (m HTMLMarkup) TextBox(vc *ViewContext, field Field) string {
	return input(vc, "text", field.Name, valueFor(vc, field), nil)
}

func (m HTMLMarkup) Password(vc *ViewContext, field Field) string {
	value := ""
	if field.HasValue {
		value = field.Value
	}
	return input(vc, "password", field.Name, value, nil)
}

func (m HTMLMarkup) CheckBox(vc *ViewContext, field Field) string {
	checked, _ := strconv.ParseBool(strings.TrimSpace(valueFor(vc, field)))
	extra := []string{}
	if checked {
		extra = append(extra, `checked="checked"`)
	}
	box := input(vc, "checkbox", field.Name, "true", extra)
	return box + m.Hidden(HiddenField{Name: field.Name, Value: "false"})
}

func (m HTMLMarkup) Hidden(field HiddenField) string {
	return fmt.Sprintf(`<input name="%s" type="hidden" value="%s" />`, attr(field.Name), attr(field.Value))
}

func (m HTMLMarkup) Encode(value string) string {
	return html.EscapeString(value)
}

func valueFor(vc *ViewContext, field Field) string {
	if field.HasValue {
		return field.Value
	}
	if vc == nil {
		return ""
	}
	if value, ok := vc.Values[field.Name]; ok && value != nil {
		return fmt.Sprint(value)
	}
	return ""
}

func input(vc *ViewContext, kind, name, value string, extra []string) string {
	parts := []string{}
	if vc != nil && len(vc.Errors.Field(name)) > 0 {
		parts = append(parts, `class="input-validation-error"`)
	}
	parts = append(parts,
		fmt.Sprintf(`id="%s"`, attr(fieldID(name))),
		fmt.Sprintf(`name="%s"`, attr(name)),
		fmt.Sprintf(`type="%s"`, kind),
		fmt.Sprintf(`value="%s"`, attr(value)),
	)
	parts = append(parts, extra...)
	return "<input " + strings.Join(parts, " ") + " />"
}

func fieldID(name string) string {
	return strings.NewReplacer(".", "_", "[", "_", "]", "_").Replace(name)
}

func attr(value string) string {
	return html.EscapeString(value)
}
