package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Helper is bound to HelperNamespace in every render. Its methods forward to
// the engine's Markup and return the captured text as safe values so
// programs can emit it without escaping.
type Helper struct {
	engine *Engine
	ctx    context.Context
	vc     *ViewContext
	depth  int
}

// ActionLink renders a link to action. The controller defaults to the
// current route's controller.
func (h *Helper) ActionLink(text, action string, controller ...string) *pongo2.Value {
	return safe(h.engine.markup.ActionLink(h.vc, text, action, first(controller)))
}

// RenderPartial renders the partial view name and returns its output. The
// partial sees the same view state; an optional model replaces the current
// one.
func (h *Helper) RenderPartial(name string, model ...any) (*pongo2.Value, error) {
	if h.depth >= maxPartialDepth {
		return nil, fmt.Errorf("render: partial %q exceeds nesting depth %d", name, maxPartialDepth)
	}
	view, err := h.engine.FindPartialView(h.vc.Route.Controller, name)
	if err != nil {
		return nil, err
	}
	var child *ViewContext
	if len(model) > 0 {
		child = h.vc.forPartial(model[0], true)
	} else {
		child = h.vc.forPartial(nil, false)
	}
	out, err := view.execute(h.ctx, child, h.depth+1)
	if err != nil {
		return nil, err
	}
	return pongo2.AsSafeValue(out.Body), nil
}

// ValidationSummary lists every model error, optionally headed by message.
func (h *Helper) ValidationSummary(message ...string) *pongo2.Value {
	return safe(h.engine.markup.ValidationSummary(h.vc, first(message)))
}

// ValidationMessage renders the first error for field, or message when one
// is given and the field has errors.
func (h *Helper) ValidationMessage(field string, message ...string) *pongo2.Value {
	return safe(h.engine.markup.ValidationMessage(h.vc, field, first(message)))
}

func (h *Helper) TextBox(name string, value ...any) *pongo2.Value {
	return safe(h.engine.markup.TextBox(h.vc, fieldOf(name, value)))
}

func (h *Helper) Password(name string, value ...any) *pongo2.Value {
	return safe(h.engine.markup.Password(h.vc, fieldOf(name, value)))
}

func (h *Helper) CheckBox(name string, value ...any) *pongo2.Value {
	return safe(h.engine.markup.CheckBox(h.vc, fieldOf(name, value)))
}

// Hidden renders a single hidden input.
func (h *Helper) Hidden(name string, value ...any) *pongo2.Value {
	field := HiddenField{Name: name}
	if len(value) > 0 {
		field = Hidden(name, value[0])
	}
	return safe(h.engine.markup.Hidden(field))
}

// HiddenFields renders every hidden input recorded on the view context,
// ordered by name.
func (h *Helper) HiddenFields() *pongo2.Value {
	var b strings.Builder
	for _, field := range SortedHiddenFields(h.vc.Hidden) {
		b.WriteString(h.engine.markup.Hidden(field))
	}
	return safe(b.String())
}

// Encode escapes value for inclusion in markup.
func (h *Helper) Encode(value any) *pongo2.Value {
	if value == nil {
		return safe("")
	}
	return safe(h.engine.markup.Encode(fmt.Sprint(value)))
}

func safe(text string) *pongo2.Value {
	return pongo2.AsSafeValue(text)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func fieldOf(name string, value []any) Field {
	field := Field{Name: name}
	if len(value) > 0 && value[0] != nil {
		field.Value = fmt.Sprint(value[0])
		field.HasValue = true
	}
	return field
}
