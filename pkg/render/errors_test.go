package render_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-xview/pkg/render"
)

func TestMapErrorPayload(t *testing.T) {
	payload := map[string][]string{
		"/body/name":                {"Name is required"},
		"body.owner.email":          {"Email invalid", " Email invalid "},
		"$.body.tags[0]":            {"Tags must be unique"},
		"non_field_errors":          {"Form level error"},
		"body/owner/phone/~1number": {"Phone malformed"},
		"":                          {"Unscoped form error", "  "},
	}

	state := render.MapErrorPayload(payload)

	want := render.ModelState{
		"":                    {"Form level error", "Unscoped form error"},
		"name":                {"Name is required"},
		"owner.email":         {"Email invalid"},
		"tags.0":              {"Tags must be unique"},
		"owner.phone./number": {"Phone malformed"},
	}
	if diff := cmp.Diff(want, state, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("model state mismatch (-want +got):\n%s", diff)
	}
}

func TestModelStateAccessors(t *testing.T) {
	state := render.ModelState{}
	if !state.IsValid() {
		t.Fatalf("empty state should be valid")
	}
	state.Add("/user/name", "Required")
	state.Add("form", "Try again")
	state.Add("user.name", "Too short")
	state.Add("age", "  ")

	if state.IsValid() {
		t.Fatalf("state with messages should be invalid")
	}
	if diff := cmp.Diff([]string{"Required", "Too short"}, state.Field("user/name")); diff != "" {
		t.Fatalf("field messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Try again", "Required", "Too short"}, state.All()); diff != "" {
		t.Fatalf("all messages mismatch (-want +got):\n%s", diff)
	}
	if _, ok := state["age"]; ok {
		t.Fatalf("blank messages should not create entries")
	}
}

func TestErrorTypes(t *testing.T) {
	cycle := &render.ChainCycleError{Chain: []string{"a.tpl", "b.tpl", "a.tpl"}}
	if !errors.Is(cycle, render.ErrChainCycle) {
		t.Fatalf("ChainCycleError should wrap ErrChainCycle")
	}
	if cycle.Error() != "render: transform chain does not terminate: a.tpl -> b.tpl -> a.tpl" {
		t.Fatalf("unexpected message %q", cycle.Error())
	}

	missing := &render.ViewNotFoundError{Name: "index", Searched: []string{"Home/index.tpl", "Shared/index.tpl"}}
	if !errors.Is(missing, render.ErrViewNotFound) {
		t.Fatalf("ViewNotFoundError should wrap ErrViewNotFound")
	}
}
