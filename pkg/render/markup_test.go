package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xview/pkg/render"
)

func TestHTMLMarkup(t *testing.T) {
	markup := render.HTMLMarkup{URL: func(controller, action string) string {
		return "/app/" + controller + "?do=" + action
	}}
	vc := render.NewViewContext(nil)
	vc.AddModelError("owner.email", "<b>Email</b> is invalid")
	vc.AddModelError("", "Form rejected")
	vc.Values["owner.email"] = `a"b@example.com`
	vc.Values["secret"] = "hunter2"

	cases := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "custom url",
			got:  markup.ActionLink(vc, "Go & see", "show", "Items"),
			want: `<a href="/app/Items?do=show">Go &amp; see</a>`,
		},
		{
			name: "summary sanitises messages",
			got:  markup.ValidationSummary(vc, ""),
			want: `<div class="validation-summary-errors"><ul><li>Form rejected</li><li>Email is invalid</li></ul></div>`,
		},
		{
			name: "message override",
			got:  markup.ValidationMessage(vc, "owner/email", "Check the address"),
			want: `<span class="field-validation-error">Check the address</span>`,
		},
		{
			name: "no message for valid field",
			got:  markup.ValidationMessage(vc, "name", ""),
			want: "",
		},
		{
			name: "dotted field id and escaped value",
			got:  markup.TextBox(vc, render.Field{Name: "owner.email"}),
			want: `<input class="input-validation-error" id="owner_email" name="owner.email" type="text" value="a&#34;b@example.com" />`,
		},
		{
			name: "password ignores posted values",
			got:  markup.Password(vc, render.Field{Name: "secret"}),
			want: `<input id="secret" name="secret" type="password" value="" />`,
		},
		{
			name: "unchecked box",
			got:  markup.CheckBox(vc, render.Field{Name: "agree", Value: "false", HasValue: true}),
			want: `<input id="agree" name="agree" type="checkbox" value="true" /><input name="agree" type="hidden" value="false" />`,
		},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s:\n got %s\nwant %s", tc.name, tc.got, tc.want)
		}
	}

	if got := markup.ValidationSummary(render.NewViewContext(nil), "ignored"); got != "" {
		t.Fatalf("valid state should render no summary, got %q", got)
	}
}

func TestHiddenFields(t *testing.T) {
	vc := render.NewViewContext(nil)
	vc.AddHidden(render.Hidden("_csrf", "tok\"en"), render.Hidden("version", 3), render.Hidden(" ", "x"))
	vc.AddHidden(render.Hidden("version", 4))

	fields := render.SortedHiddenFields(vc.Hidden)
	want := []render.HiddenField{{Name: "_csrf", Value: `tok"en`}, {Name: "version", Value: "4"}}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}

	got := render.HTMLMarkup{}.Hidden(fields[0])
	if got != `<input name="_csrf" type="hidden" value="tok&#34;en" />` {
		t.Fatalf("hidden markup = %s", got)
	}
}
