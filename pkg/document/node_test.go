package document

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const pagesXML = `<?xml version="1.0"?>
<data xmlns:x="urn:ignored">
  <page url="/" title="Home">Welcome</page>
  <page url="/about" title="About">About &amp; contact&nbsp;us</page>
  <page url="/blog" title="Blog"><post>one</post><post>two</post></page>
</data>`

func TestParseBuildsTree(t *testing.T) {
	root, err := ParseString(pagesXML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if root.Name != "data" {
		t.Fatalf("root name = %q, want data", root.Name)
	}
	if root.HasAttr("x") || len(root.Attrs) != 0 {
		t.Fatalf("namespace declarations should be dropped, got %+v", root.Attrs)
	}
	if root.Text != "" {
		t.Fatalf("whitespace between elements should be cleared, got %q", root.Text)
	}
	if got := root.Count("page"); got != 3 {
		t.Fatalf("page count = %d, want 3", got)
	}
	if got := root.Value("page[2]"); got != "About & contact\u00a0us" {
		t.Fatalf("entity decoding = %q", got)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"two roots":      "<a/><b/>",
		"text outside":   "hello <a/>",
		"unclosed":       "<a><b></a>",
		"only a comment": "<!-- nothing -->",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseString(input); err == nil {
				t.Fatalf("expected error for %q", input)
			}
		})
	}
}

func TestParseDeclaredEncodings(t *testing.T) {
	latin1 := "<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>caf\xe9</p>"
	root, err := Parse(strings.NewReader(latin1))
	if err != nil {
		t.Fatalf("parse latin-1 bytes: %v", err)
	}
	if root.Text != "café" {
		t.Fatalf("text = %q, want transcoded %q", root.Text, "café")
	}

	root, err = ParseString("<?xml version=\"1.0\" encoding=\"iso-8859-1\"?><p>café</p>")
	if err != nil {
		t.Fatalf("parse decoded text: %v", err)
	}
	if root.Text != "café" {
		t.Fatalf("text = %q, want %q", root.Text, "café")
	}

	if _, err := Parse(strings.NewReader(`<?xml version="1.0" encoding="x-unknown"?><p/>`)); err == nil {
		t.Fatalf("expected error for an unknown encoding")
	}
}

func TestSelectPaths(t *testing.T) {
	root, err := ParseString(pagesXML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cases := []struct {
		path string
		want string
	}{
		{path: "/data/page[@url='/about']/@title", want: "About"},
		{path: "page[@url=\"/\"]", want: "Welcome"},
		{path: "page[3]/post[2]", want: "two"},
		{path: "*/post", want: "one"},
		{path: "./page/@url", want: "/"},
		{path: "page[@url='/missing']", want: ""},
		{path: "/other/page", want: ""},
		{path: "page[0]", want: ""},
	}
	for _, tc := range cases {
		if got := root.Value(tc.path); got != tc.want {
			t.Fatalf("Value(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}

	posts := root.Select("page/post")
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if root.First("page[@url='/blog']").Attr("title") != "Blog" {
		t.Fatalf("unexpected first match")
	}
}

func TestNodeStringRoundTrip(t *testing.T) {
	root := &Node{Name: "list"}
	root.SetAttr("kind", "a<b")
	root.Element("item", "1 & 2")
	root.Append(nil, &Node{Name: "item", Text: "3"})

	text := root.String()
	want := `<list kind="a&lt;b"><item>1 &amp; 2</item><item>3</item></list>`
	if diff := cmp.Diff(want, text); diff != "" {
		t.Fatalf("string mismatch (-want +got):\n%s", diff)
	}

	parsed, err := ParseString(text)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(root, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyNode(t *testing.T) {
	empty := Empty()
	if !empty.IsEmpty() {
		t.Fatalf("expected empty document")
	}
	if empty.String() != "" {
		t.Fatalf("empty document should render as empty string")
	}
	var sb strings.Builder
	n, err := empty.WriteTo(&sb)
	if err != nil || n != 0 {
		t.Fatalf("WriteTo = %d, %v", n, err)
	}
	var nilNode *Node
	if nilNode.Value("a") != "" || nilNode.Select("a") != nil {
		t.Fatalf("nil node should select nothing")
	}
}

func TestCloneIsDeep(t *testing.T) {
	root := &Node{Name: "a", Attrs: []Attr{{Name: "k", Value: "v"}}}
	root.Element("b", "text")

	clone := root.Clone()
	clone.SetAttr("k", "changed")
	clone.Children[0].Text = "changed"

	if root.Attr("k") != "v" || root.Children[0].Text != "text" {
		t.Fatalf("clone mutated the original: %s", root.String())
	}
}
