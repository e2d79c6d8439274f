package document

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is an element in a structured document. Text holds the character data
// found directly under the element; mixed content keeps the text ahead of the
// children when serialised.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// Empty returns a document with no root element. Transform programs receive
// it as their input on the first execution of a chain.
func Empty() *Node {
	return &Node{}
}

// NewElement builds a node with the provided name and text.
func NewElement(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

// IsEmpty reports whether the node carries no element, text or children.
func (n *Node) IsEmpty() bool {
	return n == nil || (n.Name == "" && n.Text == "" && len(n.Children) == 0)
}

// Attr returns the attribute value for name, or "" when absent.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	for _, attr := range n.Attrs {
		if attr.Name == name {
			return attr.Value
		}
	}
	return ""
}

// HasAttr reports whether the attribute exists.
func (n *Node) HasAttr(name string) bool {
	if n == nil {
		return false
	}
	for _, attr := range n.Attrs {
		if attr.Name == name {
			return true
		}
	}
	return false
}

// SetAttr adds or replaces an attribute.
func (n *Node) SetAttr(name, value string) *Node {
	for idx := range n.Attrs {
		if n.Attrs[idx].Name == name {
			n.Attrs[idx].Value = value
			return n
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Append adds children, skipping nil values.
func (n *Node) Append(children ...*Node) *Node {
	for _, child := range children {
		if child == nil {
			continue
		}
		n.Children = append(n.Children, child)
	}
	return n
}

// Element appends a text-only child and returns it.
func (n *Node) Element(name, text string) *Node {
	child := NewElement(name, text)
	n.Children = append(n.Children, child)
	return child
}

// InnerText returns the string value of the node: its own text followed by
// the text of every descendant in document order.
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	if len(n.Children) == 0 {
		return n.Text
	}
	var b strings.Builder
	n.collectText(&b)
	return b.String()
}

func (n *Node) collectText(b *strings.Builder) {
	b.WriteString(n.Text)
	for _, child := range n.Children {
		child.collectText(b)
	}
}

// Select returns every node matching path. Paths are relative to n unless
// they start with "/", in which case the first segment must match n itself.
//
// Segments support "*", ".", positional predicates ("item[2]") and
// attribute predicates ("page[@url='/about']").
func (n *Node) Select(path string) []*Node {
	if n == nil {
		return nil
	}
	path = strings.TrimSpace(path)
	if path == "" || path == "." {
		return []*Node{n}
	}

	current := []*Node{n}
	segments := splitPath(path)
	if strings.HasPrefix(path, "/") {
		if len(segments) == 0 {
			return current
		}
		first, ok := parseStep(segments[0])
		if !ok || !first.matches(n, 0) {
			return nil
		}
		segments = segments[1:]
	}

	for _, segment := range segments {
		if strings.HasPrefix(segment, "@") {
			return nil
		}
		step, ok := parseStep(segment)
		if !ok {
			return nil
		}
		if step.name == "." {
			continue
		}
		var next []*Node
		for _, node := range current {
			position := 0
			for _, child := range node.Children {
				if !step.nameMatches(child) {
					continue
				}
				position++
				if step.matches(child, position) {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// First returns the first node matching path or nil.
func (n *Node) First(path string) *Node {
	matches := n.Select(path)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// Value returns the string value of the first node matching path. A trailing
// "@name" segment selects an attribute of that node instead.
func (n *Node) Value(path string) string {
	if n == nil {
		return ""
	}
	path = strings.TrimSpace(path)
	attr := ""
	if idx := strings.LastIndex(path, "@"); idx >= 0 && !strings.Contains(path[idx:], "]") {
		attr = path[idx+1:]
		path = strings.TrimRight(path[:idx], "/")
	}
	target := n
	if path != "" {
		target = n.First(path)
	}
	if target == nil {
		return ""
	}
	if attr != "" {
		return target.Attr(attr)
	}
	return target.InnerText()
}

// Count returns the number of nodes matching path.
func (n *Node) Count(path string) int {
	return len(n.Select(path))
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Text: n.Text}
	if len(n.Attrs) > 0 {
		out.Attrs = append([]Attr(nil), n.Attrs...)
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// String serialises the node as XML. Empty documents render as "".
func (n *Node) String() string {
	var buf bytes.Buffer
	if _, err := n.WriteTo(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// WriteTo serialises the node as XML into w.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	return n.write(w, "")
}

// Indent serialises the node with one element per line, each nesting level
// prefixed by indent.
func (n *Node) Indent(indent string) string {
	var buf bytes.Buffer
	if _, err := n.write(&buf, indent); err != nil {
		return ""
	}
	return buf.String()
}

func (n *Node) write(w io.Writer, indent string) (int64, error) {
	if n == nil || n.Name == "" {
		return 0, nil
	}
	cw := &countingWriter{w: w}
	enc := xml.NewEncoder(cw)
	if indent != "" {
		enc.Indent("", indent)
	}
	if err := n.encode(enc); err != nil {
		return cw.n, err
	}
	if err := enc.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, nil
}

func (n *Node) encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, attr := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attr.Name}, Value: attr.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, child := range n.Children {
		if child == nil || child.Name == "" {
			continue
		}
		if err := child.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	written, err := c.w.Write(p)
	c.n += int64(written)
	return written, err
}

type step struct {
	name      string
	position  int
	attrName  string
	attrValue string
	hasAttr   bool
}

func (s step) nameMatches(node *Node) bool {
	return s.name == "*" || s.name == node.Name
}

func (s step) matches(node *Node, position int) bool {
	if !s.nameMatches(node) {
		return false
	}
	if s.position > 0 && position != 0 && s.position != position {
		return false
	}
	if s.hasAttr && node.Attr(s.attrName) != s.attrValue {
		return false
	}
	return true
}

func splitPath(path string) []string {
	var (
		out   []string
		buf   strings.Builder
		depth int
		quote rune
	)
	flush := func() {
		part := strings.TrimSpace(buf.String())
		buf.Reset()
		if part != "" {
			out = append(out, part)
		}
	}
	for _, r := range path {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			if depth > 0 {
				quote = r
			}
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case r == '/' && depth == 0:
			flush()
			continue
		}
		buf.WriteRune(r)
	}
	flush()
	return out
}

func parseStep(segment string) (step, bool) {
	open := strings.Index(segment, "[")
	if open < 0 {
		return step{name: segment}, segment != ""
	}
	if !strings.HasSuffix(segment, "]") {
		return step{}, false
	}
	s := step{name: strings.TrimSpace(segment[:open])}
	predicate := strings.TrimSpace(segment[open+1 : len(segment)-1])
	if strings.HasPrefix(predicate, "@") {
		name, value, ok := strings.Cut(predicate[1:], "=")
		if !ok {
			return step{}, false
		}
		s.hasAttr = true
		s.attrName = strings.TrimSpace(name)
		s.attrValue = strings.Trim(strings.TrimSpace(value), `'"`)
		return s, s.name != ""
	}
	position, err := strconv.Atoi(predicate)
	if err != nil || position < 1 {
		return step{}, false
	}
	s.position = position
	return s, s.name != ""
}
