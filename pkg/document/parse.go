package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// ParseString parses XML text into a Node tree. The text is already
// decoded, so an encoding named in its XML declaration is not applied.
func ParseString(text string) (*Node, error) {
	return parse(strings.NewReader(text), decodedCharset)
}

// Parse reads a well-formed XML document into a Node tree. Input in a
// non UTF-8 encoding is transcoded according to its XML declaration. HTML
// character entities are accepted; namespace declarations are dropped and
// prefixed names keep only their local part.
func Parse(r io.Reader) (*Node, error) {
	return parse(r, CharsetReader)
}

// CharsetReader decodes input in the named encoding to UTF-8. Labels are
// resolved like HTML charset labels.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func decodedCharset(_ string, input io.Reader) (io.Reader, error) {
	return input, nil
}

func parse(r io.Reader, charset func(string, io.Reader) (io.Reader, error)) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document: parse: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			for _, attr := range t.Attr {
				if isNamespaceDecl(attr) {
					continue
				}
				node.Attrs = append(node.Attrs, Attr{Name: attr.Name.Local, Value: attr.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("document: parse: multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				closed := stack[len(stack)-1]
				if len(closed.Children) > 0 && strings.TrimSpace(closed.Text) == "" {
					closed.Text = ""
				}
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, errors.New("document: parse: text outside the root element")
				}
				continue
			}
			current := stack[len(stack)-1]
			current.Text += string(t)
		}
	}

	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

func isNamespaceDecl(attr xml.Attr) bool {
	return attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns")
}
