package transform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"
)

// Output methods.
const (
	MethodXML  = "xml"
	MethodHTML = "html"
	MethodText = "text"
)

// Output holds the declared output settings of a program.
type Output struct {
	Method             string `yaml:"method"`
	MediaType          string `yaml:"media-type"`
	Encoding           string `yaml:"encoding"`
	Indent             bool   `yaml:"indent"`
	OmitXMLDeclaration bool   `yaml:"omit-xml-declaration"`
}

// Header is the decoded front matter of a program.
type Header struct {
	Output     Output            `yaml:"output"`
	Namespaces map[string]string `yaml:"namespaces"`
	Required   []string          `yaml:"required"`
}

var (
	frontMatterFence = []byte("---")
	identifier       = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// splitFrontMatter separates the YAML header from the template body. Sources
// without a leading fence have an empty header.
func splitFrontMatter(src []byte) (Header, []byte, error) {
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))

	var header Header
	first, rest, _ := cutLine(src)
	if !bytes.Equal(bytes.TrimSpace(first), frontMatterFence) {
		err := header.normalize()
		return header, src, err
	}

	var yamlPart []byte
	for {
		line, next, ok := cutLine(rest)
		if bytes.Equal(bytes.TrimSpace(line), frontMatterFence) {
			rest = next
			break
		}
		if !ok {
			return header, nil, errors.New("front matter is not terminated")
		}
		yamlPart = append(yamlPart, line...)
		yamlPart = append(yamlPart, '\n')
		rest = next
	}

	if len(bytes.TrimSpace(yamlPart)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(yamlPart))
		dec.KnownFields(true)
		if err := dec.Decode(&header); err != nil && !errors.Is(err, io.EOF) {
			return header, nil, fmt.Errorf("decode front matter: %w", err)
		}
	}
	if err := header.normalize(); err != nil {
		return header, nil, err
	}
	return header, rest, nil
}

func cutLine(src []byte) (line, rest []byte, found bool) {
	line, rest, found = bytes.Cut(src, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, found
}

func (h *Header) normalize() error {
	h.Output.Method = strings.ToLower(strings.TrimSpace(h.Output.Method))
	switch h.Output.Method {
	case "":
		h.Output.Method = MethodHTML
	case MethodXML, MethodHTML, MethodText:
	default:
		return fmt.Errorf("unknown output method %q", h.Output.Method)
	}
	h.Output.MediaType = strings.TrimSpace(h.Output.MediaType)
	h.Output.Encoding = strings.TrimSpace(h.Output.Encoding)
	if h.Output.Encoding == "" {
		h.Output.Encoding = "utf-8"
	}
	if _, err := htmlindex.Get(h.Output.Encoding); err != nil {
		return fmt.Errorf("unknown output encoding %q", h.Output.Encoding)
	}

	for prefix, namespace := range h.Namespaces {
		if !identifier.MatchString(prefix) {
			return fmt.Errorf("namespace prefix %q is not an identifier", prefix)
		}
		if strings.TrimSpace(namespace) == "" {
			return fmt.Errorf("namespace prefix %q has no identifier", prefix)
		}
		if prefix == InputParam || prefix == NamespacesParam {
			return fmt.Errorf("namespace prefix %q is reserved", prefix)
		}
	}
	for idx, name := range h.Required {
		h.Required[idx] = strings.TrimSpace(name)
	}
	return nil
}
