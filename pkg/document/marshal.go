package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Serializer converts values of one concrete type to and from documents.
// Deserialize receives a pointer to the destination value.
type Serializer interface {
	Serialize(v any) (*Node, error)
	Deserialize(n *Node, target any) error
}

// SerializerFuncs adapts a pair of functions to Serializer. A nil
// DeserializeFunc makes the type write-only.
type SerializerFuncs struct {
	SerializeFunc   func(v any) (*Node, error)
	DeserializeFunc func(n *Node, target any) error
}

func (f SerializerFuncs) Serialize(v any) (*Node, error) {
	if f.SerializeFunc == nil {
		return nil, errors.New("document: serializer has no serialize func")
	}
	return f.SerializeFunc(v)
}

func (f SerializerFuncs) Deserialize(n *Node, target any) error {
	if f.DeserializeFunc == nil {
		return errors.New("document: serializer has no deserialize func")
	}
	return f.DeserializeFunc(n, target)
}

// Marshaler is implemented by types that declare their own document shape.
type Marshaler interface {
	MarshalDocument() (*Node, error)
}

// Unmarshaler is implemented by types that can populate themselves from a
// document.
type Unmarshaler interface {
	UnmarshalDocument(n *Node) error
}

var (
	nodeType        = reflect.TypeOf((*Node)(nil))
	xmlNameType     = reflect.TypeOf(xml.Name{})
	unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

// Marshaller projects Go values into documents and back. Lookups consult the
// override table for the exact dynamic type first, then the Marshaler and
// Unmarshaler contract, then the encoding/xml conventions.
//
// The zero value is ready to use and safe for concurrent use.
type Marshaller struct {
	mu        sync.RWMutex
	overrides map[reflect.Type]Serializer
}

// NewMarshaller returns an empty Marshaller.
func NewMarshaller() *Marshaller {
	return &Marshaller{overrides: make(map[reflect.Type]Serializer)}
}

// RegisterOverride installs s for values whose dynamic type is exactly t.
// Pointer and element types are distinct keys. Registering again replaces
// the previous serializer.
func (m *Marshaller) RegisterOverride(t reflect.Type, s Serializer) error {
	if t == nil {
		return errors.New("document: override type is required")
	}
	if s == nil {
		return fmt.Errorf("document: serializer for %s is required", t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.overrides == nil {
		m.overrides = make(map[reflect.Type]Serializer)
	}
	m.overrides[t] = s
	return nil
}

// Register installs s as the override for T.
func Register[T any](m *Marshaller, s Serializer) error {
	return m.RegisterOverride(reflect.TypeOf((*T)(nil)).Elem(), s)
}

// HasOverride reports whether t has a registered serializer.
func (m *Marshaller) HasOverride(t reflect.Type) bool {
	_, ok := m.override(t)
	return ok
}

func (m *Marshaller) override(t reflect.Type) (Serializer, bool) {
	if m == nil || t == nil {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.overrides[t]
	return s, ok
}

// ToDocument converts v into a document. Nil values, including typed nil
// pointers, produce (nil, nil) so callers can omit them.
func (m *Marshaller) ToDocument(v any) (*Node, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if isNilValue(rv) {
		return nil, nil
	}
	if node, ok := v.(*Node); ok {
		return node, nil
	}
	if s, ok := m.override(rv.Type()); ok {
		node, err := s.Serialize(v)
		if err != nil {
			return nil, fmt.Errorf("document: serialize %s: %w", rv.Type(), err)
		}
		return node, nil
	}
	if marshaler, ok := v.(Marshaler); ok {
		node, err := marshaler.MarshalDocument()
		if err != nil {
			return nil, fmt.Errorf("document: marshal %s: %w", rv.Type(), err)
		}
		return node, nil
	}
	return m.project(rv)
}

func (m *Marshaller) project(rv reflect.Value) (*Node, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	t := rv.Type()
	switch {
	case isScalarKind(t.Kind()):
		return NewElement(typeName(t), scalarText(rv)), nil
	case isBytes(t):
		return NewElement(typeName(t), string(rv.Bytes())), nil
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		return m.projectSequence(rv)
	case t.Kind() == reflect.Map:
		return m.projectMap(rv)
	case t.Kind() == reflect.Struct:
		raw, err := xml.Marshal(rv.Interface())
		if err != nil {
			return nil, fmt.Errorf("document: marshal %s: %w", t, err)
		}
		node, err := ParseString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("document: marshal %s: %w", t, err)
		}
		return node, nil
	default:
		return nil, fmt.Errorf("document: unsupported type %s", t)
	}
}

func (m *Marshaller) projectSequence(rv reflect.Value) (*Node, error) {
	root := &Node{Name: ArrayName(rv.Type().Elem())}
	for idx := 0; idx < rv.Len(); idx++ {
		item := rv.Index(idx)
		if isNilValue(item) {
			continue
		}
		child, err := m.ToDocument(item.Interface())
		if err != nil {
			return nil, err
		}
		root.Append(child)
	}
	return root, nil
}

func (m *Marshaller) projectMap(rv reflect.Value) (*Node, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("document: unsupported map key type %s", rv.Type().Key())
	}
	keys := make([]string, 0, rv.Len())
	for _, key := range rv.MapKeys() {
		keys = append(keys, key.String())
	}
	sort.Strings(keys)

	root := &Node{Name: "map"}
	for _, key := range keys {
		value := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if isNilValue(value) {
			continue
		}
		elem := value
		for elem.Kind() == reflect.Interface || elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if isScalarKind(elem.Kind()) {
			root.Element(key, scalarText(elem))
			continue
		}
		child, err := m.ToDocument(value.Interface())
		if err != nil {
			return nil, err
		}
		if child == nil {
			continue
		}
		child = child.Clone()
		child.Name = key
		root.Append(child)
	}
	return root, nil
}

// ToObject converts a document back into a value of type T using the same
// override, Unmarshaler and encoding/xml order as ToDocument. Shape
// mismatches are reported as *DeserializationError.
func ToObject[T any](m *Marshaller, n *Node) (T, error) {
	var out T
	t := reflect.TypeOf((*T)(nil)).Elem()
	if n.IsEmpty() {
		return out, &DeserializationError{Type: t, Err: ErrEmptyDocument}
	}
	if err := m.decode(n, reflect.ValueOf(&out).Elem()); err != nil {
		var derr *DeserializationError
		if errors.As(err, &derr) {
			return out, err
		}
		return out, &DeserializationError{Type: t, Err: err}
	}
	return out, nil
}

func (m *Marshaller) decode(n *Node, v reflect.Value) error {
	t := v.Type()
	if s, ok := m.override(t); ok {
		return s.Deserialize(n, v.Addr().Interface())
	}
	if t == nodeType {
		v.Set(reflect.ValueOf(n.Clone()))
		return nil
	}
	if t.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return m.decode(n, v.Elem())
	}
	if reflect.PointerTo(t).Implements(unmarshalerType) {
		return v.Addr().Interface().(Unmarshaler).UnmarshalDocument(n)
	}

	switch {
	case t.Kind() == reflect.Interface:
		if t.NumMethod() != 0 {
			return fmt.Errorf("cannot decode into interface %s", t)
		}
		v.Set(reflect.ValueOf(decodeAny(n)))
		return nil
	case isScalarKind(t.Kind()):
		return setScalar(v, n.InnerText())
	case isBytes(t):
		v.SetBytes([]byte(n.InnerText()))
		return nil
	case t.Kind() == reflect.Slice:
		if want := ArrayName(t.Elem()); n.Name != want {
			return fmt.Errorf("root element %q, want %q", n.Name, want)
		}
		out := reflect.MakeSlice(t, 0, len(n.Children))
		for _, child := range n.Children {
			item := reflect.New(t.Elem()).Elem()
			if err := m.decode(child, item); err != nil {
				return err
			}
			out = reflect.Append(out, item)
		}
		v.Set(out)
		return nil
	case t.Kind() == reflect.Map:
		if t.Key().Kind() != reflect.String {
			return fmt.Errorf("unsupported map key type %s", t.Key())
		}
		out := reflect.MakeMapWithSize(t, len(n.Children))
		for _, child := range n.Children {
			item := reflect.New(t.Elem()).Elem()
			if err := m.decode(m.entryValue(child, t.Elem()), item); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(child.Name).Convert(t.Key()), item)
		}
		v.Set(out)
		return nil
	case t.Kind() == reflect.Struct:
		if want := RootName(t); n.Name != want {
			return fmt.Errorf("root element %q, want %q", n.Name, want)
		}
		return xml.Unmarshal([]byte(n.String()), v.Addr().Interface())
	default:
		return fmt.Errorf("unsupported type %s", t)
	}
}

// entryValue undoes the key renaming projectMap applies to non-scalar
// values, so the element carries the root name elem decodes from. Types
// with an override or their own Unmarshaler see the element as projected.
func (m *Marshaller) entryValue(n *Node, elem reflect.Type) *Node {
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if _, ok := m.override(elem); ok || reflect.PointerTo(elem).Implements(unmarshalerType) {
		return n
	}
	var name string
	switch {
	case elem.Kind() == reflect.Struct && elem != nodeType.Elem():
		name = RootName(elem)
	case elem.Kind() == reflect.Slice && !isBytes(elem):
		name = ArrayName(elem.Elem())
	default:
		return n
	}
	entry := n.Clone()
	entry.Name = name
	return entry
}

// decodeAny maps leaf elements to strings and branch elements to
// map[string]any keyed by child name. Repeated names keep the last value.
func decodeAny(n *Node) any {
	if len(n.Children) == 0 {
		return n.Text
	}
	out := make(map[string]any, len(n.Children))
	for _, child := range n.Children {
		out[child.Name] = decodeAny(child)
	}
	return out
}

// RootName returns the element name the generic projection uses for t.
func RootName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		if field, ok := t.FieldByName("XMLName"); ok && field.Type == xmlNameType {
			tag, _, _ := strings.Cut(field.Tag.Get("xml"), ",")
			if idx := strings.LastIndex(tag, " "); idx >= 0 {
				tag = tag[idx+1:]
			}
			if tag != "" {
				return tag
			}
		}
	}
	return typeName(t)
}

// ArrayName returns the root element name for a sequence of elem values,
// for example "ArrayOfInt" or "ArrayOfPerson".
func ArrayName(elem reflect.Type) string {
	return "ArrayOf" + upperFirst(RootName(elem))
}

// IsScalar reports whether v is a boolean, number or string. Scalars are
// passed to programs as-is instead of being projected into a document.
func IsScalar(v any) bool {
	if v == nil {
		return false
	}
	return isScalarKind(reflect.TypeOf(v).Kind())
}

func typeName(t reflect.Type) string {
	if name := t.Name(); name != "" {
		return name
	}
	switch t.Kind() {
	case reflect.Interface:
		return "anyType"
	case reflect.Slice, reflect.Array:
		return ArrayName(t.Elem())
	case reflect.Map:
		return "map"
	default:
		return t.Kind().String()
	}
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func isNilValue(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isBytes(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isScalarKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func scalarText(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}
	return fmt.Sprint(rv.Interface())
}

func setScalar(v reflect.Value, raw string) error {
	text := strings.TrimSpace(raw)
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		parsed, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		v.SetBool(parsed)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		parsed, err := strconv.ParseInt(text, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(parsed)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		parsed, err := strconv.ParseUint(text, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(parsed)
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(text, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(parsed)
	default:
		return fmt.Errorf("unsupported scalar %s", v.Type())
	}
	return nil
}
