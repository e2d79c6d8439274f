package document

import (
	"encoding/xml"
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type person struct {
	Name    string   `xml:"name"`
	Age     int      `xml:"age,attr"`
	Tags    []string `xml:"tag"`
	Address address  `xml:"address"`
}

type address struct {
	City string `xml:"city"`
}

type renamed struct {
	XMLName xml.Name `xml:"customer"`
	ID      string   `xml:"id,attr"`
}

type badge struct {
	Label string
}

func (b badge) MarshalDocument() (*Node, error) {
	node := &Node{Name: "badge"}
	node.SetAttr("label", b.Label)
	return node, nil
}

func (b *badge) UnmarshalDocument(n *Node) error {
	b.Label = n.Attr("label")
	return nil
}

func TestToDocumentProjectsStructs(t *testing.T) {
	m := NewMarshaller()
	doc, err := m.ToDocument(person{Name: "Ada", Age: 36, Tags: []string{"math", "code"}, Address: address{City: "London"}})
	if err != nil {
		t.Fatalf("to document: %v", err)
	}

	want := `<person age="36"><name>Ada</name><tag>math</tag><tag>code</tag><address><city>London</city></address></person>`
	if diff := cmp.Diff(want, doc.String()); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
	if doc.Value("address/city") != "London" {
		t.Fatalf("nested value not reachable: %s", doc.String())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m := NewMarshaller()
	original := person{Name: "Grace", Age: 85, Tags: []string{"navy"}, Address: address{City: "Arlington"}}

	doc, err := m.ToDocument(original)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	got, err := ToObject[person](m, doc)
	if err != nil {
		t.Fatalf("to object: %v", err)
	}
	if diff := cmp.Diff(original, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	ptr, err := ToObject[*person](m, doc)
	if err != nil {
		t.Fatalf("to pointer object: %v", err)
	}
	if diff := cmp.Diff(original, *ptr); diff != "" {
		t.Fatalf("pointer round trip mismatch (-want +got):\n%s", diff)
	}

	byKey := map[string]person{"ada": {Name: "Ada", Age: 36, Tags: []string{"math"}, Address: address{City: "London"}}}
	doc, err = m.ToDocument(byKey)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if doc.Value("ada/address/city") != "London" {
		t.Fatalf("map entry not reachable by key: %s", doc.String())
	}
	gotByKey, err := ToObject[map[string]person](m, doc)
	if err != nil {
		t.Fatalf("struct map round trip: %v", err)
	}
	if diff := cmp.Diff(byKey, gotByKey); diff != "" {
		t.Fatalf("struct map round trip mismatch (-want +got):\n%s", diff)
	}

	lists := map[string][]int{"xs": {1, 2}}
	doc, err = m.ToDocument(lists)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	gotLists, err := ToObject[map[string][]int](m, doc)
	if err != nil {
		t.Fatalf("sequence map round trip: %v", err)
	}
	if diff := cmp.Diff(lists, gotLists); diff != "" {
		t.Fatalf("sequence map round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalSequencesAndMaps(t *testing.T) {
	m := NewMarshaller()

	people := []person{{Name: "a"}, {Name: "b"}}
	doc, err := m.ToDocument(people)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if doc.Name != "ArrayOfPerson" || doc.Count("person") != 2 {
		t.Fatalf("unexpected sequence document: %s", doc.String())
	}
	back, err := ToObject[[]person](m, doc)
	if err != nil {
		t.Fatalf("to object: %v", err)
	}
	if diff := cmp.Diff(people, back); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}

	ints, err := m.ToDocument([]int{1, 2})
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if diff := cmp.Diff(`<ArrayOfInt><int>1</int><int>2</int></ArrayOfInt>`, ints.String()); diff != "" {
		t.Fatalf("int sequence mismatch (-want +got):\n%s", diff)
	}

	model := map[string]any{"count": 3, "title": "List", "nested": map[string]any{"ok": true}, "skip": nil}
	mapped, err := m.ToDocument(model)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	want := `<map><count>3</count><nested><ok>true</ok></nested><title>List</title></map>`
	if diff := cmp.Diff(want, mapped.String()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
	decoded, err := ToObject[map[string]any](m, mapped)
	if err != nil {
		t.Fatalf("to object: %v", err)
	}
	wantMap := map[string]any{"count": "3", "title": "List", "nested": map[string]any{"ok": "true"}}
	if diff := cmp.Diff(wantMap, decoded); diff != "" {
		t.Fatalf("decoded map mismatch (-want +got):\n%s", diff)
	}
}

func TestOverrideTakesPrecedence(t *testing.T) {
	m := NewMarshaller()
	value := person{Name: "Ada"}

	generic, err := m.ToDocument(value)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if generic.Name != "person" {
		t.Fatalf("expected generic projection first, got %s", generic.Name)
	}

	err = Register[person](m, SerializerFuncs{
		SerializeFunc: func(v any) (*Node, error) {
			return NewElement("who", v.(person).Name), nil
		},
		DeserializeFunc: func(n *Node, target any) error {
			target.(*person).Name = n.Text
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	doc, err := m.ToDocument(value)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if diff := cmp.Diff(`<who>Ada</who>`, doc.String()); diff != "" {
		t.Fatalf("override not used (-want +got):\n%s", diff)
	}
	back, err := ToObject[person](m, doc)
	if err != nil || back.Name != "Ada" {
		t.Fatalf("override deserialize = %+v, %v", back, err)
	}

	// exact type only: the pointer type still uses the generic projection
	ptrDoc, err := m.ToDocument(&value)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if ptrDoc.Name != "person" {
		t.Fatalf("pointer type should not match the override, got %s", ptrDoc.String())
	}
	if !m.HasOverride(reflect.TypeOf(value)) || m.HasOverride(reflect.TypeOf(&value)) {
		t.Fatalf("unexpected override table state")
	}
}

func TestMarshalerContract(t *testing.T) {
	m := NewMarshaller()
	doc, err := m.ToDocument(badge{Label: "gold"})
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if diff := cmp.Diff(`<badge label="gold"></badge>`, doc.String()); diff != "" {
		t.Fatalf("marshaler mismatch (-want +got):\n%s", diff)
	}
	back, err := ToObject[badge](m, doc)
	if err != nil || back.Label != "gold" {
		t.Fatalf("unmarshaler = %+v, %v", back, err)
	}
}

func TestToDocumentNilAndNodes(t *testing.T) {
	m := NewMarshaller()
	var nilPerson *person
	for _, value := range []any{nil, nilPerson} {
		doc, err := m.ToDocument(value)
		if err != nil || doc != nil {
			t.Fatalf("ToDocument(%#v) = %v, %v; want nil, nil", value, doc, err)
		}
	}

	node := NewElement("x", "y")
	doc, err := m.ToDocument(node)
	if err != nil || doc != node {
		t.Fatalf("nodes should pass through unchanged")
	}
}

func TestToObjectShapeMismatch(t *testing.T) {
	m := NewMarshaller()

	cases := map[string]*Node{
		"wrong root":     NewElement("animal", ""),
		"bad attribute":  (&Node{Name: "person"}).SetAttr("age", "old"),
		"empty document": Empty(),
	}
	for name, node := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ToObject[person](m, node)
			var derr *DeserializationError
			if !errors.As(err, &derr) {
				t.Fatalf("expected DeserializationError, got %v", err)
			}
			if derr.Type != reflect.TypeOf(person{}) {
				t.Fatalf("error type = %v", derr.Type)
			}
		})
	}

	if _, err := ToObject[[]person](m, NewElement("ArrayOfAnimal", "")); err == nil {
		t.Fatalf("expected sequence root mismatch")
	}
	if _, err := ToObject[int](m, NewElement("int", "nope")); err == nil {
		t.Fatalf("expected scalar parse error")
	}
}

func TestRootNameHonoursXMLName(t *testing.T) {
	m := NewMarshaller()
	doc, err := m.ToDocument(renamed{ID: "7"})
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if doc.Name != "customer" || RootName(reflect.TypeOf(renamed{})) != "customer" {
		t.Fatalf("unexpected root %q", doc.Name)
	}
	back, err := ToObject[renamed](m, doc)
	if err != nil || back.ID != "7" {
		t.Fatalf("to object = %+v, %v", back, err)
	}
}

func TestIsScalar(t *testing.T) {
	for _, value := range []any{1, "a", true, 2.5, uint8(3)} {
		if !IsScalar(value) {
			t.Fatalf("IsScalar(%#v) = false", value)
		}
	}
	for _, value := range []any{nil, person{}, []int{1}, map[string]any{}} {
		if IsScalar(value) {
			t.Fatalf("IsScalar(%#v) = true", value)
		}
	}
}
