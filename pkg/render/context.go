package render

import (
	"github.com/elliotchance/orderedmap/v2"
)

// Data is an insertion-ordered key/value collection used for view data and
// temp data. A nil *Data behaves as an empty collection.
type Data struct {
	entries *orderedmap.OrderedMap[string, any]
}

// NewData returns an empty collection.
func NewData() *Data {
	return &Data{entries: orderedmap.NewOrderedMap[string, any]()}
}

// DataOf builds a collection from pairs of key and value. A trailing key
// without a value is ignored.
func DataOf(pairs ...any) *Data {
	d := NewData()
	for idx := 0; idx+1 < len(pairs); idx += 2 {
		if key, ok := pairs[idx].(string); ok {
			d.Set(key, pairs[idx+1])
		}
	}
	return d
}

// Set stores value under key. Existing keys keep their position.
func (d *Data) Set(key string, value any) *Data {
	if d.entries == nil {
		d.entries = orderedmap.NewOrderedMap[string, any]()
	}
	d.entries.Set(key, value)
	return d
}

// Get returns the value stored under key.
func (d *Data) Get(key string) (any, bool) {
	if d == nil || d.entries == nil {
		return nil, false
	}
	return d.entries.Get(key)
}

// Delete removes key.
func (d *Data) Delete(key string) {
	if d == nil || d.entries == nil {
		return
	}
	d.entries.Delete(key)
}

// Keys returns the keys in insertion order.
func (d *Data) Keys() []string {
	if d == nil || d.entries == nil {
		return nil
	}
	return d.entries.Keys()
}

// Len reports the number of entries.
func (d *Data) Len() int {
	if d == nil || d.entries == nil {
		return 0
	}
	return d.entries.Len()
}

// Range calls fn for each entry in order until fn returns false.
func (d *Data) Range(fn func(key string, value any) bool) {
	if d == nil || d.entries == nil {
		return
	}
	for el := d.entries.Front(); el != nil; el = el.Next() {
		if !fn(el.Key, el.Value) {
			return
		}
	}
}

// Route identifies the controller and action a view renders for.
type Route struct {
	Controller string
	Action     string
	Params     map[string]string
}

// RequestInfo carries the parts of the inbound request views may use.
type RequestInfo struct {
	Method string
	Path   string
	Query  map[string][]string
	Host   string
	Header map[string][]string
}

// ViewContext is the per-render state handed to views, helpers and
// extension constructors.
type ViewContext struct {
	Model    any
	ViewData *Data
	TempData *Data
	// Errors holds validation messages keyed by dotted field path. Messages
	// under the empty key apply to the whole form.
	Errors ModelState
	// Values pre-populates form fields rendered through the helper, keyed by
	// field name.
	Values map[string]any
	// Hidden holds hidden inputs emitted by the helper's HiddenFields.
	Hidden  map[string]string
	Route   Route
	Request RequestInfo
}

// NewViewContext returns a context with empty view and temp data.
func NewViewContext(model any) *ViewContext {
	return &ViewContext{
		Model:    model,
		ViewData: NewData(),
		TempData: NewData(),
		Errors:   ModelState{},
		Values:   map[string]any{},
		Hidden:   map[string]string{},
	}
}

// AddModelError records a validation message for key.
func (vc *ViewContext) AddModelError(key, message string) {
	if vc.Errors == nil {
		vc.Errors = ModelState{}
	}
	vc.Errors.Add(key, message)
}

// forPartial returns the context a nested view renders with: the same view
// state and route with a different model.
func (vc *ViewContext) forPartial(model any, hasModel bool) *ViewContext {
	child := *vc
	if hasModel {
		child.Model = model
	}
	return &child
}
