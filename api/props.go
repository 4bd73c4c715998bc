package api

import (
	"reflect"
	"sort"

	clone "github.com/huandu/go-clone"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Prop is one property name/value pair.
type Prop struct {
	Key   string
	Value any
}

// Props is an immutable, ordered mapping of property names to values. The
// engine never interprets individual properties; it only replaces or merges
// the mapping as a whole.
//
// Values are deep-copied on the way in and on the way out, so no caller can
// reach the storage of a Props held by a snapshot. Copies keep their dynamic
// types: an int stays an int and a struct stays that struct. The zero value is
// an empty mapping.
type Props struct {
	m *orderedmap.OrderedMap[string, any]
	// Keeps Props from being pointer-shaped; goccy encodes a nil
	// pointer-shaped value as null without calling MarshalJSON.
	_ struct{}
}

// PropsOf builds Props from pairs. Later pairs with a repeated key overwrite
// earlier ones but keep the first position.
func PropsOf(pairs ...Prop) Props {
	if len(pairs) == 0 {
		return Props{}
	}
	m := orderedmap.New[string, any](len(pairs))
	for _, p := range pairs {
		m.Set(p.Key, clone.Clone(p.Value))
	}
	return Props{m: m}
}

// PropsFromMap builds Props from a plain map. Go maps are unordered, so keys
// are taken in sorted order.
func PropsFromMap(src map[string]any) Props {
	if len(src) == 0 {
		return Props{}
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Prop, len(keys))
	for i, k := range keys {
		pairs[i] = Prop{Key: k, Value: src[k]}
	}
	return PropsOf(pairs...)
}

// Len returns the number of properties.
func (p Props) Len() int {
	if p.m == nil {
		return 0
	}
	return p.m.Len()
}

// Get returns a copy of the value stored under key.
func (p Props) Get(key string) (any, bool) {
	if p.m == nil {
		return nil, false
	}
	v, ok := p.m.Get(key)
	if !ok {
		return nil, false
	}
	return clone.Clone(v), true
}

// Keys returns the property names in order.
func (p Props) Keys() []string {
	keys := make([]string, 0, p.Len())
	p.each(func(k string, _ any) {
		keys = append(keys, k)
	})
	return keys
}

// Pairs returns copies of all pairs in order.
func (p Props) Pairs() []Prop {
	pairs := make([]Prop, 0, p.Len())
	p.each(func(k string, v any) {
		pairs = append(pairs, Prop{Key: k, Value: clone.Clone(v)})
	})
	return pairs
}

// Merge returns a new mapping in which keys present in patch overwrite the
// receiver's values in place and new keys are appended. Keys absent from
// patch are preserved.
func (p Props) Merge(patch Props) Props {
	if patch.Len() == 0 {
		return p
	}
	m := orderedmap.New[string, any](p.Len() + patch.Len())
	p.each(func(k string, v any) {
		m.Set(k, v)
	})
	patch.each(func(k string, v any) {
		m.Set(k, clone.Clone(v))
	})
	return Props{m: m}
}

// Clone returns a deep copy that shares no mutable structure with p.
func (p Props) Clone() Props {
	if p.Len() == 0 {
		return Props{}
	}
	m := orderedmap.New[string, any](p.Len())
	p.each(func(k string, v any) {
		m.Set(k, clone.Clone(v))
	})
	return Props{m: m}
}

// ToMap returns a deep copy as a plain map.
func (p Props) ToMap() map[string]any {
	out := make(map[string]any, p.Len())
	p.each(func(k string, v any) {
		out[k] = clone.Clone(v)
	})
	return out
}

// Equal reports whether both mappings hold the same keys in the same order
// with deeply equal values.
func (p Props) Equal(o Props) bool {
	if p.Len() != o.Len() {
		return false
	}
	if p.Len() == 0 {
		return true
	}
	a, b := p.m.Oldest(), o.m.Oldest()
	for ; a != nil && b != nil; a, b = a.Next(), b.Next() {
		if a.Key != b.Key || !reflect.DeepEqual(a.Value, b.Value) {
			return false
		}
	}
	return a == nil && b == nil
}

// MarshalJSON encodes the mapping as a JSON object preserving key order.
func (p Props) MarshalJSON() ([]byte, error) {
	if p.m == nil {
		return []byte("{}"), nil
	}
	return p.m.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
func (p *Props) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	m := orderedmap.New[string, any]()
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	p.m = m
	return nil
}

func (p Props) each(fn func(k string, v any)) {
	if p.m == nil {
		return
	}
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}
