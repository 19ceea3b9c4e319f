package metadata

import "iter"

// OrderedMap is a read-only, name-keyed collection that remembers insertion
// order. The zero value is empty.
type OrderedMap[V any] struct {
    keys []string
    m    map[string]V
}

// Len returns the number of entries.
func (o OrderedMap[V]) Len() int { return len(o.keys) }

// Get returns the entry stored under name.
func (o OrderedMap[V]) Get(name string) (V, bool) {
    v, ok := o.m[name]
    return v, ok
}

// Has reports whether name is present.
func (o OrderedMap[V]) Has(name string) bool {
    _, ok := o.m[name]
    return ok
}

// Keys returns the names in insertion order.
func (o OrderedMap[V]) Keys() []string { return append([]string(nil), o.keys...) }

// Values returns the entries in insertion order.
func (o OrderedMap[V]) Values() []V {
    out := make([]V, 0, len(o.keys))
    for _, k := range o.keys { out = append(out, o.m[k]) }
    return out
}

// All iterates over the entries in insertion order.
func (o OrderedMap[V]) All() iter.Seq2[string, V] {
    return func(yield func(string, V) bool) {
        for _, k := range o.keys {
            if !yield(k, o.m[k]) { return }
        }
    }
}

// orderedBuilder is the mutable counterpart of OrderedMap. A replaced entry
// keeps its original position.
type orderedBuilder[V any] struct {
    keys []string
    m    map[string]V
}

func (b *orderedBuilder[V]) put(name string, v V) {
    if b.m == nil { b.m = make(map[string]V) }
    if _, ok := b.m[name]; !ok { b.keys = append(b.keys, name) }
    b.m[name] = v
}

func (b *orderedBuilder[V]) get(name string) (V, bool) {
    v, ok := b.m[name]
    return v, ok
}

func (b *orderedBuilder[V]) remove(name string) {
    if _, ok := b.m[name]; !ok { return }
    delete(b.m, name)
    for i, k := range b.keys {
        if k == name {
            b.keys = append(b.keys[:i], b.keys[i+1:]...)
            return
        }
    }
}

func (b *orderedBuilder[V]) load(o OrderedMap[V]) {
    for _, k := range o.keys { b.put(k, o.m[k]) }
}

// freeze copies the accumulated entries into an OrderedMap that no later
// builder call can reach.
func (b *orderedBuilder[V]) freeze() OrderedMap[V] {
    if len(b.keys) == 0 { return OrderedMap[V]{} }
    o := OrderedMap[V]{keys: append([]string(nil), b.keys...), m: make(map[string]V, len(b.keys))}
    for _, k := range b.keys { o.m[k] = b.m[k] }
    return o
}
