package settings

import (
    "fmt"
    "sort"
    "strconv"
    "strings"
)

// Settings is an immutable, ordered view over flat dotted-key settings
// (e.g. "index.number_of_shards" -> "1"). Keys keep the order in which they
// were first written to the Builder that produced them. A Settings value is
// safe for concurrent readers.
type Settings struct {
    keys   []string
    values map[string]string
}

// Empty returns a Settings without entries.
func Empty() Settings { return Settings{} }

// Get returns the raw string value stored for key.
func (s Settings) Get(key string) (string, bool) {
    v, ok := s.values[key]
    return v, ok
}

// GetOr returns the value for key or def when the key is absent.
func (s Settings) GetOr(key, def string) string {
    if v, ok := s.values[key]; ok { return v }
    return def
}

// GetInt parses the value for key as a base-10 integer. Absent keys yield
// def; malformed values yield an error naming the key.
func (s Settings) GetInt(key string, def int) (int, error) {
    v, ok := s.values[key]
    if !ok { return def, nil }
    n, err := strconv.Atoi(strings.TrimSpace(v))
    if err != nil {
        return def, fmt.Errorf("settings: value %q of [%s] is not an integer", v, key)
    }
    return n, nil
}

// GetBool parses the value for key as a boolean. Absent keys yield def.
func (s Settings) GetBool(key string, def bool) (bool, error) {
    v, ok := s.values[key]
    if !ok { return def, nil }
    b, err := strconv.ParseBool(strings.TrimSpace(v))
    if err != nil {
        return def, fmt.Errorf("settings: value %q of [%s] is not a boolean", v, key)
    }
    return b, nil
}

// Len returns the number of entries.
func (s Settings) Len() int { return len(s.keys) }

// Keys returns the keys in insertion order.
func (s Settings) Keys() []string { return append([]string(nil), s.keys...) }

// AsMap returns a copy of the entries. Mutating it does not affect s.
func (s Settings) AsMap() map[string]string {
    out := make(map[string]string, len(s.keys))
    for _, k := range s.keys { out[k] = s.values[k] }
    return out
}

// ByPrefix returns the entries whose key starts with prefix, with the prefix
// stripped from the returned keys.
func (s Settings) ByPrefix(prefix string) Settings {
    b := NewBuilder()
    for _, k := range s.keys {
        if strings.HasPrefix(k, prefix) {
            b.Put(strings.TrimPrefix(k, prefix), s.values[k])
        }
    }
    return b.Build()
}

// Each calls fn for every entry in insertion order.
func (s Settings) Each(fn func(key, value string)) {
    for _, k := range s.keys { fn(k, s.values[k]) }
}

// Equal reports whether both views hold the same key/value set, ignoring order.
func (s Settings) Equal(o Settings) bool {
    if len(s.keys) != len(o.keys) { return false }
    for k, v := range s.values {
        if ov, ok := o.values[k]; !ok || ov != v { return false }
    }
    return true
}

func (s Settings) String() string {
    parts := make([]string, 0, len(s.keys))
    for _, k := range s.keys { parts = append(parts, k+"="+s.values[k]) }
    return "{" + strings.Join(parts, ", ") + "}"
}

// Builder accumulates settings. The last write for a key wins; a rewritten key
// keeps its original position. Builders are single-writer.
type Builder struct {
    keys   []string
    values map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{values: make(map[string]string)} }

// Put stores value under key.
func (b *Builder) Put(key, value string) *Builder {
    if b.values == nil { b.values = make(map[string]string) }
    if _, ok := b.values[key]; !ok { b.keys = append(b.keys, key) }
    b.values[key] = value
    return b
}

// PutInt stores the decimal text of value under key.
func (b *Builder) PutInt(key string, value int) *Builder {
    return b.Put(key, strconv.Itoa(value))
}

// PutAll copies every entry of s, in order.
func (b *Builder) PutAll(s Settings) *Builder {
    for _, k := range s.keys { b.Put(k, s.values[k]) }
    return b
}

// PutMap copies every entry of m. Map iteration order is random, so keys are
// appended in sorted order to keep the result deterministic.
func (b *Builder) PutMap(m map[string]string) *Builder {
    keys := make([]string, 0, len(m))
    for k := range m { keys = append(keys, k) }
    sort.Strings(keys)
    for _, k := range keys { b.Put(k, m[k]) }
    return b
}

// Remove deletes key if present.
func (b *Builder) Remove(key string) *Builder {
    if _, ok := b.values[key]; !ok { return b }
    delete(b.values, key)
    for i, k := range b.keys {
        if k == key {
            b.keys = append(b.keys[:i], b.keys[i+1:]...)
            break
        }
    }
    return b
}

// Get returns the value currently accumulated for key.
func (b *Builder) Get(key string) (string, bool) {
    v, ok := b.values[key]
    return v, ok
}

// Len returns the number of accumulated entries.
func (b *Builder) Len() int { return len(b.keys) }

// Build freezes the accumulated entries. The Builder stays usable; later
// writes do not leak into the returned Settings.
func (b *Builder) Build() Settings {
    if len(b.keys) == 0 { return Settings{} }
    s := Settings{keys: append([]string(nil), b.keys...), values: make(map[string]string, len(b.keys))}
    for _, k := range b.keys { s.values[k] = b.values[k] }
    return s
}
