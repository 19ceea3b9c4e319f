// Package metadata models the cluster metadata snapshot: every index with its
// shard topology, settings, mappings and aliases. Values are built through
// Builder/IndexBuilder and are immutable afterwards, so a Metadata may be
// shared between goroutines without locking.
package metadata

import "fmt"

// Metadata is an immutable snapshot of all indices, keyed by index name.
type Metadata struct {
    indices OrderedMap[IndexMetadata]
}

// Index returns the index called name.
func (m Metadata) Index(name string) (IndexMetadata, bool) { return m.indices.Get(name) }

func (m Metadata) HasIndex(name string) bool { return m.indices.Has(name) }

func (m Metadata) Indices() OrderedMap[IndexMetadata] { return m.indices }

// Equal reports whether both snapshots describe the same indices. Index order
// is not significant.
func (m Metadata) Equal(o Metadata) bool {
    if m.indices.Len() != o.indices.Len() { return false }
    for name, im := range m.indices.All() {
        oim, ok := o.indices.Get(name)
        if !ok || !im.Equal(oim) { return false }
    }
    return true
}

// Builder accumulates a Metadata. Seed it from a previous snapshot with
// NewBuilderFrom to derive a new one.
type Builder struct {
    indices orderedBuilder[IndexMetadata]
    err     error
}

func NewBuilder() *Builder { return &Builder{} }

func NewBuilderFrom(m Metadata) *Builder {
    b := &Builder{}
    b.indices.load(m.indices)
    return b
}

// Put builds ib and inserts the result, replacing any index of the same name.
// A build failure is reported by Build.
func (b *Builder) Put(ib *IndexBuilder) *Builder {
    im, err := ib.Build()
    if err != nil {
        if b.err == nil { b.err = err }
        return b
    }
    return b.PutIndex(im)
}

// PutIndex inserts im, replacing any index of the same name.
func (b *Builder) PutIndex(im IndexMetadata) *Builder {
    b.indices.put(im.name, im)
    return b
}

func (b *Builder) Remove(name string) *Builder {
    b.indices.remove(name)
    return b
}

func (b *Builder) Index(name string) (IndexMetadata, bool) { return b.indices.get(name) }

// Build freezes the accumulated indices. Nothing is returned alongside an
// error.
func (b *Builder) Build() (Metadata, error) {
    if b.err != nil {
        return Metadata{}, fmt.Errorf("building metadata: %w", b.err)
    }
    return Metadata{indices: b.indices.freeze()}, nil
}
