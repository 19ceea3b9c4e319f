package metadata

import (
    "encoding/json"
    "fmt"

    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// AliasMetadata is an alternate name for an index with an optional filter
// query. A nil filter means "no filter", which is distinct from an empty {}
// filter document.
type AliasMetadata struct {
    alias  string
    filter json.RawMessage
}

func (a AliasMetadata) Alias() string { return a.alias }

// Filter returns a copy of the filter document and whether one is set.
func (a AliasMetadata) Filter() (json.RawMessage, bool) {
    if a.filter == nil { return nil, false }
    return append(json.RawMessage(nil), a.filter...), true
}

func (a AliasMetadata) HasFilter() bool { return a.filter != nil }

// Equal compares names and filters; filters are compared semantically.
func (a AliasMetadata) Equal(o AliasMetadata) bool {
    if a.alias != o.alias || a.HasFilter() != o.HasFilter() { return false }
    return !a.HasFilter() || xcontent.Equal(a.filter, o.filter)
}

func (a AliasMetadata) String() string {
    if a.filter == nil { return a.alias }
    return a.alias + " " + string(a.filter)
}

// AliasBuilder accumulates an AliasMetadata.
type AliasBuilder struct {
    alias  string
    filter json.RawMessage
    err    error
}

func NewAliasBuilder(alias string) *AliasBuilder { return &AliasBuilder{alias: alias} }

// Filter sets the filter from its JSON text.
func (b *AliasBuilder) Filter(src string) *AliasBuilder { return b.FilterRaw([]byte(src)) }

// FilterRaw sets the filter from a raw JSON document.
func (b *AliasBuilder) FilterRaw(src []byte) *AliasBuilder {
    f, err := opaqueObject(src)
    if err != nil {
        b.setErr(fmt.Errorf("alias [%s] filter: %w", b.alias, err))
        return b
    }
    b.filter = f
    return b
}

// FilterMap sets the filter from a decoded document.
func (b *AliasBuilder) FilterMap(m map[string]any) *AliasBuilder {
    raw, err := xcontent.Marshal(m)
    if err != nil {
        b.setErr(fmt.Errorf("%w: alias [%s] filter: %v", ErrValue, b.alias, err))
        return b
    }
    return b.FilterRaw(raw)
}

// NoFilter clears a previously set filter.
func (b *AliasBuilder) NoFilter() *AliasBuilder { b.filter = nil; return b }

func (b *AliasBuilder) Build() (AliasMetadata, error) {
    if b.err != nil { return AliasMetadata{}, b.err }
    if b.alias == "" {
        return AliasMetadata{}, fmt.Errorf("%w: empty alias name", ErrConfig)
    }
    return AliasMetadata{alias: b.alias, filter: append(json.RawMessage(nil), b.filter...)}, nil
}

func (b *AliasBuilder) setErr(err error) {
    if b.err == nil { b.err = err }
}
