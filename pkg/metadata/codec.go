package metadata

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"

    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/settings"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// Field names of the canonical document:
//
//  {"meta-data": {"indices": {"<index>": {
//      "number_of_shards": 1, "number_of_replicas": 2,
//      "settings": {"<key>": "<value>"},
//      "mappings": {"<name>": {...}},
//      "aliases":  {"<alias>": {"filter": {...}}}}}}}
const (
    fieldMetaData         = "meta-data"
    fieldIndices          = "indices"
    fieldNumberOfShards   = "number_of_shards"
    fieldNumberOfReplicas = "number_of_replicas"
    fieldSettings         = "settings"
    fieldMappings         = "mappings"
    fieldAliases          = "aliases"
    fieldFilter           = "filter"
)

// ToJSON encodes m as canonical JSON.
func ToJSON(m Metadata) ([]byte, error) { return ToXContent(m, xcontent.JSON) }

// ToXContent encodes m as a document of the given content type. Settings are
// written as a flat object in stored order; mapping sources and alias filters
// are embedded as nested documents.
func ToXContent(m Metadata, ct xcontent.ContentType) (out []byte, err error) {
    defer func() { obsmetrics.DocumentsEncoded.WithLabelValues(ct.String(), obsmetrics.Result(err)).Inc() }()
    indices := make(xcontent.Object, 0, m.indices.Len())
    for name, im := range m.indices.All() {
        indices.Set(name, indexObject(im))
    }
    doc, err := xcontent.Marshal(xcontent.Object{{Name: fieldMetaData, Value: xcontent.Object{{Name: fieldIndices, Value: indices}}}})
    if err != nil { return nil, fmt.Errorf("encoding metadata: %w", err) }
    return xcontent.FromJSON(ct, doc)
}

// IndexToXContent encodes a single index as {"<name>": {...}}.
func IndexToXContent(im IndexMetadata, ct xcontent.ContentType) ([]byte, error) {
    doc, err := xcontent.Marshal(xcontent.Object{{Name: im.name, Value: indexObject(im)}})
    if err != nil { return nil, fmt.Errorf("encoding index [%s]: %w", im.name, err) }
    return xcontent.FromJSON(ct, doc)
}

func indexObject(im IndexMetadata) xcontent.Object {
    s := make(xcontent.Object, 0, im.settings.Len())
    im.settings.Each(func(k, v string) { s.Set(k, v) })

    mappings := make(xcontent.Object, 0, im.mappings.Len())
    for name, mm := range im.mappings.All() {
        mappings.Set(name, mm.source)
    }

    aliases := make(xcontent.Object, 0, im.aliases.Len())
    for name, a := range im.aliases.All() {
        entry := xcontent.Object{}
        if a.filter != nil { entry.Set(fieldFilter, a.filter) }
        aliases.Set(name, entry)
    }

    return xcontent.Object{
        {Name: fieldNumberOfShards, Value: im.numberOfShards},
        {Name: fieldNumberOfReplicas, Value: im.numberOfReplicas},
        {Name: fieldSettings, Value: s},
        {Name: fieldMappings, Value: mappings},
        {Name: fieldAliases, Value: aliases},
    }
}

// FromJSON decodes a canonical JSON document.
func FromJSON(data []byte) (Metadata, error) { return FromXContent(data, xcontent.JSON) }

// FromXContent decodes a document of the given content type, upgrading legacy
// index.aliases.<N> settings into aliases. Decoding is all-or-nothing.
func FromXContent(data []byte, ct xcontent.ContentType) (Metadata, error) {
    b, err := ParseXContent(data, ct)
    if err != nil { return Metadata{}, err }
    return b.Build()
}

// ParseXContent decodes a document into a Builder so callers can amend it
// before freezing. Unknown fields are ignored at every level.
func ParseXContent(data []byte, ct xcontent.ContentType) (b *Builder, err error) {
    defer func() { obsmetrics.DocumentsDecoded.WithLabelValues(ct.String(), obsmetrics.Result(err)).Inc() }()
    doc, err := xcontent.ToJSON(ct, data)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrStructure, err) }
    meta, ok, err := member(doc, fieldMetaData)
    if err != nil { return nil, fmt.Errorf("%w: top level: %v", ErrStructure, err) }
    if !ok { return nil, fmt.Errorf("%w: missing [%s] object", ErrStructure, fieldMetaData) }
    indices, ok, err := member(meta, fieldIndices)
    if err != nil { return nil, fmt.Errorf("%w: [%s]: %v", ErrStructure, fieldMetaData, err) }

    b = NewBuilder()
    if !ok { return b, nil }
    entries, err := xcontent.ReadObject(indices)
    if err != nil { return nil, fmt.Errorf("%w: [%s]: %v", ErrStructure, fieldIndices, err) }
    for _, e := range entries {
        im, err := parseIndex(e.Name, e.Value)
        if err != nil { return nil, err }
        b.PutIndex(im)
    }
    return b, nil
}

// IndexFromXContent decodes a single {"<name>": {...}} index document.
func IndexFromXContent(data []byte, ct xcontent.ContentType) (IndexMetadata, error) {
    doc, err := xcontent.ToJSON(ct, data)
    if err != nil { return IndexMetadata{}, fmt.Errorf("%w: %v", ErrStructure, err) }
    entries, err := xcontent.ReadObject(doc)
    if err != nil { return IndexMetadata{}, fmt.Errorf("%w: %v", ErrStructure, err) }
    if len(entries) != 1 {
        return IndexMetadata{}, fmt.Errorf("%w: expected exactly one index, got %d", ErrStructure, len(entries))
    }
    return parseIndex(entries[0].Name, entries[0].Value)
}

func parseIndex(name string, raw json.RawMessage) (IndexMetadata, error) {
    fields, err := xcontent.ReadObject(raw)
    if err != nil {
        return IndexMetadata{}, indexErr(name, "", ErrStructure, "index entry: %v", err)
    }
    ib := NewIndexBuilder(name)
    sb := settings.NewBuilder()
    for _, f := range fields {
        switch f.Name {
        case fieldNumberOfShards:
            n, err := parseCount(f.Value, 1)
            if err != nil { return IndexMetadata{}, &IndexError{Index: name, Field: f.Name, Err: err} }
            ib.NumberOfShards(n)
        case fieldNumberOfReplicas:
            n, err := parseCount(f.Value, 0)
            if err != nil { return IndexMetadata{}, &IndexError{Index: name, Field: f.Name, Err: err} }
            ib.NumberOfReplicas(n)
        case fieldSettings:
            if k := xcontent.KindOf(f.Value); k != xcontent.KindObject {
                return IndexMetadata{}, indexErr(name, f.Name, ErrStructure, "expected an object, got %s", k)
            }
            if err := flattenSettings(sb, "", f.Value); err != nil {
                return IndexMetadata{}, &IndexError{Index: name, Field: f.Name, Err: err}
            }
        case fieldMappings:
            if err := parseMappings(ib, f.Value); err != nil {
                return IndexMetadata{}, &IndexError{Index: name, Field: f.Name, Err: err}
            }
        case fieldAliases:
            if err := parseAliases(ib, f.Value); err != nil {
                return IndexMetadata{}, &IndexError{Index: name, Field: f.Name, Err: err}
            }
        }
    }
    ib.Settings(sb.Build())
    return ib.Build()
}

// parseCount accepts a JSON integer, or a string holding one, no lower than
// floor.
func parseCount(raw json.RawMessage, floor int) (int, error) {
    var text string
    switch xcontent.KindOf(raw) {
    case xcontent.KindNumber:
        text = string(raw)
    case xcontent.KindString:
        if err := json.Unmarshal(raw, &text); err != nil { return 0, fmt.Errorf("%w: %v", ErrValue, err) }
    default:
        return 0, fmt.Errorf("%w: expected an integer, got %s", ErrValue, xcontent.KindOf(raw))
    }
    n, err := strconv.Atoi(strings.TrimSpace(text))
    if err != nil || n < floor {
        return 0, fmt.Errorf("%w: %q is not an integer >= %d", ErrValue, text, floor)
    }
    return n, nil
}

// flattenSettings writes nested objects as dotted keys and arrays as
// key.<i> entries. Scalars keep their literal text; nulls are dropped.
func flattenSettings(sb *settings.Builder, prefix string, raw json.RawMessage) error {
    switch k := xcontent.KindOf(raw); k {
    case xcontent.KindObject:
        fields, err := xcontent.ReadObject(raw)
        if err != nil { return fmt.Errorf("%w: %v", ErrStructure, err) }
        for _, f := range fields {
            key := f.Name
            if prefix != "" { key = prefix + "." + f.Name }
            if err := flattenSettings(sb, key, f.Value); err != nil { return err }
        }
    case xcontent.KindArray:
        var items []json.RawMessage
        if err := json.Unmarshal(raw, &items); err != nil { return fmt.Errorf("%w: %v", ErrStructure, err) }
        for i, item := range items {
            if err := flattenSettings(sb, prefix+"."+strconv.Itoa(i), item); err != nil { return err }
        }
    case xcontent.KindString:
        var s string
        if err := json.Unmarshal(raw, &s); err != nil { return fmt.Errorf("%w: %v", ErrStructure, err) }
        sb.Put(prefix, s)
    case xcontent.KindNumber, xcontent.KindBool:
        sb.Put(prefix, string(raw))
    case xcontent.KindNull:
    default:
        return fmt.Errorf("%w: setting [%s] has an invalid value", ErrStructure, prefix)
    }
    return nil
}

func parseMappings(ib *IndexBuilder, raw json.RawMessage) error {
    entries, err := xcontent.ReadObject(raw)
    if err != nil { return fmt.Errorf("%w: %v", ErrStructure, err) }
    for _, e := range entries {
        src, err := canonical(e.Value)
        if err != nil { return fmt.Errorf("mapping [%s]: %w", e.Name, err) }
        m, err := NewMappingMetadata(e.Name, src)
        if err != nil { return err }
        ib.PutMappingMetadata(m)
    }
    return nil
}

func parseAliases(ib *IndexBuilder, raw json.RawMessage) error {
    entries, err := xcontent.ReadObject(raw)
    if err != nil { return fmt.Errorf("%w: %v", ErrStructure, err) }
    for _, e := range entries {
        fields, err := xcontent.ReadObject(e.Value)
        if err != nil { return fmt.Errorf("%w: alias [%s]: %v", ErrStructure, e.Name, err) }
        ab := NewAliasBuilder(e.Name)
        for _, f := range fields {
            if f.Name != fieldFilter || xcontent.KindOf(f.Value) == xcontent.KindNull { continue }
            src, err := canonical(f.Value)
            if err != nil { return fmt.Errorf("alias [%s] filter: %w", e.Name, err) }
            ab.FilterRaw(src)
        }
        ib.PutAlias(ab)
    }
    return ib.err
}

// canonical re-serializes an embedded document in compact form.
func canonical(raw json.RawMessage) (json.RawMessage, error) {
    if k := xcontent.KindOf(raw); k != xcontent.KindObject {
        return nil, fmt.Errorf("%w: expected an object, got %s", ErrStructure, k)
    }
    out, err := xcontent.Compact(raw)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrStructure, err) }
    return out, nil
}

// member returns the value of the named member of a JSON object. When the
// name repeats, the last occurrence wins.
func member(doc []byte, name string) (json.RawMessage, bool, error) {
    fields, err := xcontent.ReadObject(doc)
    if err != nil { return nil, false, err }
    var (
        out   json.RawMessage
        found bool
    )
    for _, f := range fields {
        if f.Name == name { out, found = f.Value, true }
    }
    return out, found, nil
}
