package metadata

import (
    "bytes"
    "encoding/json"
    "fmt"

    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// MappingMetadata is a named field-mapping definition. Its source document is
// opaque: it is checked for well-formedness once and then kept and emitted
// verbatim.
type MappingMetadata struct {
    name   string
    source json.RawMessage
}

// NewMappingMetadata validates source as a JSON object and wraps it.
func NewMappingMetadata(name string, source []byte) (MappingMetadata, error) {
    if name == "" {
        return MappingMetadata{}, fmt.Errorf("%w: empty mapping name", ErrConfig)
    }
    src, err := opaqueObject(source)
    if err != nil {
        return MappingMetadata{}, fmt.Errorf("mapping [%s]: %w", name, err)
    }
    return MappingMetadata{name: name, source: src}, nil
}

func (m MappingMetadata) Name() string { return m.name }

// Source returns a copy of the mapping document.
func (m MappingMetadata) Source() json.RawMessage { return append(json.RawMessage(nil), m.source...) }

func (m MappingMetadata) String() string { return string(m.source) }

// SourceAsMap decodes the mapping document.
func (m MappingMetadata) SourceAsMap() (map[string]any, error) {
    var out map[string]any
    if err := json.Unmarshal(m.source, &out); err != nil { return nil, err }
    return out, nil
}

// Equal compares names and the semantic content of the sources.
func (m MappingMetadata) Equal(o MappingMetadata) bool {
    return m.name == o.name && xcontent.Equal(m.source, o.source)
}

// opaqueObject accepts any well-formed JSON object and returns it trimmed but
// otherwise untouched.
func opaqueObject(src []byte) (json.RawMessage, error) {
    src = bytes.TrimSpace(src)
    if !json.Valid(src) {
        return nil, fmt.Errorf("%w: not a well-formed document", ErrStructure)
    }
    if k := xcontent.KindOf(src); k != xcontent.KindObject {
        return nil, fmt.Errorf("%w: expected an object, got %s", ErrStructure, k)
    }
    return append(json.RawMessage(nil), src...), nil
}
