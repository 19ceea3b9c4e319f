// Package xcontent carries structured documents between their supported wire
// encodings. JSON is canonical: every other content type is converted to and
// from compact JSON, so callers parse and build JSON only.
package xcontent

import (
    "bytes"
    "encoding/binary"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
)

// ContentType identifies a document encoding.
type ContentType int

const (
    JSON ContentType = iota
    YAML
    BSON
)

var (
    ErrUnknownContentType = errors.New("xcontent: unknown content type")
    ErrNotObject          = errors.New("xcontent: value is not an object")
    ErrEmptyDocument      = errors.New("xcontent: empty document")
)

func (c ContentType) String() string {
    switch c {
    case JSON:
        return "json"
    case YAML:
        return "yaml"
    case BSON:
        return "bson"
    default:
        return fmt.Sprintf("ContentType(%d)", int(c))
    }
}

// ParseContentType maps a short name ("json", "yaml"/"yml", "bson") to a
// ContentType.
func ParseContentType(s string) (ContentType, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "json":
        return JSON, nil
    case "yaml", "yml":
        return YAML, nil
    case "bson":
        return BSON, nil
    }
    return JSON, fmt.Errorf("%w: %q", ErrUnknownContentType, s)
}

// MediaType is the HTTP Content-Type for c.
func (c ContentType) MediaType() string {
    switch c {
    case YAML:
        return "application/yaml"
    case BSON:
        return "application/bson"
    default:
        return "application/json"
    }
}

// FromMediaType maps an HTTP Content-Type header to a ContentType, ignoring
// parameters. ok is false for anything unrecognized.
func FromMediaType(header string) (ct ContentType, ok bool) {
    mt, _, _ := strings.Cut(header, ";")
    switch strings.ToLower(strings.TrimSpace(mt)) {
    case "application/json":
        return JSON, true
    case "application/yaml", "application/x-yaml", "text/yaml":
        return YAML, true
    case "application/bson":
        return BSON, true
    }
    return JSON, false
}

// Detect sniffs the encoding of data. A buffer whose little-endian length
// prefix matches its size and which ends in NUL is BSON; a buffer starting with
// '{' is JSON; anything else is treated as YAML.
func Detect(data []byte) ContentType {
    if n := len(data); n >= 5 && int(binary.LittleEndian.Uint32(data)) == n && data[n-1] == 0 {
        return BSON
    }
    trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
    if len(trimmed) > 0 && trimmed[0] == '{' {
        return JSON
    }
    return YAML
}

// ToJSON converts a document encoded as ct into compact JSON.
func ToJSON(ct ContentType, data []byte) ([]byte, error) {
    switch ct {
    case JSON:
        trimmed := bytes.TrimSpace(data)
        if len(trimmed) == 0 { return nil, ErrEmptyDocument }
        var buf bytes.Buffer
        if err := json.Compact(&buf, trimmed); err != nil {
            return nil, fmt.Errorf("xcontent: parsing json: %w", err)
        }
        return buf.Bytes(), nil
    case YAML:
        return yamlToJSON(data)
    case BSON:
        return bsonToJSON(data)
    }
    return nil, fmt.Errorf("%w: %v", ErrUnknownContentType, ct)
}

// FromJSON renders a JSON document as ct.
func FromJSON(ct ContentType, doc []byte) ([]byte, error) {
    switch ct {
    case JSON:
        var buf bytes.Buffer
        if err := json.Compact(&buf, doc); err != nil {
            return nil, fmt.Errorf("xcontent: parsing json: %w", err)
        }
        return buf.Bytes(), nil
    case YAML:
        return jsonToYAML(doc)
    case BSON:
        return jsonToBSON(doc)
    }
    return nil, fmt.Errorf("%w: %v", ErrUnknownContentType, ct)
}

// Indent pretty-prints a JSON document with two-space indentation.
func Indent(doc []byte) ([]byte, error) {
    var buf bytes.Buffer
    if err := json.Indent(&buf, doc, "", "  "); err != nil {
        return nil, err
    }
    buf.WriteByte('\n')
    return buf.Bytes(), nil
}
