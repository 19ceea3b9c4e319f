package xcontent

import (
    "bytes"
    "encoding/json"
    "fmt"
    "reflect"
)

// Field is one member of an Object.
type Field struct {
    Name  string
    Value any
}

// Object is a JSON object whose members are emitted in slice order. Values are
// marshaled with encoding/json; a json.RawMessage value is transcluded as-is
// after a well-formedness check.
type Object []Field

// Set appends a member.
func (o *Object) Set(name string, value any) { *o = append(*o, Field{Name: name, Value: value}) }

func (o Object) MarshalJSON() ([]byte, error) {
    var buf bytes.Buffer
    buf.WriteByte('{')
    for i, f := range o {
        if i > 0 { buf.WriteByte(',') }
        k, err := marshal(f.Name)
        if err != nil { return nil, err }
        buf.Write(k)
        buf.WriteByte(':')
        v, err := marshal(f.Value)
        if err != nil { return nil, fmt.Errorf("xcontent: field %q: %w", f.Name, err) }
        buf.Write(v)
    }
    buf.WriteByte('}')
    return buf.Bytes(), nil
}

// Marshal encodes v as compact JSON without HTML escaping.
func Marshal(v any) ([]byte, error) { return marshal(v) }

func marshal(v any) ([]byte, error) {
    var buf bytes.Buffer
    enc := json.NewEncoder(&buf)
    enc.SetEscapeHTML(false)
    if err := enc.Encode(v); err != nil { return nil, err }
    return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// RawField is one member of a parsed object, its value left undecoded.
type RawField struct {
    Name  string
    Value json.RawMessage
}

// ReadObject splits a JSON object into its members, preserving document
// order. Duplicate member names are all returned.
func ReadObject(raw []byte) ([]RawField, error) {
    dec := json.NewDecoder(bytes.NewReader(raw))
    tok, err := dec.Token()
    if err != nil { return nil, err }
    if d, ok := tok.(json.Delim); !ok || d != '{' {
        return nil, ErrNotObject
    }
    var out []RawField
    for dec.More() {
        tok, err := dec.Token()
        if err != nil { return nil, err }
        name, ok := tok.(string)
        if !ok { return nil, fmt.Errorf("xcontent: unexpected token %v", tok) }
        var v json.RawMessage
        if err := dec.Decode(&v); err != nil {
            return nil, fmt.Errorf("xcontent: field %q: %w", name, err)
        }
        out = append(out, RawField{Name: name, Value: v})
    }
    if _, err := dec.Token(); err != nil { return nil, err }
    return out, nil
}

// Kind classifies a raw JSON value by its first byte.
type Kind int

const (
    KindInvalid Kind = iota
    KindNull
    KindObject
    KindArray
    KindString
    KindNumber
    KindBool
)

func (k Kind) String() string {
    switch k {
    case KindNull:
        return "null"
    case KindObject:
        return "object"
    case KindArray:
        return "array"
    case KindString:
        return "string"
    case KindNumber:
        return "number"
    case KindBool:
        return "boolean"
    }
    return "invalid"
}

// KindOf reports the kind of a raw JSON value.
func KindOf(raw json.RawMessage) Kind {
    raw = bytes.TrimSpace(raw)
    if len(raw) == 0 { return KindInvalid }
    switch c := raw[0]; {
    case c == '{':
        return KindObject
    case c == '[':
        return KindArray
    case c == '"':
        return KindString
    case c == 't' || c == 'f':
        return KindBool
    case c == 'n':
        return KindNull
    case c == '-' || (c >= '0' && c <= '9'):
        return KindNumber
    }
    return KindInvalid
}

// Compact returns raw with insignificant whitespace removed, failing if raw is
// not well-formed JSON.
func Compact(raw []byte) (json.RawMessage, error) {
    var buf bytes.Buffer
    if err := json.Compact(&buf, raw); err != nil { return nil, err }
    return json.RawMessage(buf.Bytes()), nil
}

// Equal reports whether two JSON documents carry the same content. Object
// member order and whitespace are ignored; malformed input is never equal.
func Equal(a, b []byte) bool {
    var x, y any
    if json.Unmarshal(a, &x) != nil || json.Unmarshal(b, &y) != nil { return false }
    return reflect.DeepEqual(x, y)
}
