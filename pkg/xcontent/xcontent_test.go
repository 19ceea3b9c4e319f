package xcontent

import (
    "encoding/json"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.mongodb.org/mongo-driver/bson"
)

func TestParseContentType(t *testing.T) {
    for in, want := range map[string]ContentType{"json": JSON, " YAML ": YAML, "yml": YAML, "bson": BSON} {
        got, err := ParseContentType(in)
        require.NoError(t, err, in)
        assert.Equal(t, want, got, in)
    }
    _, err := ParseContentType("xml")
    assert.ErrorIs(t, err, ErrUnknownContentType)
    assert.Equal(t, "ContentType(9)", ContentType(9).String())
}

func TestMediaTypes(t *testing.T) {
    for _, ct := range []ContentType{JSON, YAML, BSON} {
        got, ok := FromMediaType(ct.MediaType() + "; charset=utf-8")
        assert.True(t, ok, ct.String())
        assert.Equal(t, ct, got)
    }
    got, ok := FromMediaType("application/x-yaml")
    assert.True(t, ok)
    assert.Equal(t, YAML, got)
    _, ok = FromMediaType("text/plain")
    assert.False(t, ok)
}

func TestDetect(t *testing.T) {
    doc, err := bson.Marshal(bson.D{{Key: "a", Value: 1}})
    require.NoError(t, err)
    assert.Equal(t, BSON, Detect(doc))
    assert.Equal(t, JSON, Detect([]byte("\xef\xbb\xbf \n {\"a\":1}")))
    assert.Equal(t, YAML, Detect([]byte("a: 1\n")))
    assert.Equal(t, YAML, Detect(nil))
}

func TestObject_MarshalKeepsOrder(t *testing.T) {
    var o Object
    o.Set("z", 1)
    o.Set("a", "<b>")
    o.Set("raw", json.RawMessage(`{ "k" : [1, 2] }`))
    o.Set("nested", Object{{Name: "y", Value: true}, {Name: "x", Value: nil}})

    out, err := Marshal(o)
    require.NoError(t, err)
    assert.Equal(t, `{"z":1,"a":"<b>","raw":{"k":[1,2]},"nested":{"y":true,"x":null}}`, string(out))

    _, err = Marshal(Object{{Name: "bad", Value: json.RawMessage(`{`)}})
    assert.Error(t, err)
}

func TestReadObject(t *testing.T) {
    fields, err := ReadObject([]byte(`{"b":1,"a":{"x":[1]},"b":"again"}`))
    require.NoError(t, err)
    require.Len(t, fields, 3)
    assert.Equal(t, "b", fields[0].Name)
    assert.Equal(t, "a", fields[1].Name)
    assert.Equal(t, `{"x":[1]}`, string(fields[1].Value))
    assert.Equal(t, `"again"`, string(fields[2].Value))

    _, err = ReadObject([]byte(`[1]`))
    assert.ErrorIs(t, err, ErrNotObject)
    _, err = ReadObject([]byte(`{"a":`))
    assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
    cases := map[string]Kind{
        ` {}`:   KindObject,
        `[]`:    KindArray,
        `"s"`:   KindString,
        `-1.5`:  KindNumber,
        `true`:  KindBool,
        `false`: KindBool,
        `null`:  KindNull,
        ``:      KindInvalid,
        `?`:     KindInvalid,
    }
    for raw, want := range cases {
        assert.Equal(t, want, KindOf(json.RawMessage(raw)), raw)
    }
    assert.Equal(t, "boolean", KindBool.String())
}

func TestEqual(t *testing.T) {
    assert.True(t, Equal([]byte(`{"a":1,"b":[1,2]}`), []byte(`{ "b":[1,2], "a":1 }`)))
    assert.False(t, Equal([]byte(`{"b":[2,1]}`), []byte(`{"b":[1,2]}`)))
    assert.False(t, Equal([]byte(`{`), []byte(`{`)))
}

func TestYAML_RoundTripKeepsOrder(t *testing.T) {
    doc := []byte(`{"z":{"b":"1","a":"true","c":"text"},"n":2,"list":["x",{"k":null}],"empty":{}}`)
    y, err := FromJSON(YAML, doc)
    require.NoError(t, err)
    assert.Contains(t, string(y), `b: "1"`)
    assert.Contains(t, string(y), `a: "true"`)
    assert.Contains(t, string(y), "c: text")

    back, err := ToJSON(YAML, y)
    require.NoError(t, err)
    assert.Equal(t, string(doc), string(back))
}

func TestYAML_Anchors(t *testing.T) {
    src := []byte("base: &b\n  f: 1\ncopy: *b\n")
    out, err := ToJSON(YAML, src)
    require.NoError(t, err)
    assert.Equal(t, `{"base":{"f":1},"copy":{"f":1}}`, string(out))

    _, err = ToJSON(YAML, []byte(""))
    assert.ErrorIs(t, err, ErrEmptyDocument)
    _, err = ToJSON(YAML, []byte("a: [1"))
    assert.Error(t, err)
    _, err = ToJSON(YAML, []byte("? [a, b]\n: 1\n"))
    assert.Error(t, err)
}

func TestBSON_RoundTripKeepsOrder(t *testing.T) {
    doc := []byte(`{"z":{"b":"1","a":true},"n":2,"list":["x",{"k":null}],"empty":{}}`)
    b, err := FromJSON(BSON, doc)
    require.NoError(t, err)

    var d bson.D
    require.NoError(t, bson.Unmarshal(b, &d))
    require.Len(t, d, 4)
    assert.Equal(t, "z", d[0].Key)
    assert.Equal(t, "empty", d[3].Key)

    back, err := ToJSON(BSON, b)
    require.NoError(t, err)
    assert.True(t, Equal(doc, back), string(back))

    fields, err := ReadObject(back)
    require.NoError(t, err)
    assert.Equal(t, []string{"z", "n", "list", "empty"}, []string{fields[0].Name, fields[1].Name, fields[2].Name, fields[3].Name})

    _, err = ToJSON(BSON, nil)
    assert.ErrorIs(t, err, ErrEmptyDocument)
    _, err = ToJSON(BSON, []byte{1, 2, 3})
    assert.Error(t, err)
}

func TestBSON_NoExtendedJSON(t *testing.T) {
    doc := []byte(`{"$date":{"type":"keyword"},"w":{"$numberLong":"5"},"big":18446744073709551616,"f":1.5,"neg":-3}`)
    b, err := FromJSON(BSON, doc)
    require.NoError(t, err)

    var d bson.D
    require.NoError(t, bson.Unmarshal(b, &d))
    assert.Equal(t, "$date", d[0].Key)
    assert.Equal(t, int64(-3), d[4].Value)

    back, err := ToJSON(BSON, b)
    require.NoError(t, err)
    assert.Equal(t, string(doc), string(back))

    _, err = FromJSON(BSON, []byte(`[1]`))
    assert.Error(t, err)
}

func TestJSON_CompactAndIndent(t *testing.T) {
    out, err := ToJSON(JSON, []byte(" {\n \"a\" : 1 }\n"))
    require.NoError(t, err)
    assert.Equal(t, `{"a":1}`, string(out))

    _, err = ToJSON(JSON, []byte("  "))
    assert.ErrorIs(t, err, ErrEmptyDocument)

    pretty, err := Indent(out)
    require.NoError(t, err)
    assert.Equal(t, "{\n  \"a\": 1\n}\n", string(pretty))
}
