package xcontent

import (
    "bytes"
    "encoding/json"
    "fmt"
    "math"
    "sort"
    "strconv"
    "strings"
    "time"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/bson/primitive"
)

// BSON documents are converted element by element. Extended JSON is never
// involved, so $-prefixed member names stay plain keys. Integers become
// int64, or decimal128 when they do not fit; other numbers become doubles.

func bsonToJSON(data []byte) ([]byte, error) {
    if len(data) == 0 { return nil, ErrEmptyDocument }
    var d bson.D
    if err := bson.Unmarshal(data, &d); err != nil {
        return nil, fmt.Errorf("xcontent: parsing bson: %w", err)
    }
    v, err := fromBSONValue(d)
    if err != nil { return nil, err }
    out, err := marshal(v)
    if err != nil { return nil, fmt.Errorf("xcontent: bson to json: %w", err) }
    return out, nil
}

func fromBSONValue(v any) (any, error) {
    switch t := v.(type) {
    case nil:
        return nil, nil
    case bson.D:
        obj := make(Object, 0, len(t))
        for _, e := range t {
            ev, err := fromBSONValue(e.Value)
            if err != nil { return nil, fmt.Errorf("field %q: %w", e.Key, err) }
            obj = append(obj, Field{Name: e.Key, Value: ev})
        }
        return obj, nil
    case bson.M:
        keys := make([]string, 0, len(t))
        for k := range t {
            keys = append(keys, k)
        }
        sort.Strings(keys)
        obj := make(Object, 0, len(t))
        for _, k := range keys {
            ev, err := fromBSONValue(t[k])
            if err != nil { return nil, fmt.Errorf("field %q: %w", k, err) }
            obj = append(obj, Field{Name: k, Value: ev})
        }
        return obj, nil
    case bson.A:
        return fromBSONArray(t)
    case []any:
        return fromBSONArray(t)
    case string, bool:
        return t, nil
    case int32:
        return json.Number(strconv.FormatInt(int64(t), 10)), nil
    case int64:
        return json.Number(strconv.FormatInt(t, 10)), nil
    case float64:
        if math.IsNaN(t) || math.IsInf(t, 0) {
            return nil, fmt.Errorf("xcontent: bson double %v has no json form", t)
        }
        return json.Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
    case primitive.Decimal128:
        return json.Number(t.String()), nil
    case primitive.DateTime:
        return t.Time().UTC().Format(time.RFC3339Nano), nil
    case primitive.ObjectID:
        return t.Hex(), nil
    }
    return nil, fmt.Errorf("xcontent: bson value of type %T has no json form", v)
}

func fromBSONArray(items []any) (any, error) {
    arr := make([]any, 0, len(items))
    for i, item := range items {
        v, err := fromBSONValue(item)
        if err != nil { return nil, fmt.Errorf("item %d: %w", i, err) }
        arr = append(arr, v)
    }
    return arr, nil
}

func jsonToBSON(doc []byte) ([]byte, error) {
    v, err := toBSONValue(doc)
    if err != nil { return nil, fmt.Errorf("xcontent: json to bson: %w", err) }
    d, ok := v.(bson.D)
    if !ok { return nil, ErrNotObject }
    out, err := bson.Marshal(d)
    if err != nil {
        return nil, fmt.Errorf("xcontent: encoding bson: %w", err)
    }
    return out, nil
}

func toBSONValue(raw json.RawMessage) (any, error) {
    switch k := KindOf(raw); k {
    case KindObject:
        fields, err := ReadObject(raw)
        if err != nil { return nil, err }
        d := make(bson.D, 0, len(fields))
        for _, f := range fields {
            v, err := toBSONValue(f.Value)
            if err != nil { return nil, err }
            d = append(d, bson.E{Key: f.Name, Value: v})
        }
        return d, nil
    case KindArray:
        var items []json.RawMessage
        if err := json.Unmarshal(raw, &items); err != nil { return nil, err }
        a := make(bson.A, 0, len(items))
        for _, item := range items {
            v, err := toBSONValue(item)
            if err != nil { return nil, err }
            a = append(a, v)
        }
        return a, nil
    case KindString:
        var s string
        if err := json.Unmarshal(raw, &s); err != nil { return nil, err }
        return s, nil
    case KindNumber:
        return bsonNumber(string(bytes.TrimSpace(raw)))
    case KindBool:
        return string(bytes.TrimSpace(raw)) == "true", nil
    case KindNull:
        return nil, nil
    default:
        return nil, fmt.Errorf("invalid value %q", raw)
    }
}

func bsonNumber(text string) (any, error) {
    if n, err := strconv.ParseInt(text, 10, 64); err == nil { return n, nil }
    if !strings.ContainsAny(text, ".eE") {
        d, err := primitive.ParseDecimal128(text)
        if err != nil { return nil, fmt.Errorf("number %s: %w", text, err) }
        return d, nil
    }
    f, err := strconv.ParseFloat(text, 64)
    if err == nil { return f, nil }
    d, derr := primitive.ParseDecimal128(text)
    if derr != nil { return nil, fmt.Errorf("number %s: %w", text, err) }
    return d, nil
}
