package xcontent

import (
    "bytes"
    "fmt"

    "gopkg.in/yaml.v3"
)

// yamlToJSON walks the yaml.Node tree instead of decoding into maps so that
// mapping order survives the conversion.
func yamlToJSON(data []byte) ([]byte, error) {
    var doc yaml.Node
    if err := yaml.Unmarshal(data, &doc); err != nil {
        return nil, fmt.Errorf("xcontent: parsing yaml: %w", err)
    }
    if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
        return nil, ErrEmptyDocument
    }
    v, err := fromYAMLNode(&doc)
    if err != nil { return nil, err }
    return marshal(v)
}

func fromYAMLNode(n *yaml.Node) (any, error) {
    switch n.Kind {
    case yaml.DocumentNode:
        if len(n.Content) == 0 { return nil, nil }
        return fromYAMLNode(n.Content[0])
    case yaml.AliasNode:
        return fromYAMLNode(n.Alias)
    case yaml.MappingNode:
        obj := make(Object, 0, len(n.Content)/2)
        for i := 0; i+1 < len(n.Content); i += 2 {
            k := n.Content[i]
            if k.Kind != yaml.ScalarNode {
                return nil, fmt.Errorf("xcontent: yaml line %d: mapping key must be a scalar", k.Line)
            }
            v, err := fromYAMLNode(n.Content[i+1])
            if err != nil { return nil, err }
            obj = append(obj, Field{Name: k.Value, Value: v})
        }
        return obj, nil
    case yaml.SequenceNode:
        arr := make([]any, 0, len(n.Content))
        for _, c := range n.Content {
            v, err := fromYAMLNode(c)
            if err != nil { return nil, err }
            arr = append(arr, v)
        }
        return arr, nil
    case yaml.ScalarNode:
        var v any
        if err := n.Decode(&v); err != nil {
            return nil, fmt.Errorf("xcontent: yaml line %d: %w", n.Line, err)
        }
        return v, nil
    }
    return nil, fmt.Errorf("xcontent: yaml line %d: unsupported node kind %d", n.Line, n.Kind)
}

// jsonToYAML relies on JSON being valid YAML flow syntax, then switches every
// node to block style before encoding.
func jsonToYAML(doc []byte) ([]byte, error) {
    var n yaml.Node
    if err := yaml.Unmarshal(doc, &n); err != nil {
        return nil, fmt.Errorf("xcontent: parsing json as yaml: %w", err)
    }
    if n.Kind == 0 { return nil, ErrEmptyDocument }
    blockStyle(&n)
    var buf bytes.Buffer
    enc := yaml.NewEncoder(&buf)
    enc.SetIndent(2)
    if err := enc.Encode(&n); err != nil { return nil, err }
    if err := enc.Close(); err != nil { return nil, err }
    return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
    switch n.Kind {
    case yaml.MappingNode, yaml.SequenceNode:
        n.Style &^= yaml.FlowStyle
    case yaml.ScalarNode:
        // the encoder re-quotes strings that would otherwise resolve to another tag
        n.Style &^= yaml.DoubleQuotedStyle
    }
    for _, c := range n.Content { blockStyle(c) }
}
