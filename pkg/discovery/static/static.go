package static

import (
    "context"
    "slices"
    "strings"

    "github.com/amirimatin/go-clustermeta/pkg/discovery"
)

// List is a fixed set of seeds, typically from --join.
type List []string

// New drops blank entries.
func New(seeds ...string) List {
    out := make(List, 0, len(seeds))
    for _, v := range seeds {
        if v = strings.TrimSpace(v); v != "" { out = append(out, v) }
    }
    return out
}

func (l List) Seeds(context.Context) ([]string, error) { return slices.Clone([]string(l)), nil }

// Parse splits a comma-separated seed list.
func Parse(csv string) List {
    if csv == "" { return nil }
    return New(strings.Split(csv, ",")...)
}

var _ discovery.Discovery = List(nil)
