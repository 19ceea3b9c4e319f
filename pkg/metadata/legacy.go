package metadata

import (
    "sort"
    "strconv"
    "strings"

    "github.com/amirimatin/go-clustermeta/pkg/settings"
)

// LegacyAliasPrefix prefixes the settings keys older serializers used to list
// alias names: index.aliases.0, index.aliases.1, ...
const LegacyAliasPrefix = "index.aliases."

// MigrateLegacyAliases lifts aliases declared as index.aliases.<N> settings
// into aliases. Legacy entries are merged by name: an alias already present in
// aliases is kept as is, filter included. New aliases are appended in
// ascending <N> order without a filter; leading zeros in <N> are allowed. The returned settings carry no
// index.aliases.* key. A suffix that is not a non-negative integer, or an
// empty alias name, is an ErrValue.
func MigrateLegacyAliases(s settings.Settings, aliases OrderedMap[AliasMetadata]) (settings.Settings, OrderedMap[AliasMetadata], error) {
    s, aliases, _, err := migrateLegacyAliases("", s, aliases)
    return s, aliases, err
}

func migrateLegacyAliases(index string, s settings.Settings, aliases OrderedMap[AliasMetadata]) (settings.Settings, OrderedMap[AliasMetadata], int, error) {
    type legacy struct {
        pos  int
        name string
    }
    var found []legacy
    rest := settings.NewBuilder()
    for _, key := range s.Keys() {
        value, _ := s.Get(key)
        if !strings.HasPrefix(key, LegacyAliasPrefix) {
            rest.Put(key, value)
            continue
        }
        suffix := strings.TrimPrefix(key, LegacyAliasPrefix)
        pos, err := strconv.ParseUint(suffix, 10, 31)
        if err != nil {
            return s, aliases, 0, indexErr(index, key, ErrValue, "legacy alias index %q is not a non-negative integer", suffix)
        }
        name := strings.TrimSpace(value)
        if name == "" {
            return s, aliases, 0, indexErr(index, key, ErrValue, "empty legacy alias name")
        }
        found = append(found, legacy{pos: int(pos), name: name})
    }
    if len(found) == 0 { return s, aliases, 0, nil }

    sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
    var merged orderedBuilder[AliasMetadata]
    merged.load(aliases)
    added := 0
    for _, l := range found {
        if _, ok := merged.get(l.name); ok { continue }
        merged.put(l.name, AliasMetadata{alias: l.name})
        added++
    }
    return rest.Build(), merged.freeze(), added, nil
}
