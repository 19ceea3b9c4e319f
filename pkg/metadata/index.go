package metadata

import (
    "fmt"
    "strconv"
    "strings"

    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/settings"
)

// Reserved settings keys mirroring the dedicated shard/replica fields.
const (
    SettingNumberOfShards   = "index.number_of_shards"
    SettingNumberOfReplicas = "index.number_of_replicas"
)

// IndexMetadata describes one index: its shard topology, settings, mappings
// and aliases. It is immutable; derive changes with NewIndexBuilderFrom.
type IndexMetadata struct {
    name             string
    numberOfShards   int
    numberOfReplicas int
    settings         settings.Settings
    mappings         OrderedMap[MappingMetadata]
    aliases          OrderedMap[AliasMetadata]
}

func (im IndexMetadata) Name() string          { return im.name }
func (im IndexMetadata) NumberOfShards() int   { return im.numberOfShards }
func (im IndexMetadata) NumberOfReplicas() int { return im.numberOfReplicas }

// Settings always contains the reserved shard/replica keys.
func (im IndexMetadata) Settings() settings.Settings { return im.settings }

func (im IndexMetadata) Mappings() OrderedMap[MappingMetadata] { return im.mappings }
func (im IndexMetadata) Aliases() OrderedMap[AliasMetadata]    { return im.aliases }

func (im IndexMetadata) Mapping(name string) (MappingMetadata, bool) { return im.mappings.Get(name) }
func (im IndexMetadata) Alias(name string) (AliasMetadata, bool)     { return im.aliases.Get(name) }

// Equal compares two index descriptions. Settings, mapping names and alias
// names are compared as sets; documents are compared semantically.
func (im IndexMetadata) Equal(o IndexMetadata) bool {
    if im.name != o.name || im.numberOfShards != o.numberOfShards || im.numberOfReplicas != o.numberOfReplicas {
        return false
    }
    if !im.settings.Equal(o.settings) || im.mappings.Len() != o.mappings.Len() || im.aliases.Len() != o.aliases.Len() {
        return false
    }
    for name, m := range im.mappings.All() {
        om, ok := o.mappings.Get(name)
        if !ok || !m.Equal(om) { return false }
    }
    for name, a := range im.aliases.All() {
        oa, ok := o.aliases.Get(name)
        if !ok || !a.Equal(oa) { return false }
    }
    return true
}

// IndexBuilder accumulates an IndexMetadata. Fluent calls record the first
// error they hit; Build returns it. Builders are single-writer.
type IndexBuilder struct {
    name      string
    shards    int
    shardsSet bool
    replicas  int
    replSet   bool
    settings  settings.Settings
    extra     *settings.Builder
    mappings  orderedBuilder[MappingMetadata]
    aliases   orderedBuilder[AliasMetadata]
    err       error
}

func NewIndexBuilder(name string) *IndexBuilder {
    return &IndexBuilder{name: name, extra: settings.NewBuilder()}
}

// NewIndexBuilderFrom seeds a builder with every field of im.
func NewIndexBuilderFrom(im IndexMetadata) *IndexBuilder {
    b := NewIndexBuilder(im.name).
        Settings(im.settings).
        NumberOfShards(im.numberOfShards).
        NumberOfReplicas(im.numberOfReplicas)
    b.mappings.load(im.mappings)
    b.aliases.load(im.aliases)
    return b
}

func (b *IndexBuilder) Name() string { return b.name }

func (b *IndexBuilder) NumberOfShards(n int) *IndexBuilder {
    b.shards, b.shardsSet = n, true
    return b
}

func (b *IndexBuilder) NumberOfReplicas(n int) *IndexBuilder {
    b.replicas, b.replSet = n, true
    return b
}

// Settings replaces the settings supplied so far, including single entries
// added with PutSetting.
func (b *IndexBuilder) Settings(s settings.Settings) *IndexBuilder {
    b.settings = s
    b.extra = settings.NewBuilder()
    return b
}

// PutSetting adds one entry on top of the settings given to Settings.
func (b *IndexBuilder) PutSetting(key, value string) *IndexBuilder {
    b.extra.Put(key, value)
    return b
}

// PutMapping adds or replaces the mapping called name.
func (b *IndexBuilder) PutMapping(name, source string) *IndexBuilder {
    m, err := NewMappingMetadata(name, []byte(source))
    if err != nil {
        b.setErr(err)
        return b
    }
    return b.PutMappingMetadata(m)
}

func (b *IndexBuilder) PutMappingMetadata(m MappingMetadata) *IndexBuilder {
    b.mappings.put(m.name, m)
    return b
}

func (b *IndexBuilder) RemoveMapping(name string) *IndexBuilder {
    b.mappings.remove(name)
    return b
}

// PutAlias builds ab and adds or replaces the alias of the same name.
func (b *IndexBuilder) PutAlias(ab *AliasBuilder) *IndexBuilder {
    a, err := ab.Build()
    if err != nil {
        b.setErr(err)
        return b
    }
    return b.PutAliasMetadata(a)
}

func (b *IndexBuilder) PutAliasMetadata(a AliasMetadata) *IndexBuilder {
    b.aliases.put(a.alias, a)
    return b
}

func (b *IndexBuilder) RemoveAlias(name string) *IndexBuilder {
    b.aliases.remove(name)
    return b
}

// Build freezes the accumulated state. Aliases declared through the legacy
// index.aliases.<N> settings are lifted into the alias map, and the reserved
// shard/replica settings are rewritten from the dedicated fields. When a
// dedicated field was never set, the reserved setting is used instead.
func (b *IndexBuilder) Build() (IndexMetadata, error) {
    if b.err != nil { return IndexMetadata{}, inIndex(b.name, b.err) }
    if b.name == "" {
        return IndexMetadata{}, fmt.Errorf("%w: empty index name", ErrConfig)
    }

    merged := settings.NewBuilder().PutAll(b.settings).PutAll(b.extra.Build()).Build()
    s, aliases, migrated, err := migrateLegacyAliases(b.name, merged, b.aliases.freeze())
    if err != nil { return IndexMetadata{}, err }

    shards, err := b.count(s, SettingNumberOfShards, b.shards, b.shardsSet, 1)
    if err != nil { return IndexMetadata{}, err }
    replicas, err := b.count(s, SettingNumberOfReplicas, b.replicas, b.replSet, 0)
    if err != nil { return IndexMetadata{}, err }

    s = settings.NewBuilder().
        PutAll(s).
        PutInt(SettingNumberOfShards, shards).
        PutInt(SettingNumberOfReplicas, replicas).
        Build()

    if migrated > 0 { obsmetrics.LegacyAliasesMigrated.Add(float64(migrated)) }
    return IndexMetadata{
        name:             b.name,
        numberOfShards:   shards,
        numberOfReplicas: replicas,
        settings:         s,
        mappings:         b.mappings.freeze(),
        aliases:          aliases,
    }, nil
}

// count resolves a shard or replica count: the dedicated field when set,
// otherwise the reserved settings key.
func (b *IndexBuilder) count(s settings.Settings, key string, v int, set bool, floor int) (int, error) {
    if set {
        if v < floor {
            return 0, indexErr(b.name, key, ErrConfig, "must be at least %d, got %d", floor, v)
        }
        return v, nil
    }
    raw, ok := s.Get(key)
    if !ok {
        return 0, indexErr(b.name, key, ErrConfig, "not set")
    }
    n, err := strconv.Atoi(strings.TrimSpace(raw))
    if err != nil || n < floor {
        return 0, indexErr(b.name, key, ErrValue, "%q is not an integer >= %d", raw, floor)
    }
    return n, nil
}

func (b *IndexBuilder) setErr(err error) {
    if b.err == nil { b.err = err }
}
