package metadata

import (
    "errors"
    "io"
    "log"
    "testing"

    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

func quiet() Option { return WithLogger(log.New(io.Discard, "", 0)) }

func indexDoc(t *testing.T, ib *md.IndexBuilder) []byte {
    t.Helper()
    im, err := ib.Build()
    if err != nil { t.Fatalf("build %s: %v", ib.Name(), err) }
    doc, err := md.IndexToXContent(im, xcontent.JSON)
    if err != nil { t.Fatalf("encode %s: %v", ib.Name(), err) }
    return doc
}

func TestState_PutDeleteSnapshotRestore(t *testing.T) {
    s := New(quiet())

    if err := s.ApplyPutIndex(indexDoc(t, md.NewIndexBuilder("logs").NumberOfShards(2).NumberOfReplicas(1).
        PutAlias(md.NewAliasBuilder("errors").Filter(`{"term":{"level":"error"}}`)))); err != nil {
        t.Fatalf("put logs: %v", err)
    }
    if err := s.ApplyPutIndex(indexDoc(t, md.NewIndexBuilder("users").NumberOfShards(1).NumberOfReplicas(0).
        PutMapping("user", `{"user":{"properties":{"name":{"type":"keyword"}}}}`))); err != nil {
        t.Fatalf("put users: %v", err)
    }

    snap, err := s.Snapshot()
    if err != nil { t.Fatalf("snapshot: %v", err) }
    if len(snap) == 0 { t.Fatalf("empty snapshot") }

    if err := s.ApplyDeleteIndex("logs"); err != nil { t.Fatalf("delete logs: %v", err) }
    if s.Metadata().HasIndex("logs") { t.Fatalf("logs still present after delete") }

    s2 := New(quiet())
    if err := s2.Restore(snap); err != nil { t.Fatalf("restore: %v", err) }
    if !s2.Metadata().HasIndex("logs") { t.Fatalf("restored state lost logs") }

    snap2, err := s2.Snapshot()
    if err != nil { t.Fatalf("snapshot2: %v", err) }
    if string(snap2) != string(snap) {
        t.Fatalf("round-trip mismatch:\n got: %s\nwant: %s", snap2, snap)
    }
}

func TestState_PutReplaces(t *testing.T) {
    s := New(quiet())
    for _, replicas := range []int{1, 3} {
        doc := indexDoc(t, md.NewIndexBuilder("a").NumberOfShards(1).NumberOfReplicas(replicas))
        if err := s.ApplyPutIndex(doc); err != nil { t.Fatalf("put: %v", err) }
    }
    im, ok := s.Metadata().Index("a")
    if !ok { t.Fatalf("index a missing") }
    if im.NumberOfReplicas() != 3 { t.Fatalf("replicas = %d, want 3", im.NumberOfReplicas()) }
    if n := s.Metadata().Indices().Len(); n != 1 { t.Fatalf("indices = %d, want 1", n) }
}

func TestState_MetadataIsStableSnapshot(t *testing.T) {
    s := New(quiet())
    if err := s.ApplyPutIndex(indexDoc(t, md.NewIndexBuilder("a").NumberOfShards(1).NumberOfReplicas(0))); err != nil {
        t.Fatalf("put: %v", err)
    }
    before := s.Metadata()
    if err := s.ApplyDeleteIndex("a"); err != nil { t.Fatalf("delete: %v", err) }
    if !before.HasIndex("a") { t.Fatalf("earlier snapshot was mutated") }
}

func TestState_RestoreMigratesLegacyAliases(t *testing.T) {
    legacy := []byte(`{"meta-data":{"indices":{"old":{
        "number_of_shards":1,"number_of_replicas":1,
        "settings":{"index.aliases.0":"current","index.aliases.1":"archive"},
        "aliases":{"archive":{"filter":{"range":{"ts":{"lt":"2011"}}}}}}}}}`)
    s := New(quiet())
    if err := s.Restore(legacy); err != nil { t.Fatalf("restore: %v", err) }

    im, ok := s.Metadata().Index("old")
    if !ok { t.Fatalf("index old missing") }
    if got := im.Aliases().Keys(); len(got) != 2 || got[0] != "archive" || got[1] != "current" {
        t.Fatalf("aliases = %v, want [archive current]", got)
    }
    if im.Settings().ByPrefix(md.LegacyAliasPrefix).Len() != 0 {
        t.Fatalf("legacy keys survived: %s", im.Settings())
    }
}

func TestState_RestoreYAML(t *testing.T) {
    doc := []byte("meta-data:\n  indices:\n    a:\n      number_of_shards: 1\n      number_of_replicas: 0\n")
    s := New(quiet())
    if err := s.Restore(doc); err != nil { t.Fatalf("restore: %v", err) }
    if !s.Metadata().HasIndex("a") { t.Fatalf("index a missing") }
}

func TestState_Errors(t *testing.T) {
    s := New(quiet())
    if err := s.ApplyPutIndex([]byte(`{"a":{"number_of_shards":"x"}}`)); !errors.Is(err, md.ErrValue) {
        t.Fatalf("put bad shards: got %v, want ErrValue", err)
    }
    if err := s.ApplyPutIndex([]byte(`not json`)); !errors.Is(err, md.ErrStructure) {
        t.Fatalf("put garbage: got %v, want ErrStructure", err)
    }
    if err := s.ApplyDeleteIndex(""); err == nil {
        t.Fatalf("expected error on empty name")
    }
    if err := s.ApplyDeleteIndex("missing"); err != nil {
        t.Fatalf("delete of unknown index: %v", err)
    }
    if err := s.Restore([]byte(`{"indices":{}}`)); !errors.Is(err, md.ErrStructure) {
        t.Fatalf("restore without meta-data: got %v, want ErrStructure", err)
    }
    if s.Metadata().Indices().Len() != 0 { t.Fatalf("failed operations changed state") }
}
