package raftcons

import (
    "context"
    "testing"
    "time"

    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
)

func tcpNode(t *testing.T, id, dir string) *Node {
    t.Helper()
    n, err := New(Options{
        NodeID:            id,
        Logger:            discard,
        BindAddr:          "127.0.0.1:0",
        DataDir:           dir,
        SnapshotsRetained: 1,
        HeartbeatTimeout:  150 * time.Millisecond,
        ElectionTimeout:   300 * time.Millisecond,
        CommitTimeout:     50 * time.Millisecond,
        ApplyTimeout:      2 * time.Second,
    })
    if err != nil { t.Fatalf("new %s: %v", id, err) }
    return n
}

// Three nodes on TCP transports with bolt stores: replication of a put and a
// delete to every node.
func TestRaft_ThreeNodeReplication_TCP(t *testing.T) {
    t.Parallel()

    n1 := tcpNode(t, "n1", t.TempDir())
    n1.opts.Bootstrap = true
    n2 := tcpNode(t, "n2", t.TempDir())
    n3 := tcpNode(t, "n3", t.TempDir())

    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
    defer cancel()
    for _, n := range []*Node{n1, n2, n3} {
        if err := n.Start(ctx); err != nil { t.Fatalf("start %s: %v", n.opts.NodeID, err) }
        defer n.Stop()
    }

    awaitLeader(t, n1)
    if err := n1.AddVoter("n2", string(n2.addr), 3*time.Second); err != nil { t.Fatalf("AddVoter n2: %v", err) }
    if err := n1.AddVoter("n3", string(n3.addr), 3*time.Second); err != nil { t.Fatalf("AddVoter n3: %v", err) }

    im, err := md.NewIndexBuilder("svc").NumberOfShards(1).NumberOfReplicas(2).Build()
    if err != nil { t.Fatalf("build: %v", err) }
    if err := n1.PutIndex(ctx, im); err != nil { t.Fatalf("put index: %v", err) }

    await := func(n *Node, want bool) {
        t.Helper()
        dl := time.Now().Add(5 * time.Second)
        for time.Now().Before(dl) {
            if n.Metadata().HasIndex("svc") == want { return }
            time.Sleep(50 * time.Millisecond)
        }
        t.Fatalf("svc present=%v never observed on %s", want, n.opts.NodeID)
    }
    for _, n := range []*Node{n1, n2, n3} { await(n, true) }

    if err := n1.DeleteIndex(ctx, "svc"); err != nil { t.Fatalf("delete index: %v", err) }
    for _, n := range []*Node{n1, n2, n3} { await(n, false) }
}

// A restarted node replays its bolt-backed log and comes back with the same
// metadata.
func TestRaft_RestartRecoversFromDataDir(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()

    n := tcpNode(t, "solo", dir)
    n.opts.Bootstrap = true
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
    defer cancel()
    if err := n.Start(ctx); err != nil { t.Fatalf("start: %v", err) }
    awaitLeader(t, n)

    im, err := md.NewIndexBuilder("kept").NumberOfShards(4).NumberOfReplicas(0).
        PutMapping("doc", `{"doc":{}}`).
        Build()
    if err != nil { t.Fatalf("build: %v", err) }
    if err := n.PutIndex(ctx, im); err != nil { t.Fatalf("put index: %v", err) }
    before, err := n.StateSnapshot()
    if err != nil { t.Fatalf("snapshot: %v", err) }
    if err := n.Stop(); err != nil { t.Fatalf("stop: %v", err) }

    restarted := tcpNode(t, "solo", dir)
    restarted.opts.Bootstrap = true
    if err := restarted.Start(ctx); err != nil { t.Fatalf("restart: %v", err) }
    defer restarted.Stop()
    awaitLeader(t, restarted)

    dl := time.Now().Add(5 * time.Second)
    for time.Now().Before(dl) {
        after, err := restarted.StateSnapshot()
        if err == nil && string(after) == string(before) { return }
        time.Sleep(50 * time.Millisecond)
    }
    t.Fatalf("restarted node did not recover index kept")
}
