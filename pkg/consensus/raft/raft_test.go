package raftcons

import (
    "context"
    "errors"
    "io"
    "log"
    "sync"
    "testing"
    "time"

    c "github.com/amirimatin/go-clustermeta/pkg/consensus"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
)

var discard = log.New(io.Discard, "", 0)

func awaitLeader(t *testing.T, n *Node) {
    t.Helper()
    deadline := time.Now().Add(3 * time.Second)
    for time.Now().Before(deadline) {
        if n.IsLeader() { return }
        time.Sleep(50 * time.Millisecond)
    }
    t.Fatalf("node %s did not become leader in time", n.opts.NodeID)
}

func TestOptions_Validate(t *testing.T) {
    if _, err := New(Options{}); err == nil { t.Fatalf("expected error on empty NodeID") }
    if err := (Options{NodeID: "n", ApplyTimeout: -1}).Validate(); err == nil {
        t.Fatalf("expected error on negative timeout")
    }
    if err := (Options{NodeID: "n", SnapshotsRetained: 1}).Validate(); err == nil {
        t.Fatalf("expected error on SnapshotsRetained without DataDir")
    }
}

func TestRaft_SingleNodeLeadership(t *testing.T) {
    n, err := New(Options{NodeID: "n1", Bootstrap: true, ApplyTimeout: 2 * time.Second, Logger: discard})
    if err != nil { t.Fatalf("new: %v", err) }

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := n.Start(ctx); err != nil { t.Fatalf("start: %v", err) }
    defer n.Stop()

    awaitLeader(t, n)

    select {
    case li, ok := <-n.LeaderCh():
        if !ok { t.Fatalf("leader channel closed unexpectedly") }
        if li.ID != "n1" { t.Fatalf("leader id = %q, want n1", li.ID) }
    case <-time.After(2 * time.Second):
        t.Fatalf("timed out waiting for leader event")
    }
}

func TestRaft_SingleNodePutDeleteIndex(t *testing.T) {
    n, err := New(Options{NodeID: "n1", Bootstrap: true, Logger: discard})
    if err != nil { t.Fatalf("new: %v", err) }
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := n.Start(ctx); err != nil { t.Fatalf("start: %v", err) }
    defer n.Stop()
    awaitLeader(t, n)

    im, err := md.NewIndexBuilder("logs").
        NumberOfShards(3).NumberOfReplicas(1).
        PutSetting("index.aliases.0", "recent").
        PutMapping("event", `{"event":{"properties":{"ts":{"type":"date"}}}}`).
        Build()
    if err != nil { t.Fatalf("build: %v", err) }

    pctx, pcancel := context.WithTimeout(ctx, 2*time.Second)
    defer pcancel()
    if err := n.PutIndex(pctx, im); err != nil { t.Fatalf("put index: %v", err) }

    got, ok := n.Metadata().Index("logs")
    if !ok { t.Fatalf("logs not applied") }
    if !got.Equal(im) { t.Fatalf("applied index differs:\n got %v\nwant %v", got.Settings(), im.Settings()) }
    if _, ok := got.Alias("recent"); !ok { t.Fatalf("migrated alias lost in replication") }

    if err := n.DeleteIndex(pctx, "logs"); err != nil { t.Fatalf("delete index: %v", err) }
    if n.Metadata().HasIndex("logs") { t.Fatalf("logs still present") }
}

func TestRaft_ProposeErrors(t *testing.T) {
    n, err := New(Options{NodeID: "n1", Logger: discard})
    if err != nil { t.Fatalf("new: %v", err) }
    if err := n.DeleteIndex(context.Background(), "x"); !errors.Is(err, c.ErrNotStarted) {
        t.Fatalf("got %v, want ErrNotStarted", err)
    }

    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    if err := n.DeleteIndex(ctx, "x"); !errors.Is(err, context.Canceled) {
        t.Fatalf("got %v, want context.Canceled", err)
    }

    // not bootstrapped: never elects itself
    sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer scancel()
    if err := n.Start(sctx); err != nil { t.Fatalf("start: %v", err) }
    defer n.Stop()
    if err := n.DeleteIndex(sctx, "x"); !errors.Is(err, c.ErrNotLeader) {
        t.Fatalf("got %v, want ErrNotLeader", err)
    }
}

// Stop runs from the ctx watcher and from the caller at once while readers
// keep polling; every call after the first is a no-op.
func TestRaft_StopIsSafeUnderConcurrentUse(t *testing.T) {
    n, err := New(Options{NodeID: "n1", Bootstrap: true, DataDir: t.TempDir(), Logger: discard})
    if err != nil { t.Fatalf("new: %v", err) }
    ctx, cancel := context.WithCancel(context.Background())
    if err := n.Start(ctx); err != nil { t.Fatalf("start: %v", err) }
    awaitLeader(t, n)

    done := make(chan struct{})
    var wg sync.WaitGroup
    for i := 0; i < 4; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for {
                select {
                case <-done:
                    return
                default:
                }
                _ = n.IsLeader()
                _, _, _ = n.Leader()
                _ = n.Term()
                _ = n.Addr()
            }
        }()
    }

    cancel()
    if err := n.Stop(); err != nil { t.Fatalf("stop: %v", err) }
    if err := n.Stop(); err != nil { t.Fatalf("second stop: %v", err) }
    close(done)
    wg.Wait()

    if n.IsLeader() { t.Fatalf("stopped node still reports leadership") }
    if n.Term() != 0 { t.Fatalf("stopped node term = %d, want 0", n.Term()) }
    if err := n.DeleteIndex(context.Background(), "x"); !errors.Is(err, c.ErrNotStarted) {
        t.Fatalf("delete after stop: %v, want ErrNotStarted", err)
    }
    n.mu.Lock()
    obs, bolt := n.obs, n.bolt
    n.mu.Unlock()
    if obs != nil || bolt != nil { t.Fatalf("stop left observer or bolt store behind") }
}
