package raftcons

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strconv"
    "sync"
    "time"

    "github.com/hashicorp/raft"
    raftboltdb "github.com/hashicorp/raft-boltdb"

    c "github.com/amirimatin/go-clustermeta/pkg/consensus"
    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/observability/tracing"
    base "github.com/amirimatin/go-clustermeta/pkg/state"
    sm "github.com/amirimatin/go-clustermeta/pkg/state/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

const defaultApplyTimeout = 5 * time.Second

// Node replicates cluster metadata with HashiCorp Raft. Every node applies
// committed index changes to its MetadataState; writes go to the leader.
type Node struct {
    opts Options
    log  *log.Logger
    lch  chan c.LeaderInfo
    ms   base.MetadataState

    // mu guards the fields below; Stop clears them.
    mu    sync.Mutex
    r     *raft.Raft
    addr  raft.ServerAddress
    trans raft.Transport
    lb    raft.LoopbackTransport
    bolt  *raftboltdb.BoltStore
    obs   *raft.Observer
    obsCh chan raft.Observation
}

func New(opts Options) (*Node, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.Logger == nil { opts.Logger = log.Default() }
    ms := opts.State
    if ms == nil { ms = sm.New(sm.WithLogger(opts.Logger)) }
    return &Node{opts: opts, log: opts.Logger, lch: make(chan c.LeaderInfo, 16), ms: ms}, nil
}

func (n *Node) Start(ctx context.Context) error {
    if n.current() != nil { return nil }

    cfg := raft.DefaultConfig()
    cfg.LocalID = raft.ServerID(n.opts.NodeID)
    if n.opts.HeartbeatTimeout > 0 {
        cfg.HeartbeatTimeout = n.opts.HeartbeatTimeout
        // lease must not exceed the heartbeat timeout
        if cfg.LeaderLeaseTimeout > cfg.HeartbeatTimeout {
            cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout / 2
            if cfg.LeaderLeaseTimeout == 0 { cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout }
        }
    }
    if n.opts.ElectionTimeout > 0 { cfg.ElectionTimeout = n.opts.ElectionTimeout }
    if n.opts.CommitTimeout > 0 { cfg.CommitTimeout = n.opts.CommitTimeout }

    logs, stable, snaps, bolt, err := n.openStores()
    if err != nil { return err }
    addr, trans, err := n.openTransport()
    if err != nil { closeBolt(bolt); return err }

    r, err := raft.NewRaft(cfg, newMetadataFSM(n.ms), logs, stable, snaps, trans)
    if err != nil {
        closeBolt(bolt)
        return fmt.Errorf("raftcons: starting raft: %w", err)
    }
    n.mu.Lock()
    n.r, n.addr, n.trans, n.bolt = r, addr, trans, bolt
    if lb, ok := trans.(raft.LoopbackTransport); ok { n.lb = lb }
    n.observeLeadership(r)
    n.mu.Unlock()

    if n.opts.Bootstrap {
        servers := raft.Configuration{Servers: []raft.Server{{ID: cfg.LocalID, Address: addr}}}
        if err := r.BootstrapCluster(servers).Error(); err != nil && err != raft.ErrCantBootstrap {
            return fmt.Errorf("raftcons: bootstrap: %w", err)
        }
    }
    logutil.Infof(n.log, "raft: node %s started at %s (bootstrap=%v, data_dir=%q)", n.opts.NodeID, addr, n.opts.Bootstrap, n.opts.DataDir)

    go func() {
        <-ctx.Done()
        _ = n.Stop()
    }()
    return nil
}

// openStores returns bolt-backed stores when DataDir is set, else in-memory.
func (n *Node) openStores() (raft.LogStore, raft.StableStore, raft.SnapshotStore, *raftboltdb.BoltStore, error) {
    if n.opts.DataDir == "" {
        return raft.NewInmemStore(), raft.NewInmemStore(), raft.NewInmemSnapshotStore(), nil, nil
    }
    retain := n.opts.SnapshotsRetained
    if retain == 0 { retain = 2 }
    if err := os.MkdirAll(n.opts.DataDir, 0o755); err != nil { return nil, nil, nil, nil, err }
    bstore, err := raftboltdb.NewBoltStore(filepath.Join(n.opts.DataDir, "raft.db"))
    if err != nil { return nil, nil, nil, nil, fmt.Errorf("raftcons: opening bolt store: %w", err) }
    snaps, err := raft.NewFileSnapshotStore(n.opts.DataDir, retain, n.log.Writer())
    if err != nil {
        _ = bstore.Close()
        return nil, nil, nil, nil, fmt.Errorf("raftcons: opening snapshot store: %w", err)
    }
    return bstore, bstore, snaps, bstore, nil
}

func closeBolt(b *raftboltdb.BoltStore) {
    if b != nil { _ = b.Close() }
}

// current returns the running raft instance, nil before Start or after Stop.
func (n *Node) current() *raft.Raft {
    n.mu.Lock()
    defer n.mu.Unlock()
    return n.r
}

func (n *Node) openTransport() (raft.ServerAddress, raft.Transport, error) {
    if n.opts.BindAddr == "" {
        addr, trans := raft.NewInmemTransport(raft.ServerAddress(n.opts.NodeID))
        return addr, trans, nil
    }
    nt, err := raft.NewTCPTransport(n.opts.BindAddr, nil, 3, time.Second, os.Stderr)
    if err != nil { return "", nil, fmt.Errorf("raftcons: tcp transport: %w", err) }
    return nt.LocalAddr(), nt, nil
}

// observeLeadership forwards raft leader observations to LeaderCh and the
// leader metrics until Stop closes the observation channel. Callers hold mu.
func (n *Node) observeLeadership(r *raft.Raft) {
    obsCh := make(chan raft.Observation, 32)
    observer := raft.NewObserver(obsCh, false, func(o *raft.Observation) bool {
        _, ok := o.Data.(raft.LeaderObservation)
        return ok
    })
    r.RegisterObserver(observer)
    n.obs, n.obsCh = observer, obsCh
    go func() {
        for range obsCh {
            obsmetrics.LeaderChanges.Inc()
            n.publishLeader()
        }
    }()
    go func() {
        // raft may elect before the observer sees anything
        time.Sleep(50 * time.Millisecond)
        n.publishLeader()
    }()
}

func (n *Node) publishLeader() {
    r := n.current()
    if r == nil {
        obsmetrics.IsLeader.Set(0)
        return
    }
    if r.State() == raft.Leader {
        obsmetrics.IsLeader.Set(1)
    } else {
        obsmetrics.IsLeader.Set(0)
    }
    if a, sid := r.LeaderWithID(); sid != "" {
        n.emitLeader(c.LeaderInfo{ID: string(sid), Addr: string(a), Term: term(r)})
    }
}

func (n *Node) Apply(cmd c.Command, timeout time.Duration) error {
    r := n.current()
    if r == nil { return c.ErrNotStarted }
    if r.State() != raft.Leader { return c.ErrNotLeader }
    data, err := json.Marshal(cmd)
    if err != nil { return err }
    t := timeout
    if t <= 0 { t = n.opts.ApplyTimeout }
    if t <= 0 { t = defaultApplyTimeout }
    af := r.Apply(data, t)
    if err := af.Error(); err != nil {
        if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) { return c.ErrNotLeader }
        return err
    }
    if v := af.Response(); v != nil {
        if e, ok := v.(error); ok && e != nil { return e }
    }
    return nil
}

// PutIndex replicates im to every node. It returns once the change is
// committed and applied on the leader.
func (n *Node) PutIndex(ctx context.Context, im md.IndexMetadata) error {
    ctx, end := tracing.StartSpan(ctx, "raft.PutIndex")
    defer end()
    doc, err := md.IndexToXContent(im, xcontent.JSON)
    if err != nil { return err }
    if err := n.propose(ctx, c.Command{Op: c.OpPutIndex, Payload: doc}); err != nil {
        return fmt.Errorf("raftcons: put index [%s]: %w", im.Name(), err)
    }
    return nil
}

// DeleteIndex replicates the removal of an index.
func (n *Node) DeleteIndex(ctx context.Context, name string) error {
    ctx, end := tracing.StartSpan(ctx, "raft.DeleteIndex")
    defer end()
    payload, err := json.Marshal(deleteIndexPayload{Name: name})
    if err != nil { return err }
    if err := n.propose(ctx, c.Command{Op: c.OpDeleteIndex, Payload: payload}); err != nil {
        return fmt.Errorf("raftcons: delete index [%s]: %w", name, err)
    }
    return nil
}

// propose applies cmd with a timeout taken from ctx when it carries a
// deadline.
func (n *Node) propose(ctx context.Context, cmd c.Command) error {
    if err := ctx.Err(); err != nil { return err }
    var timeout time.Duration
    if dl, ok := ctx.Deadline(); ok {
        timeout = time.Until(dl)
        if timeout <= 0 { return context.DeadlineExceeded }
    }
    return n.Apply(cmd, timeout)
}

// Metadata returns the metadata applied on this node. Followers may lag the
// leader.
func (n *Node) Metadata() md.Metadata { return n.ms.Metadata() }

// Addr is the raft address other nodes reach this one on; empty before Start.
func (n *Node) Addr() string {
    n.mu.Lock()
    defer n.mu.Unlock()
    return string(n.addr)
}

func (n *Node) IsLeader() bool {
    r := n.current()
    return r != nil && r.State() == raft.Leader
}

func (n *Node) Leader() (id string, addr string, ok bool) {
    r := n.current()
    if r == nil { return "", "", false }
    a, sid := r.LeaderWithID()
    if sid == "" { return "", "", false }
    return string(sid), string(a), true
}

func (n *Node) Term() uint64 {
    r := n.current()
    if r == nil { return 0 }
    return term(r)
}

func term(r *raft.Raft) uint64 {
    if v := r.Stats()["current_term"]; v != "" {
        if u, err := strconv.ParseUint(v, 10, 64); err == nil { return u }
    }
    return 0
}

// Stop shuts raft down and releases its stores. Only the first of several
// concurrent or repeated calls does any work.
func (n *Node) Stop() error {
    n.mu.Lock()
    r, bolt, obs, obsCh := n.r, n.bolt, n.obs, n.obsCh
    n.r, n.bolt, n.obs, n.obsCh = nil, nil, nil, nil
    n.mu.Unlock()
    if r == nil { return nil }

    err := r.Shutdown().Error()
    if obs != nil { r.DeregisterObserver(obs) }
    if obsCh != nil { close(obsCh) }
    closeBolt(bolt)
    obsmetrics.IsLeader.Set(0)
    if err != nil { return fmt.Errorf("raftcons: shutdown: %w", err) }
    logutil.Infof(n.log, "raft: node %s stopped", n.opts.NodeID)
    return nil
}

var (
    _ c.Consensus      = (*Node)(nil)
    _ c.LeaderNotifier = (*Node)(nil)
    _ c.Reconfigurer   = (*Node)(nil)
    _ c.MetadataStore  = (*Node)(nil)
)

func (n *Node) LeaderCh() <-chan c.LeaderInfo { return n.lch }

func (n *Node) emitLeader(li c.LeaderInfo) {
    select {
    case n.lch <- li:
    default:
        // full: drop, a later observation carries the current leader
    }
}

// StateSnapshot returns the canonical metadata document applied on this node.
func (n *Node) StateSnapshot() ([]byte, error) { return n.ms.Snapshot() }

// AddVoter adds a voting server, replacing an entry with the same ID but a
// different address.
func (n *Node) AddVoter(id, addr string, timeout time.Duration) error {
    r := n.current()
    if r == nil { return c.ErrNotStarted }
    cfg := r.GetConfiguration()
    if err := cfg.Error(); err == nil {
        for _, srv := range cfg.Configuration().Servers {
            if string(srv.ID) != id { continue }
            if string(srv.Address) == addr { return nil }
            if err := r.RemoveServer(srv.ID, 0, timeout).Error(); err != nil { return err }
            break
        }
    }
    return r.AddVoter(raft.ServerID(id), raft.ServerAddress(addr), 0, timeout).Error()
}

// RemoveServer removes a server from the Raft cluster if present.
func (n *Node) RemoveServer(id string, timeout time.Duration) error {
    r := n.current()
    if r == nil { return c.ErrNotStarted }
    return r.RemoveServer(raft.ServerID(id), 0, timeout).Error()
}
