// Package cluster runs a metadata node: the replicated store, its management
// API, joining through discovered seeds, and relaying writes from followers
// to the leader.
package cluster

import (
    "context"
    "errors"
    "fmt"
    "log"
    "sync"
    "time"

    "go.opentelemetry.io/otel/attribute"

    "github.com/amirimatin/go-clustermeta/pkg/consensus"
    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/observability/tracing"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// Cluster fronts an Engine for one node. Writes may be issued on any node;
// a follower relays them to the leader once.
type Cluster struct {
    opts Options
    eng  Engine
    log  *log.Logger

    mu     sync.Mutex
    run    struct{ started, closed bool }
    cancel context.CancelFunc
    eb     eventBus
}

// New validates opts. It performs no network activity; call Start.
func New(opts Options) (*Cluster, error) {
    if err := opts.Validate(); err != nil { return nil, err }
    if opts.Logger == nil { opts.Logger = log.Default() }
    if opts.JoinRetry <= 0 { opts.JoinRetry = 2 * time.Second }
    if opts.ReconfigureTimeout <= 0 { opts.ReconfigureTimeout = 3 * time.Second }
    return &Cluster{opts: opts, eng: opts.Engine, log: opts.Logger}, nil
}

// Start launches the engine and the management API, then joins through
// Discovery in the background.
func (c *Cluster) Start(ctx context.Context) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.run.started { return nil }
    obsmetrics.Register()

    if err := c.eng.Start(ctx); err != nil { return err }
    runCtx, cancel := context.WithCancel(context.Background())
    if c.opts.Server != nil {
        if err := c.opts.Server.Start(runCtx, api{c}); err != nil {
            cancel()
            _ = c.eng.Stop()
            return err
        }
        logutil.Infof(c.log, "management endpoint listening at %s", c.opts.Server.Addr())
    }
    c.cancel = cancel
    c.run.started = true

    go c.leaderLoop(runCtx)
    if c.opts.Discovery != nil { go c.joinLoop(runCtx) }
    return nil
}

// Stop shuts down the management API and the engine. It does not leave the
// voter set; call Leave first for a permanent departure.
func (c *Cluster) Stop(ctx context.Context) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    if !c.run.started || c.run.closed { return nil }
    c.run.closed = true
    c.cancel()
    if c.opts.Server != nil { _ = c.opts.Server.Stop(ctx) }
    return c.eng.Stop()
}

// Status reports this node's local view.
func (c *Cluster) Status(context.Context) transport.Status {
    st := transport.Status{
        NodeID:   c.opts.NodeID,
        RaftAddr: c.eng.Addr(),
        Term:     c.eng.Term(),
        IsLeader: c.eng.IsLeader(),
        Indices:  c.eng.Metadata().Indices().Len(),
    }
    if c.opts.Server != nil { st.MgmtAddr = c.opts.Server.Addr() }
    if id, _, ok := c.eng.Leader(); ok {
        st.LeaderID, st.Healthy = id, true
    }
    return st
}

// Metadata returns the metadata applied on this node, which may trail the
// leader.
func (c *Cluster) Metadata() md.Metadata { return c.eng.Metadata() }

// PutIndex creates or replaces im, relaying to the leader from a follower.
func (c *Cluster) PutIndex(ctx context.Context, im md.IndexMetadata) error {
    err := c.eng.PutIndex(ctx, im)
    if errors.Is(err, consensus.ErrNotLeader) && !transport.IsForwarded(ctx) {
        err = c.forward(ctx, "put_index", func(ctx context.Context, leader string) error {
            doc, err := md.IndexToXContent(im, xcontent.JSON)
            if err != nil { return err }
            fields, err := xcontent.ReadObject(doc)
            if err != nil { return err }
            return c.opts.Client.PutIndex(ctx, leader, im.Name(), fields[0].Value)
        })
    }
    if err != nil { return err }
    c.eb.publish(Event{Type: EventIndexPut, Index: im.Name()})
    return nil
}

// DeleteIndex removes an index, relaying to the leader from a follower.
func (c *Cluster) DeleteIndex(ctx context.Context, name string) error {
    err := c.eng.DeleteIndex(ctx, name)
    if errors.Is(err, consensus.ErrNotLeader) && !transport.IsForwarded(ctx) {
        err = c.forward(ctx, "delete_index", func(ctx context.Context, leader string) error {
            return c.opts.Client.DeleteIndex(ctx, leader, name)
        })
    }
    if err != nil { return err }
    c.eb.publish(Event{Type: EventIndexDeleted, Index: name})
    return nil
}

func (c *Cluster) forward(ctx context.Context, op string, send func(ctx context.Context, leader string) error) (err error) {
    ctx, end := tracing.StartSpan(ctx, "cluster.forward", attribute.String("op", op))
    defer end()
    defer func() { obsmetrics.WritesForwarded.WithLabelValues(op, obsmetrics.Result(err)).Inc() }()
    if c.opts.Client == nil { return consensus.ErrNotLeader }
    leader, err := c.leaderMgmt(ctx)
    if err != nil { return err }
    return send(transport.WithForwarded(ctx), leader)
}

// Join asks the leader to add this node as a voter. seed is any node's
// management address; empty means the leader found through Discovery. A
// refusal carrying a leader hint is retried once against the hint.
func (c *Cluster) Join(ctx context.Context, seed string) error {
    ctx, end := tracing.StartSpan(ctx, "cluster.Join")
    defer end()
    if c.opts.Client == nil { return ErrNoClient }
    target := seed
    if target == "" {
        var err error
        if target, err = c.leaderMgmt(ctx); err != nil { return err }
    }
    req := transport.JoinRequest{ID: c.opts.NodeID, RaftAddr: c.eng.Addr()}
    resp, err := c.opts.Client.PostJoin(ctx, target, req)
    if err == nil && !resp.Accepted && resp.Leader != "" && resp.Leader != target {
        resp, err = c.opts.Client.PostJoin(ctx, resp.Leader, req)
    }
    if err != nil { return err }
    if !resp.Accepted {
        if resp.Error != "" { return fmt.Errorf("%w: %s", ErrJoinRejected, resp.Error) }
        return ErrJoinRejected
    }
    return nil
}

// Leave asks the leader to remove this node from the voter set.
func (c *Cluster) Leave(ctx context.Context) error {
    if c.eng.IsLeader() {
        return c.eng.RemoveServer(c.opts.NodeID, c.opts.ReconfigureTimeout)
    }
    if c.opts.Client == nil { return ErrNoClient }
    leader, err := c.leaderMgmt(ctx)
    if err != nil { return err }
    resp, err := c.opts.Client.PostLeave(ctx, leader, transport.LeaveRequest{ID: c.opts.NodeID})
    if err != nil { return err }
    if !resp.Accepted { return fmt.Errorf("cluster: leave rejected: %s", resp.Error) }
    return nil
}

// leaderMgmt finds the management address of the leader: this node's own
// when it leads, otherwise the first discovered seed reporting leadership.
func (c *Cluster) leaderMgmt(ctx context.Context) (string, error) {
    if c.eng.IsLeader() && c.opts.Server != nil { return c.opts.Server.Addr(), nil }
    if c.opts.Discovery == nil || c.opts.Client == nil { return "", ErrNoLeader }
    seeds, err := c.opts.Discovery.Seeds(ctx)
    if err != nil { return "", fmt.Errorf("cluster: discovering seeds: %w", err) }
    for _, s := range seeds {
        st, err := c.opts.Client.GetStatus(ctx, s)
        if err != nil {
            logutil.Debugf(c.log, "status of seed %s: %v", s, err)
            continue
        }
        if st.IsLeader { return s, nil }
    }
    return "", ErrNoLeader
}

func (c *Cluster) joinLoop(ctx context.Context) {
    for {
        err := c.Join(ctx, "")
        if err == nil {
            logutil.Infof(c.log, "joined metadata cluster as %s", c.opts.NodeID)
            c.eb.publish(Event{Type: EventJoined})
            return
        }
        logutil.Warnf(c.log, "join: %v (retrying in %s)", err, c.opts.JoinRetry)
        select {
        case <-ctx.Done():
            return
        case <-time.After(c.opts.JoinRetry):
        }
    }
}

func (c *Cluster) leaderLoop(ctx context.Context) {
    ch := c.eng.LeaderCh()
    for {
        select {
        case <-ctx.Done():
            return
        case li, ok := <-ch:
            if !ok { return }
            logutil.Infof(c.log, "leader change observed: id=%s term=%d", li.ID, li.Term)
            c.eb.publish(Event{Type: EventLeaderChanged, Leader: &li})
            if c.opts.OnLeaderChange != nil { c.opts.OnLeaderChange(li) }
        }
    }
}
