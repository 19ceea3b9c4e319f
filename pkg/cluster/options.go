package cluster

import (
    "errors"
    "log"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/consensus"
    "github.com/amirimatin/go-clustermeta/pkg/discovery"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
)

// Engine is the replicated metadata store a Cluster fronts. raftcons.Node
// implements it.
type Engine interface {
    consensus.Consensus
    consensus.MetadataStore
    consensus.Reconfigurer
    consensus.LeaderNotifier
    // Addr is the consensus address peers dial; empty before Start.
    Addr() string
}

// Options assemble a Cluster. bootstrap.Config produces them from flags.
type Options struct {
    NodeID string
    Engine Engine

    // Server exposes the management API; nil runs without one.
    Server transport.Server
    // Client reaches other nodes for joins and forwarded writes.
    Client transport.Client
    // Discovery lists management addresses of existing nodes. When set, the
    // node keeps asking the leader to add it until it succeeds.
    Discovery discovery.Discovery

    Logger *log.Logger

    // JoinRetry is the pause between join attempts. Defaults to 2s.
    JoinRetry time.Duration
    // ReconfigureTimeout bounds voter changes on the leader. Defaults to 3s.
    ReconfigureTimeout time.Duration

    OnLeaderChange func(info consensus.LeaderInfo)
}

func (o Options) Validate() error {
    if o.NodeID == "" { return errors.New("cluster: empty NodeID") }
    if o.Engine == nil { return errors.New("cluster: nil Engine") }
    if o.Discovery != nil && o.Client == nil { return errors.New("cluster: Discovery needs a Client") }
    return nil
}
