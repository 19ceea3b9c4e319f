package raftcons

import (
    "fmt"
    "log"
    "time"

    base "github.com/amirimatin/go-clustermeta/pkg/state"
)

// Options configure the Raft-backed metadata node.
type Options struct {
    NodeID string
    Logger *log.Logger

    // State is the metadata state machine driven by the log. A fresh
    // in-memory state is used when nil.
    State base.MetadataState

    // Bootstrap forms a single-node cluster on Start when true.
    Bootstrap bool

    // Zero timeouts keep the raft defaults.
    HeartbeatTimeout time.Duration
    ElectionTimeout  time.Duration
    CommitTimeout    time.Duration
    // ApplyTimeout bounds a proposal when the caller's context has no deadline.
    ApplyTimeout time.Duration

    // BindAddr selects a TCP transport (e.g. "127.0.0.1:0"); empty means an
    // in-memory transport.
    BindAddr string

    // DataDir selects a bolt log/stable store and a file snapshot store;
    // empty means in-memory stores.
    DataDir string

    // SnapshotsRetained is the number of on-disk snapshots kept (default 2).
    SnapshotsRetained int
}

// Validate reports the first unusable option.
func (o Options) Validate() error {
    if o.NodeID == "" { return fmt.Errorf("raftcons: empty NodeID") }
    if o.HeartbeatTimeout < 0 || o.ElectionTimeout < 0 || o.CommitTimeout < 0 || o.ApplyTimeout < 0 {
        return fmt.Errorf("raftcons: negative timeout")
    }
    if o.SnapshotsRetained < 0 { return fmt.Errorf("raftcons: negative SnapshotsRetained") }
    if o.SnapshotsRetained > 0 && o.DataDir == "" {
        return fmt.Errorf("raftcons: SnapshotsRetained requires DataDir")
    }
    return nil
}
