package consensus

import (
    "context"
    "errors"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/metadata"
)

// Log operations understood by the metadata state machine.
const (
    // OpPutIndex carries a single-index JSON document.
    OpPutIndex = "PutIndex"
    // OpDeleteIndex carries {"name": "<index>"}.
    OpDeleteIndex = "DeleteIndex"
)

var (
    ErrNotStarted = errors.New("consensus: not started")
    ErrNotLeader  = errors.New("consensus: not leader")
)

// Command is one replicated log entry. Op selects the state transition and
// Payload carries its encoded argument.
type Command struct {
    Op      string
    Payload []byte
}

// Consensus is the minimal abstraction over a leader-based consensus engine
// (e.g., RAFT). It exposes leadership, term information and a write path.
type Consensus interface {
    Start(ctx context.Context) error
    Apply(cmd Command, timeout time.Duration) error
    IsLeader() bool
    Leader() (id string, addr string, ok bool)
    Term() uint64
    Stop() error
}

// MetadataStore replicates index changes through the log and serves the
// locally applied metadata. Writes must go to the leader.
type MetadataStore interface {
    PutIndex(ctx context.Context, im metadata.IndexMetadata) error
    DeleteIndex(ctx context.Context, name string) error
    Metadata() metadata.Metadata
}
