// Package transport defines the management API a metadata node exposes to
// operators and to the other nodes: status, metadata reads, index writes and
// join/leave. httpjson provides the HTTP/JSON binding.
package transport

import (
    "context"
    "fmt"
)

// Status is the local view of one node.
type Status struct {
    NodeID   string `json:"node_id"`
    MgmtAddr string `json:"mgmt_addr"`
    RaftAddr string `json:"raft_addr"`
    Term     uint64 `json:"term"`
    LeaderID string `json:"leader_id,omitempty"`
    IsLeader bool   `json:"is_leader"`
    // Healthy is true when a leader is known.
    Healthy bool `json:"healthy"`
    Indices int  `json:"indices"`
}

// JoinRequest asks the leader to add a voter.
type JoinRequest struct {
    ID       string `json:"id"`
    RaftAddr string `json:"raft_addr"`
}

// JoinResponse carries a leader hint when the receiver is not the leader.
type JoinResponse struct {
    Accepted bool   `json:"accepted"`
    Leader   string `json:"leader,omitempty"`
    Error    string `json:"error,omitempty"`
}

// LeaveRequest asks the leader to remove a voter.
type LeaveRequest struct {
    ID string `json:"id"`
}

type LeaveResponse struct {
    Accepted bool   `json:"accepted"`
    Error    string `json:"error,omitempty"`
}

// Handler serves the management API on a node. Metadata returns canonical
// JSON; PutIndex takes a single-index {"<name>": {...}} JSON document.
type Handler interface {
    Status(ctx context.Context) Status
    Metadata(ctx context.Context) ([]byte, error)
    PutIndex(ctx context.Context, doc []byte) error
    DeleteIndex(ctx context.Context, name string) error
    Join(ctx context.Context, req JoinRequest) (JoinResponse, error)
    Leave(ctx context.Context, req LeaveRequest) (LeaveResponse, error)
}

// Server exposes a Handler until ctx is done or Stop is called.
type Server interface {
    Start(ctx context.Context, h Handler) error
    Addr() string
    Stop(ctx context.Context) error
}

// Client calls the management API of the node at addr (host:port). PutIndex
// sends the body of one index, without the name wrapper.
type Client interface {
    GetStatus(ctx context.Context, addr string) (Status, error)
    GetMetadata(ctx context.Context, addr string) ([]byte, error)
    PutIndex(ctx context.Context, addr, name string, body []byte) error
    DeleteIndex(ctx context.Context, addr, name string) error
    PostJoin(ctx context.Context, addr string, req JoinRequest) (JoinResponse, error)
    PostLeave(ctx context.Context, addr string, req LeaveRequest) (LeaveResponse, error)
}

// StatusError is a non-2xx answer from a remote node.
type StatusError struct {
    Code    int
    Message string
}

func (e *StatusError) Error() string { return fmt.Sprintf("status %d: %s", e.Code, e.Message) }

// ForwardedHeader marks a write a follower relayed to the leader. The
// receiver applies it locally or fails; it never relays it again.
const ForwardedHeader = "X-Metadata-Forwarded"

type forwardedKey struct{}

// WithForwarded marks ctx as carrying a relayed write.
func WithForwarded(ctx context.Context) context.Context {
    return context.WithValue(ctx, forwardedKey{}, true)
}

// IsForwarded reports whether ctx carries a relayed write.
func IsForwarded(ctx context.Context) bool {
    v, _ := ctx.Value(forwardedKey{}).(bool)
    return v
}
