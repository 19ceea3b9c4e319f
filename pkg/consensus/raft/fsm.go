package raftcons

import (
    "encoding/json"
    "fmt"
    "io"
    "time"

    "github.com/hashicorp/raft"

    c "github.com/amirimatin/go-clustermeta/pkg/consensus"
    base "github.com/amirimatin/go-clustermeta/pkg/state"
    sm "github.com/amirimatin/go-clustermeta/pkg/state/metadata"
)

type deleteIndexPayload struct {
    Name string `json:"name"`
}

// metadataFSM bridges Raft Apply/Snapshot to a MetadataState.
type metadataFSM struct {
    ms base.MetadataState
}

func newMetadataFSM(ms base.MetadataState) *metadataFSM { return &metadataFSM{ms: ms} }

// Apply returns the state error, if any, as the log response. Unknown ops are
// rejected.
func (f *metadataFSM) Apply(l *raft.Log) interface{} {
    var cmd c.Command
    if err := json.Unmarshal(l.Data, &cmd); err != nil {
        return fmt.Errorf("raftcons: decoding log %d: %w", l.Index, err)
    }
    switch cmd.Op {
    case c.OpPutIndex:
        return f.ms.ApplyPutIndex(cmd.Payload)
    case c.OpDeleteIndex:
        var req deleteIndexPayload
        if err := json.Unmarshal(cmd.Payload, &req); err != nil { return err }
        return f.ms.ApplyDeleteIndex(req.Name)
    default:
        return fmt.Errorf("raftcons: unknown op %q", cmd.Op)
    }
}

func (f *metadataFSM) Snapshot() (raft.FSMSnapshot, error) {
    blob, err := f.ms.Snapshot()
    if err != nil { return nil, err }
    return &snapshot{blob: blob, at: time.Now()}, nil
}

func (f *metadataFSM) Restore(rc io.ReadCloser) error {
    defer rc.Close()
    data, err := io.ReadAll(rc)
    if err != nil { return err }
    return f.ms.Restore(data)
}

type snapshot struct {
    blob []byte
    at   time.Time
}

func (s *snapshot) Persist(sink raft.SnapshotSink) error {
    if _, err := sink.Write(s.blob); err != nil { _ = sink.Cancel(); return err }
    return sink.Close()
}

func (s *snapshot) Release() {}

var _ raft.FSM = (*metadataFSM)(nil)
var _ base.MetadataState = (*sm.State)(nil)
