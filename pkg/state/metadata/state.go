package metadata

import (
    "context"
    "fmt"
    "log"
    "sync"

    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
    "github.com/amirimatin/go-clustermeta/pkg/observability/tracing"
    base "github.com/amirimatin/go-clustermeta/pkg/state"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

const (
    opPutIndex    = "put_index"
    opDeleteIndex = "delete_index"
    opRestore     = "restore"
)

// State is an in-memory metadata state machine. Every change swaps in a new
// immutable md.Metadata, so readers never observe a partial update.
type State struct {
    mu  sync.RWMutex
    cur md.Metadata
    log *log.Logger
}

type Option func(*State)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *log.Logger) Option { return func(s *State) { s.log = l } }

func New(opts ...Option) *State {
    s := &State{}
    for _, o := range opts { o(s) }
    if s.log == nil { s.log = log.Default() }
    return s
}

// ApplyPutIndex decodes a single {"<index>": {...}} JSON document and adds or
// replaces that index.
func (s *State) ApplyPutIndex(doc []byte) (err error) {
    _, end := tracing.StartSpan(context.Background(), "state.PutIndex")
    defer end()
    defer func() { obsmetrics.StateApplied.WithLabelValues(opPutIndex, obsmetrics.Result(err)).Inc() }()

    im, err := md.IndexFromXContent(doc, xcontent.JSON)
    if err != nil { return fmt.Errorf("state: put index: %w", err) }

    s.mu.Lock(); defer s.mu.Unlock()
    next, err := md.NewBuilderFrom(s.cur).PutIndex(im).Build()
    if err != nil { return fmt.Errorf("state: put index [%s]: %w", im.Name(), err) }
    s.swap(next)
    logutil.Infof(s.log, "state: index [%s] stored (shards=%d replicas=%d aliases=%d)",
        im.Name(), im.NumberOfShards(), im.NumberOfReplicas(), im.Aliases().Len())
    return nil
}

// ApplyDeleteIndex removes an index. Deleting an unknown index is a no-op.
func (s *State) ApplyDeleteIndex(name string) (err error) {
    _, end := tracing.StartSpan(context.Background(), "state.DeleteIndex")
    defer end()
    defer func() { obsmetrics.StateApplied.WithLabelValues(opDeleteIndex, obsmetrics.Result(err)).Inc() }()

    if name == "" { return fmt.Errorf("state: empty index name") }
    s.mu.Lock(); defer s.mu.Unlock()
    if !s.cur.HasIndex(name) { return nil }
    next, err := md.NewBuilderFrom(s.cur).Remove(name).Build()
    if err != nil { return fmt.Errorf("state: delete index [%s]: %w", name, err) }
    s.swap(next)
    logutil.Infof(s.log, "state: index [%s] deleted", name)
    return nil
}

// Metadata returns the current snapshot. It is immutable and may be retained.
func (s *State) Metadata() md.Metadata {
    s.mu.RLock(); defer s.mu.RUnlock()
    return s.cur
}

// Snapshot encodes the state as the canonical metadata document.
func (s *State) Snapshot() ([]byte, error) {
    _, end := tracing.StartSpan(context.Background(), "state.Snapshot")
    defer end()
    s.mu.RLock(); defer s.mu.RUnlock()
    return md.ToJSON(s.cur)
}

// Restore replaces the state with a decoded metadata document. Documents
// written by older serializers are upgraded on the way in.
func (s *State) Restore(buf []byte) (err error) {
    _, end := tracing.StartSpan(context.Background(), "state.Restore")
    defer end()
    defer func() { obsmetrics.StateApplied.WithLabelValues(opRestore, obsmetrics.Result(err)).Inc() }()

    next, err := md.FromXContent(buf, xcontent.Detect(buf))
    if err != nil {
        logutil.Errorf(s.log, "state: restore failed: %v", err)
        return fmt.Errorf("state: restore: %w", err)
    }
    s.mu.Lock(); defer s.mu.Unlock()
    s.swap(next)
    logutil.Infof(s.log, "state: restored %d indices", next.Indices().Len())
    return nil
}

func (s *State) swap(next md.Metadata) {
    s.cur = next
    obsmetrics.StateIndices.Set(float64(next.Indices().Len()))
}

// Ensure interface satisfaction at compile-time.
var _ base.MetadataState = (*State)(nil)
