package cluster

import (
    "context"
    "sync"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/consensus"
)

type EventType string

const (
    EventLeaderChanged EventType = "leader_changed"
    EventJoined        EventType = "joined"
    EventIndexPut      EventType = "index_put"
    EventIndexDeleted  EventType = "index_deleted"
)

// Event describes a change observed or made by this node. Only the fields of
// the event's type are set.
type Event struct {
    Type   EventType
    At     time.Time
    Leader *consensus.LeaderInfo
    Index  string
}

// Subscribe returns a buffered channel of events, closed when ctx is done.
// Events are dropped while the channel is full.
func (c *Cluster) Subscribe(ctx context.Context) <-chan Event {
    ch := make(chan Event, 64)
    c.eb.add(ch)
    go func() {
        <-ctx.Done()
        c.eb.remove(ch)
        close(ch)
    }()
    return ch
}

type eventBus struct {
    mu   sync.Mutex
    subs map[chan Event]struct{}
}

func (e *eventBus) add(ch chan Event) {
    e.mu.Lock()
    if e.subs == nil { e.subs = make(map[chan Event]struct{}) }
    e.subs[ch] = struct{}{}
    e.mu.Unlock()
}

func (e *eventBus) remove(ch chan Event) {
    e.mu.Lock()
    delete(e.subs, ch)
    e.mu.Unlock()
}

func (e *eventBus) publish(ev Event) {
    if ev.At.IsZero() { ev.At = time.Now() }
    e.mu.Lock()
    for ch := range e.subs {
        select {
        case ch <- ev:
        default:
        }
    }
    e.mu.Unlock()
}
