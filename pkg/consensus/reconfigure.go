package consensus

import "time"

// Reconfigurer grows or shrinks the voter set of a running cluster.
type Reconfigurer interface {
    AddVoter(id, addr string, timeout time.Duration) error
    RemoveServer(id string, timeout time.Duration) error
}
