package cluster

import "errors"

var (
    ErrNoLeader     = errors.New("cluster: leader unknown")
    ErrJoinRejected = errors.New("cluster: join rejected")
    ErrNoClient     = errors.New("cluster: no management client configured")
)
