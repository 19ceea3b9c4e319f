package consensus

// LeaderInfo describes the current known leader.
type LeaderInfo struct {
    ID   string
    Addr string
    Term uint64
}

// LeaderNotifier is implemented by engines that publish leadership changes.
// Sends must never block the engine; slow readers may miss intermediate
// updates but always see the latest one eventually.
type LeaderNotifier interface {
    LeaderCh() <-chan LeaderInfo
}
