package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    DocumentsEncoded = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "codec",
        Name:      "documents_encoded_total",
        Help:      "Total metadata documents encoded, by content type and result",
    }, []string{"content_type", "result"})

    DocumentsDecoded = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "codec",
        Name:      "documents_decoded_total",
        Help:      "Total metadata documents decoded, by content type and result",
    }, []string{"content_type", "result"})

    LegacyAliasesMigrated = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "codec",
        Name:      "legacy_aliases_migrated_total",
        Help:      "Total aliases lifted out of index.aliases.<N> settings",
    })

    StateApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "state",
        Name:      "applied_total",
        Help:      "Total state operations applied, by operation and result",
    }, []string{"op", "result"})

    StateIndices = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_clustermeta",
        Subsystem: "state",
        Name:      "indices",
        Help:      "Number of indices in the current metadata state",
    })

    IsLeader = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_clustermeta",
        Name:      "is_leader",
        Help:      "1 if this node is the metadata leader, else 0",
    })

    LeaderChanges = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Name:      "leader_changes_total",
        Help:      "Total number of observed leader change events",
    })

    JoinRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "mgmt",
        Name:      "join_requests_total",
        Help:      "Join requests handled, by result",
    }, []string{"result"})

    WritesForwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "mgmt",
        Name:      "writes_forwarded_total",
        Help:      "Index writes forwarded from a follower to the leader, by op and result",
    }, []string{"op", "result"})

    IndicesApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_clustermeta",
        Subsystem: "elastic",
        Name:      "indices_applied_total",
        Help:      "Total indices materialized into Elasticsearch, by result",
    }, []string{"result"})
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(DocumentsEncoded)
        prometheus.MustRegister(DocumentsDecoded)
        prometheus.MustRegister(LegacyAliasesMigrated)
        prometheus.MustRegister(StateApplied)
        prometheus.MustRegister(StateIndices)
        prometheus.MustRegister(IsLeader)
        prometheus.MustRegister(LeaderChanges)
        prometheus.MustRegister(JoinRequests)
        prometheus.MustRegister(WritesForwarded)
        prometheus.MustRegister(IndicesApplied)
    })
}

// Result maps an error to the "result" label value.
func Result(err error) string {
    if err != nil { return "error" }
    return "ok"
}
