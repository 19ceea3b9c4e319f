package state

import "github.com/amirimatin/go-clustermeta/pkg/metadata"

// MetadataState is the replicated store behind the consensus layer. Writes
// arrive as encoded single-index documents so that every replica runs the
// same decode path, legacy alias migration included.
type MetadataState interface {
    ApplyPutIndex(doc []byte) error
    ApplyDeleteIndex(name string) error
    Metadata() metadata.Metadata
    Snapshot() ([]byte, error)
    Restore(buf []byte) error
}
