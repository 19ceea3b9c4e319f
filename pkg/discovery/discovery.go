// Package discovery supplies the management addresses a metadata node
// contacts when it joins an existing cluster.
package discovery

import "context"

// Discovery returns host:port management addresses of existing nodes.
type Discovery interface {
    Seeds(ctx context.Context) ([]string, error)
}

// Func adapts a plain function to Discovery.
type Func func(ctx context.Context) ([]string, error)

func (f Func) Seeds(ctx context.Context) ([]string, error) { return f(ctx) }
