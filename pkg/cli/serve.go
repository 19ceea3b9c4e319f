package cli

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/spf13/cobra"

    "github.com/amirimatin/go-clustermeta/pkg/bootstrap"
    "github.com/amirimatin/go-clustermeta/pkg/cluster"
    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    obsmetrics "github.com/amirimatin/go-clustermeta/pkg/observability/metrics"
)

// NewServeCmd returns "serve": run a Raft-backed metadata node with a
// management API, optionally joining seeds and seeding it from a document.
func NewServeCmd() *cobra.Command {
    var (
        cfg                   bootstrap.Config
        in, from, metricsAddr string
        seedTimeout           time.Duration
    )
    cmd := &cobra.Command{
        Use:   "serve",
        Short: "Run a Raft-backed metadata node",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            if cfg.NodeID == "" { return fmt.Errorf("missing --id") }
            ctx, cancel := signalContext(cmd.Context())
            defer cancel()
            logger := logutil.New("metactl")
            cfg.Logger = logutil.New("node")

            obsmetrics.Register()
            if metricsAddr != "" {
                mux := http.NewServeMux()
                mux.Handle("/metrics", promhttp.Handler())
                srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
                go func() {
                    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
                        logutil.Errorf(logger, "metrics server: %v", err)
                    }
                }()
                defer func() { _ = srv.Shutdown(context.Background()) }()
            }

            cl, err := bootstrap.Run(ctx, cfg)
            if err != nil { return err }
            defer func() { _ = cl.Stop(context.Background()) }()

            if in != "" {
                m, err := loadMetadata(cmd, in, from)
                if err != nil { return err }
                if err := awaitLeader(ctx, cl, seedTimeout); err != nil { return err }
                for _, im := range m.Indices().All() {
                    if err := cl.PutIndex(ctx, im); err != nil { return err }
                }
                logutil.Infof(logger, "seeded %d indices from %s", m.Indices().Len(), displayName(in))
            }

            fmt.Fprintln(cmd.OutOrStdout(), "metadata node running. Press Ctrl+C to exit.")
            <-ctx.Done()
            return nil
        },
    }
    f := cmd.Flags()
    f.StringVar(&cfg.NodeID, "id", "", "node id (required)")
    f.StringVar(&cfg.RaftAddr, "raft-addr", "", "raft bind addr (tcp); empty uses an in-memory transport")
    f.StringVar(&cfg.MgmtAddr, "mgmt-addr", "", "management API bind addr, e.g. :7700; empty disables it")
    f.StringVar(&cfg.DataDir, "data-dir", "", "directory for the raft log and snapshots; empty keeps them in memory")
    f.BoolVar(&cfg.Bootstrap, "bootstrap", false, "bootstrap a single-node cluster")
    f.StringVar(&cfg.DiscoveryKind, "discovery", "static", "seed discovery: static|dns|file")
    f.StringVar(&cfg.SeedsCSV, "join", "", "comma-separated management addresses to join through (static)")
    f.StringVar(&cfg.DNSNamesCSV, "dns-names", "", "comma-separated SRV or host names (dns)")
    f.IntVar(&cfg.DNSPort, "dns-port", 0, "management port for A/AAAA answers (dns)")
    f.StringVar(&cfg.FilePath, "seeds-file", "", "seed file or glob (file)")
    f.StringVar(&cfg.FileEnv, "seeds-env", "", "environment variable overriding the seed file (file)")
    f.DurationVar(&cfg.DiscRefresh, "discovery-refresh", 0, "how long discovered seeds are cached")
    f.BoolVar(&cfg.TLS.Enable, "tls", false, "serve and dial the management API over TLS")
    f.StringVar(&cfg.TLS.CertFile, "tls-cert", "", "management API certificate (PEM)")
    f.StringVar(&cfg.TLS.KeyFile, "tls-key", "", "management API private key (PEM)")
    f.StringVar(&cfg.TLS.CAFile, "tls-ca", "", "CA bundle; enables mutual TLS")
    f.StringVar(&cfg.TLS.ServerName, "tls-server-name", "", "server name expected on peer certificates")
    f.StringVar(&in, "in", "", "metadata document to seed the node with")
    f.StringVar(&from, "from", "", "seed content type: json|yaml|bson (default: detect)")
    f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address as well")
    f.DurationVar(&cfg.ApplyTimeout, "apply-timeout", 5*time.Second, "raft proposal timeout")
    f.DurationVar(&seedTimeout, "seed-timeout", 30*time.Second, "how long to wait for a leader before seeding")
    return cmd
}

// awaitLeader waits until the node knows a leader.
func awaitLeader(ctx context.Context, cl *cluster.Cluster, timeout time.Duration) error {
    ctx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    for !cl.Status(ctx).Healthy {
        select {
        case <-ctx.Done():
            return fmt.Errorf("no leader elected: %w", ctx.Err())
        case <-time.After(50 * time.Millisecond):
        }
    }
    return nil
}
