// Package bootstrap assembles a metadata node from flat configuration:
// Raft engine, management API, optional TLS and seed discovery.
package bootstrap

import (
    "context"
    "fmt"
    "log"
    "time"

    "github.com/amirimatin/go-clustermeta/pkg/cluster"
    cns "github.com/amirimatin/go-clustermeta/pkg/consensus"
    raftcons "github.com/amirimatin/go-clustermeta/pkg/consensus/raft"
    "github.com/amirimatin/go-clustermeta/pkg/discovery"
    dDNS "github.com/amirimatin/go-clustermeta/pkg/discovery/dns"
    dFile "github.com/amirimatin/go-clustermeta/pkg/discovery/file"
    dStatic "github.com/amirimatin/go-clustermeta/pkg/discovery/static"
    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    tlsx "github.com/amirimatin/go-clustermeta/pkg/security/tlsconfig"
    "github.com/amirimatin/go-clustermeta/pkg/transport/httpjson"
)

// Config is the flat input of Build.
type Config struct {
    NodeID   string
    RaftAddr string // empty: in-memory transport, single process only
    MgmtAddr string // empty: no management API
    DataDir  string // empty: in-memory log and snapshots
    // Bootstrap forms a new single-voter cluster on first start.
    Bootstrap bool

    // Seeds to join through. DiscoveryKind is "static" (default), "dns" or
    // "file"; with no seeds configured the node does not join.
    DiscoveryKind string
    SeedsCSV      string        // static
    DNSNamesCSV   string        // dns
    DNSPort       int           // dns, A/AAAA answers
    FilePath      string        // file
    FileEnv       string        // file
    DiscRefresh   time.Duration // dns and file cache

    // TLS for the management API, both served and dialed.
    TLS tlsx.Options

    ApplyTimeout time.Duration
    Logger       *log.Logger

    OnLeaderChange func(info cns.LeaderInfo)
}

// Build assembles a Cluster from cfg without starting it.
func Build(cfg Config) (*cluster.Cluster, error) {
    if cfg.Logger == nil { cfg.Logger = logutil.New("metadata") }

    disc, err := cfg.discovery()
    if err != nil { return nil, err }

    eng, err := raftcons.New(raftcons.Options{
        NodeID:       cfg.NodeID,
        Logger:       cfg.Logger,
        Bootstrap:    cfg.Bootstrap,
        BindAddr:     cfg.RaftAddr,
        DataDir:      cfg.DataDir,
        ApplyTimeout: cfg.ApplyTimeout,
    })
    if err != nil { return nil, err }

    srvTLS, err := cfg.TLS.Server()
    if err != nil { return nil, err }
    cliTLS, err := cfg.TLS.Client()
    if err != nil { return nil, err }

    opts := cluster.Options{
        NodeID:         cfg.NodeID,
        Engine:         eng,
        Logger:         cfg.Logger,
        OnLeaderChange: cfg.OnLeaderChange,
    }
    if cfg.MgmtAddr != "" {
        s := httpjson.NewServer(cfg.MgmtAddr, cfg.Logger)
        if srvTLS != nil { s.UseTLS(srvTLS) }
        opts.Server = s
    }
    if cfg.MgmtAddr != "" || disc != nil {
        c := httpjson.NewClient(3 * time.Second)
        if cliTLS != nil { c.UseTLS(cliTLS) }
        opts.Client = c
        opts.Discovery = disc
    }
    return cluster.New(opts)
}

// Run builds and starts the node. The caller stops it.
func Run(ctx context.Context, cfg Config) (*cluster.Cluster, error) {
    cl, err := Build(cfg)
    if err != nil { return nil, err }
    if err := cl.Start(ctx); err != nil { return nil, err }
    return cl, nil
}

// discovery returns nil when no seeds are configured.
func (cfg Config) discovery() (discovery.Discovery, error) {
    switch cfg.DiscoveryKind {
    case "", "static":
        seeds := dStatic.Parse(cfg.SeedsCSV)
        if len(seeds) == 0 { return nil, nil }
        return seeds, nil
    case "dns":
        names := dStatic.Parse(cfg.DNSNamesCSV)
        if len(names) == 0 { return nil, fmt.Errorf("bootstrap: dns discovery needs names") }
        return dDNS.New(dDNS.Options{Names: names, Port: cfg.DNSPort, Refresh: cfg.DiscRefresh}), nil
    case "file":
        if cfg.FilePath == "" && cfg.FileEnv == "" { return nil, fmt.Errorf("bootstrap: file discovery needs a path or env") }
        return dFile.New(dFile.Options{Path: cfg.FilePath, Env: cfg.FileEnv, Refresh: cfg.DiscRefresh}), nil
    default:
        return nil, fmt.Errorf("bootstrap: unknown discovery kind %q", cfg.DiscoveryKind)
    }
}
