package tlsconfig

import (
    "crypto/tls"
    "crypto/x509"
    "errors"
    "fmt"
    "os"
)

// Options describe TLS material for the management API and for outbound
// connections such as the Elasticsearch client.
type Options struct {
    Enable             bool
    CAFile             string
    CertFile           string
    KeyFile            string
    InsecureSkipVerify bool
    ServerName         string
}

// Enabled reports whether TLS was requested explicitly or implied by a file.
func (o Options) Enabled() bool {
    return o.Enable || o.CAFile != "" || o.CertFile != "" || o.InsecureSkipVerify
}

// Client returns a client tls.Config, or nil when TLS is not enabled. A CA
// file replaces the system roots; a cert/key pair enables mutual TLS.
func (o Options) Client() (*tls.Config, error) {
    if !o.Enabled() { return nil, nil }
    if (o.CertFile == "") != (o.KeyFile == "") {
        return nil, errors.New("tls: cert and key must be given together")
    }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: o.InsecureSkipVerify} //nolint:gosec
    if o.ServerName != "" { cfg.ServerName = o.ServerName }
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.RootCAs = pool
    }
    if o.CertFile != "" {
        cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
        if err != nil { return nil, fmt.Errorf("tls: loading key pair: %w", err) }
        cfg.Certificates = []tls.Certificate{cert}
    }
    return cfg, nil
}

// Server returns a server tls.Config, or nil when TLS is not enabled. A CA
// file turns on mutual TLS.
func (o Options) Server() (*tls.Config, error) {
    if !o.Enabled() { return nil, nil }
    if o.CertFile == "" || o.KeyFile == "" { return nil, errors.New("tls: server needs cert and key") }
    cert, err := tls.LoadX509KeyPair(o.CertFile, o.KeyFile)
    if err != nil { return nil, fmt.Errorf("tls: loading key pair: %w", err) }
    cfg := &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
    if o.CAFile != "" {
        pool, err := loadPool(o.CAFile)
        if err != nil { return nil, err }
        cfg.ClientCAs = pool
        cfg.ClientAuth = tls.RequireAndVerifyClientCert
    }
    return cfg, nil
}

func loadPool(path string) (*x509.CertPool, error) {
    pem, err := os.ReadFile(path)
    if err != nil { return nil, fmt.Errorf("tls: reading CA: %w", err) }
    pool := x509.NewCertPool()
    if !pool.AppendCertsFromPEM(pem) { return nil, fmt.Errorf("tls: no certificates in %s", path) }
    return pool, nil
}
