package bootstrap

import (
    "context"
    "crypto/ecdsa"
    "crypto/elliptic"
    "crypto/rand"
    "crypto/x509"
    "crypto/x509/pkix"
    "encoding/pem"
    "io"
    "log"
    "math/big"
    "net"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-clustermeta/pkg/cluster"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    tlsx "github.com/amirimatin/go-clustermeta/pkg/security/tlsconfig"
    "github.com/amirimatin/go-clustermeta/pkg/transport/httpjson"
)

// makeCerts writes a CA and one node certificate valid for 127.0.0.1 as
// both server and client.
func makeCerts(t *testing.T, dir string) tlsx.Options {
    t.Helper()
    caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
    require.NoError(t, err)
    caTpl := &x509.Certificate{
        SerialNumber:          big.NewInt(1),
        Subject:               pkix.Name{CommonName: "metadata-ca"},
        NotBefore:             time.Now().Add(-time.Hour),
        NotAfter:              time.Now().Add(24 * time.Hour),
        KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
        IsCA:                  true,
        BasicConstraintsValid: true,
    }
    caDER, err := x509.CreateCertificate(rand.Reader, caTpl, caTpl, &caKey.PublicKey, caKey)
    require.NoError(t, err)

    nodeKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
    require.NoError(t, err)
    nodeTpl := &x509.Certificate{
        SerialNumber: big.NewInt(2),
        Subject:      pkix.Name{CommonName: "metadata-node"},
        NotBefore:    time.Now().Add(-time.Hour),
        NotAfter:     time.Now().Add(24 * time.Hour),
        KeyUsage:     x509.KeyUsageDigitalSignature,
        ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
        IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
    }
    nodeDER, err := x509.CreateCertificate(rand.Reader, nodeTpl, caTpl, &nodeKey.PublicKey, caKey)
    require.NoError(t, err)
    keyDER, err := x509.MarshalECPrivateKey(nodeKey)
    require.NoError(t, err)

    opts := tlsx.Options{
        Enable:   true,
        CAFile:   filepath.Join(dir, "ca.crt"),
        CertFile: filepath.Join(dir, "node.crt"),
        KeyFile:  filepath.Join(dir, "node.key"),
    }
    writePEM(t, opts.CAFile, "CERTIFICATE", caDER)
    writePEM(t, opts.CertFile, "CERTIFICATE", nodeDER)
    writePEM(t, opts.KeyFile, "EC PRIVATE KEY", keyDER)
    return opts
}

func writePEM(t *testing.T, path, typ string, der []byte) {
    t.Helper()
    require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}), 0o600))
}

func TestRun_MutualTLSJoinAndForward(t *testing.T) {
    opts := makeCerts(t, t.TempDir())
    quiet := log.New(io.Discard, "", 0)

    n1, err := Run(context.Background(), Config{
        NodeID: "n1", RaftAddr: "127.0.0.1:0", MgmtAddr: "127.0.0.1:0",
        Bootstrap: true, TLS: opts, Logger: quiet,
    })
    require.NoError(t, err)
    defer n1.Stop(context.Background())
    require.Eventually(t, func() bool { return n1.Status(context.Background()).IsLeader }, 10*time.Second, 20*time.Millisecond)
    leaderAddr := n1.Status(context.Background()).MgmtAddr

    n2, err := Run(context.Background(), Config{
        NodeID: "n2", RaftAddr: "127.0.0.1:0", MgmtAddr: "127.0.0.1:0",
        SeedsCSV: leaderAddr, TLS: opts, Logger: quiet,
    })
    require.NoError(t, err)
    defer n2.Stop(context.Background())
    require.Eventually(t, func() bool { return n2.Status(context.Background()).LeaderID == "n1" }, 15*time.Second, 50*time.Millisecond)

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    im, err := md.NewIndexBuilder("secure").NumberOfShards(1).NumberOfReplicas(1).Build()
    require.NoError(t, err)
    require.NoError(t, n2.PutIndex(ctx, im), "follower write relayed over TLS")
    _, ok := n1.Metadata().Index("secure")
    assert.True(t, ok)
    require.Eventually(t, func() bool { return hasIndex(n2, "secure") }, 10*time.Second, 50*time.Millisecond)

    // a client without a certificate is refused
    noCert, err := tlsx.Options{CAFile: opts.CAFile}.Client()
    require.NoError(t, err)
    _, err = httpjson.NewClient(time.Second).UseTLS(noCert).GetStatus(ctx, leaderAddr)
    assert.Error(t, err)

    cliTLS, err := opts.Client()
    require.NoError(t, err)
    st, err := httpjson.NewClient(time.Second).UseTLS(cliTLS).GetStatus(ctx, leaderAddr)
    require.NoError(t, err)
    assert.Equal(t, 1, st.Indices)
}

func hasIndex(c *cluster.Cluster, name string) bool {
    _, ok := c.Metadata().Index(name)
    return ok
}
