package cli

import (
    "context"
    "encoding/json"
    "io"
    "log"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/amirimatin/go-clustermeta/pkg/bootstrap"
    "github.com/amirimatin/go-clustermeta/pkg/cluster"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
)

func startNode(t *testing.T) (*cluster.Cluster, string) {
    t.Helper()
    cl, err := bootstrap.Run(context.Background(), bootstrap.Config{
        NodeID:    "n1",
        RaftAddr:  "127.0.0.1:0",
        MgmtAddr:  "127.0.0.1:0",
        Bootstrap: true,
        Logger:    log.New(io.Discard, "", 0),
    })
    require.NoError(t, err)
    t.Cleanup(func() { _ = cl.Stop(context.Background()) })
    require.Eventually(t, func() bool { return cl.Status(context.Background()).IsLeader }, 10*time.Second, 20*time.Millisecond)
    return cl, cl.Status(context.Background()).MgmtAddr
}

func TestRemote_PutGetDelete(t *testing.T) {
    cl, addr := startNode(t)

    out, err := run(t, "", "remote", "status", "--addr", addr)
    require.NoError(t, err)
    var st transport.Status
    require.NoError(t, json.Unmarshal([]byte(out), &st))
    assert.Equal(t, "n1", st.NodeID)
    assert.True(t, st.IsLeader)

    body := "number_of_shards: 1\nnumber_of_replicas: 0\nsettings:\n  index.aliases.0: recent\n"
    out, err = run(t, body, "remote", "put", "logs", "--addr", addr)
    require.NoError(t, err)
    assert.Equal(t, "put [logs]\n", out)
    im, ok := cl.Metadata().Index("logs")
    require.True(t, ok)
    assert.Equal(t, []string{"recent"}, im.Aliases().Keys())

    out, err = run(t, "", "remote", "get", "--addr", addr)
    require.NoError(t, err)
    m, err := md.FromJSON([]byte(out))
    require.NoError(t, err)
    assert.True(t, m.Equal(cl.Metadata()))

    out, err = run(t, "", "remote", "get", "--addr", addr, "--to", "yaml")
    require.NoError(t, err)
    assert.Contains(t, out, "meta-data:")

    out, err = run(t, "", "remote", "delete", "logs", "--addr", addr)
    require.NoError(t, err)
    assert.Equal(t, "deleted [logs]\n", out)
    assert.Equal(t, 0, cl.Metadata().Indices().Len())
}

func TestRemote_PutRejectsBadBodyLocally(t *testing.T) {
    _, err := run(t, `{"number_of_shards":"many","number_of_replicas":0}`, "remote", "put", "x", "--addr", "127.0.0.1:1")
    assert.ErrorIs(t, err, md.ErrValue)
}
