package cli

import (
    "bytes"
    "errors"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "github.com/spf13/cobra"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

const legacyYAML = `meta-data:
  indices:
    logs:
      number_of_shards: 2
      number_of_replicas: 1
      settings:
        index.aliases.0: recent
        index.aliases.1: errors
      mappings:
        event: {event: {properties: {level: {type: keyword}}}}
      aliases:
        errors:
          filter: {term: {level: error}}
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
    t.Helper()
    root := &cobra.Command{Use: "metactl", SilenceUsage: true, SilenceErrors: true}
    AddAll(root)
    var out bytes.Buffer
    root.SetOut(&out)
    root.SetErr(&out)
    root.SetIn(strings.NewReader(stdin))
    root.SetArgs(args)
    err := root.Execute()
    return out.String(), err
}

func TestConvert_YAMLToJSONMigrates(t *testing.T) {
    out, err := run(t, legacyYAML, "convert", "--to", "json")
    require.NoError(t, err)

    m, err := md.FromJSON([]byte(out))
    require.NoError(t, err)
    im, ok := m.Index("logs")
    require.True(t, ok)
    assert.Equal(t, []string{"errors", "recent"}, im.Aliases().Keys())
    assert.NotContains(t, out, "index.aliases")
    assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestConvert_FilesAndBSON(t *testing.T) {
    dir := t.TempDir()
    in := filepath.Join(dir, "meta.yaml")
    bsonOut := filepath.Join(dir, "meta.bson")
    require.NoError(t, os.WriteFile(in, []byte(legacyYAML), 0o644))

    _, err := run(t, "", "convert", "--in", in, "--out", bsonOut, "--to", "bson")
    require.NoError(t, err)
    data, err := os.ReadFile(bsonOut)
    require.NoError(t, err)
    assert.Equal(t, xcontent.BSON, xcontent.Detect(data))

    out, err := run(t, "", "convert", "--in", bsonOut, "--pretty")
    require.NoError(t, err)
    assert.Contains(t, out, "\n  \"meta-data\": {")

    _, err = run(t, "", "convert", "--in", bsonOut, "--to", "yaml", "--pretty")
    assert.Error(t, err)
}

func TestInspect(t *testing.T) {
    out, err := run(t, legacyYAML, "inspect")
    require.NoError(t, err)
    assert.Equal(t, "logs shards=2 replicas=1 settings=2 mappings=[event] aliases=[errors* recent]\n", out)

    out, err = run(t, legacyYAML, "inspect", "--dump")
    require.NoError(t, err)
    assert.Contains(t, out, "metadata.Metadata")
    assert.Contains(t, out, `"recent"`)
}

func TestValidate(t *testing.T) {
    out, err := run(t, legacyYAML, "validate", "--from", "yaml")
    require.NoError(t, err)
    assert.Equal(t, "ok: 1 indices\n", out)

    _, err = run(t, `{"meta-data":{"indices":{"x":{"number_of_shards":"many","number_of_replicas":0}}}}`, "validate")
    require.Error(t, err)
    assert.True(t, errors.Is(err, md.ErrValue))
    assert.Contains(t, err.Error(), "index [x]")

    _, err = run(t, "{}", "validate", "--from", "xml")
    assert.ErrorIs(t, err, xcontent.ErrUnknownContentType)

    _, err = run(t, "", "validate", "--in", filepath.Join(t.TempDir(), "missing.json"))
    assert.Error(t, err)
}

func TestServe_RequiresID(t *testing.T) {
    _, err := run(t, "", "serve")
    assert.Error(t, err)
}
