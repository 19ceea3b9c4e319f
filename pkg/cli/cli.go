// Package cli holds the cobra commands of metactl so that services can embed
// them under their own root command.
package cli

import (
    "context"
    "fmt"
    "io"
    "os"
    "os/signal"
    "syscall"

    "github.com/spf13/cobra"

    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/observability/tracing"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// AddAll attaches the document, apply, serve and remote commands to root together with
// the shared --trace and --log-json flags.
func AddAll(root *cobra.Command) {
    var traceEnable, logJSON bool
    root.PersistentFlags().BoolVar(&traceEnable, "trace", false, "export OpenTelemetry spans to stderr")
    root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log one JSON object per line")

    var shutdown func(context.Context) error
    root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
        if logJSON { logutil.SetJSON(true) }
        var err error
        shutdown, err = tracing.Setup(traceEnable)
        if err != nil { return fmt.Errorf("tracing setup: %w", err) }
        return nil
    }
    root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
        if shutdown == nil { return nil }
        return shutdown(context.Background())
    }

    root.AddCommand(NewConvertCmd())
    root.AddCommand(NewInspectCmd())
    root.AddCommand(NewValidateCmd())
    root.AddCommand(NewApplyCmd())
    root.AddCommand(NewServeCmd())
    root.AddCommand(NewRemoteCmd())
}

// NewMetadataCommand returns a parent "metadata" command holding the same
// subcommands, for embedding in another CLI.
func NewMetadataCommand() *cobra.Command {
    parent := &cobra.Command{Use: "metadata", Short: "cluster metadata document tools"}
    AddAll(parent)
    return parent
}

// readDocument reads path ("-" or "" for stdin) and returns it with its
// content type: from when set, otherwise detected.
func readDocument(cmd *cobra.Command, path, from string) ([]byte, xcontent.ContentType, error) {
    var (
        data []byte
        err  error
    )
    if path == "" || path == "-" {
        data, err = io.ReadAll(cmd.InOrStdin())
    } else {
        data, err = os.ReadFile(path)
    }
    if err != nil { return nil, xcontent.JSON, fmt.Errorf("reading %s: %w", displayName(path), err) }
    if from == "" { return data, xcontent.Detect(data), nil }
    ct, err := xcontent.ParseContentType(from)
    if err != nil { return nil, xcontent.JSON, err }
    return data, ct, nil
}

// loadMetadata reads and decodes a metadata document, legacy aliases
// included.
func loadMetadata(cmd *cobra.Command, path, from string) (md.Metadata, error) {
    _, end := tracing.StartSpan(cmd.Context(), "cli.load")
    defer end()
    data, ct, err := readDocument(cmd, path, from)
    if err != nil { return md.Metadata{}, err }
    m, err := md.FromXContent(data, ct)
    if err != nil { return md.Metadata{}, fmt.Errorf("%s: %w", displayName(path), err) }
    return m, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
    if path == "" || path == "-" {
        _, err := cmd.OutOrStdout().Write(data)
        return err
    }
    return os.WriteFile(path, data, 0o644)
}

func displayName(path string) string {
    if path == "" || path == "-" { return "stdin" }
    return path
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
    if parent == nil { parent = context.Background() }
    return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
