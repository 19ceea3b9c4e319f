package cli

import (
    "encoding/json"
    "fmt"
    "time"

    "github.com/spf13/cobra"

    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    tlsx "github.com/amirimatin/go-clustermeta/pkg/security/tlsconfig"
    "github.com/amirimatin/go-clustermeta/pkg/transport"
    "github.com/amirimatin/go-clustermeta/pkg/transport/httpjson"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

type remoteFlags struct {
    addr    string
    timeout time.Duration
    tls     tlsx.Options
}

func (f *remoteFlags) client() (*httpjson.Client, error) {
    c := httpjson.NewClient(f.timeout)
    cfg, err := f.tls.Client()
    if err != nil { return nil, err }
    if cfg != nil { c.UseTLS(cfg) }
    return c, nil
}

// NewRemoteCmd returns "remote": talk to the management API of a running
// metadata node.
func NewRemoteCmd() *cobra.Command {
    rf := &remoteFlags{}
    cmd := &cobra.Command{Use: "remote", Short: "Query or change a running metadata node"}
    pf := cmd.PersistentFlags()
    pf.StringVar(&rf.addr, "addr", "127.0.0.1:7700", "management API address of any node")
    pf.DurationVar(&rf.timeout, "timeout", 5*time.Second, "per-request timeout")
    pf.StringVar(&rf.tls.CAFile, "tls-ca", "", "CA bundle used to verify the node")
    pf.StringVar(&rf.tls.CertFile, "tls-cert", "", "client certificate (PEM)")
    pf.StringVar(&rf.tls.KeyFile, "tls-key", "", "client private key (PEM)")
    pf.BoolVar(&rf.tls.InsecureSkipVerify, "tls-insecure", false, "skip verification of the node certificate")

    cmd.AddCommand(newRemoteStatusCmd(rf), newRemoteGetCmd(rf), newRemotePutCmd(rf), newRemoteDeleteCmd(rf), newRemoteRemoveNodeCmd(rf))
    return cmd
}

func newRemoteStatusCmd(rf *remoteFlags) *cobra.Command {
    return &cobra.Command{
        Use:   "status",
        Short: "Print the status of the node",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            c, err := rf.client()
            if err != nil { return err }
            st, err := c.GetStatus(cmd.Context(), rf.addr)
            if err != nil { return err }
            b, err := json.MarshalIndent(st, "", "  ")
            if err != nil { return err }
            return writeOutput(cmd, "-", append(b, '\n'))
        },
    }
}

func newRemoteGetCmd(rf *remoteFlags) *cobra.Command {
    var out, to string
    cmd := &cobra.Command{
        Use:   "get",
        Short: "Fetch the metadata applied on the node",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            ct, err := xcontent.ParseContentType(to)
            if err != nil { return err }
            c, err := rf.client()
            if err != nil { return err }
            doc, err := c.GetMetadata(cmd.Context(), rf.addr)
            if err != nil { return err }
            if ct == xcontent.JSON {
                doc, err = xcontent.Indent(doc)
            } else {
                doc, err = xcontent.FromJSON(ct, doc)
            }
            if err != nil { return err }
            return writeOutput(cmd, out, doc)
        },
    }
    cmd.Flags().StringVar(&out, "out", "-", "output file (- for stdout)")
    cmd.Flags().StringVar(&to, "to", "json", "output content type: json|yaml|bson")
    return cmd
}

func newRemotePutCmd(rf *remoteFlags) *cobra.Command {
    var in, from string
    cmd := &cobra.Command{
        Use:   "put NAME",
        Short: "Create or replace one index from its body document",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            name := args[0]
            data, ct, err := readDocument(cmd, in, from)
            if err != nil { return err }
            body, err := xcontent.ToJSON(ct, data)
            if err != nil { return fmt.Errorf("%s: %w", displayName(in), err) }
            // fail before the round trip when the body does not decode
            doc, err := xcontent.Marshal(xcontent.Object{{Name: name, Value: json.RawMessage(body)}})
            if err != nil { return err }
            if _, err := md.IndexFromXContent(doc, xcontent.JSON); err != nil { return err }

            c, err := rf.client()
            if err != nil { return err }
            if err := c.PutIndex(cmd.Context(), rf.addr, name, body); err != nil { return err }
            fmt.Fprintf(cmd.OutOrStdout(), "put [%s]\n", name)
            return nil
        },
    }
    cmd.Flags().StringVar(&in, "in", "-", "index body file (- for stdin)")
    cmd.Flags().StringVar(&from, "from", "", "input content type: json|yaml|bson (default: detect)")
    return cmd
}

func newRemoteDeleteCmd(rf *remoteFlags) *cobra.Command {
    return &cobra.Command{
        Use:   "delete NAME",
        Short: "Remove one index",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            c, err := rf.client()
            if err != nil { return err }
            if err := c.DeleteIndex(cmd.Context(), rf.addr, args[0]); err != nil { return err }
            fmt.Fprintf(cmd.OutOrStdout(), "deleted [%s]\n", args[0])
            return nil
        },
    }
}

func newRemoteRemoveNodeCmd(rf *remoteFlags) *cobra.Command {
    return &cobra.Command{
        Use:   "remove-node ID",
        Short: "Remove a node from the voter set (send to the leader)",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            c, err := rf.client()
            if err != nil { return err }
            resp, err := c.PostLeave(cmd.Context(), rf.addr, transport.LeaveRequest{ID: args[0]})
            if err != nil { return err }
            if !resp.Accepted { return fmt.Errorf("remove-node refused: %s", resp.Error) }
            fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
            return nil
        },
    }
}
