package cli

import (
    "github.com/spf13/cobra"

    "github.com/amirimatin/go-clustermeta/pkg/elastic"
    "github.com/amirimatin/go-clustermeta/pkg/internal/logutil"
    "github.com/amirimatin/go-clustermeta/pkg/security/tlsconfig"
)

// NewApplyCmd returns "apply": create the indices of a metadata document in
// an Elasticsearch cluster.
func NewApplyCmd() *cobra.Command {
    var (
        in, from, user, pass string
        urls                 []string
        recreate, refresh    bool
        tlsOpts              tlsconfig.Options
    )
    cmd := &cobra.Command{
        Use:   "apply",
        Short: "Create the indices of a metadata document in Elasticsearch",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            m, err := loadMetadata(cmd, in, from)
            if err != nil { return err }
            logger := logutil.New("elastic")
            a, err := elastic.NewFromOptions(elastic.Options{
                Addresses: urls,
                Username:  user,
                Password:  pass,
                TLS:       tlsOpts,
                Recreate:  recreate,
                Refresh:   refresh,
                Logger:    logger,
            })
            if err != nil { return err }
            ctx, cancel := signalContext(cmd.Context())
            defer cancel()
            if err := a.Apply(ctx, m); err != nil { return err }
            logutil.Infof(logger, "applied %d indices", m.Indices().Len())
            return nil
        },
    }
    cmd.Flags().StringVar(&in, "in", "-", "input file (- for stdin)")
    cmd.Flags().StringVar(&from, "from", "", "input content type: json|yaml|bson (default: detect)")
    cmd.Flags().StringSliceVar(&urls, "es-url", []string{"http://localhost:9200"}, "Elasticsearch node URL (repeatable)")
    cmd.Flags().StringVar(&user, "es-user", "", "basic auth user")
    cmd.Flags().StringVar(&pass, "es-pass", "", "basic auth password")
    cmd.Flags().StringVar(&tlsOpts.CAFile, "es-ca", "", "CA bundle used to verify the cluster certificate")
    cmd.Flags().StringVar(&tlsOpts.CertFile, "es-cert", "", "client certificate (PEM)")
    cmd.Flags().StringVar(&tlsOpts.KeyFile, "es-key", "", "client private key (PEM)")
    cmd.Flags().BoolVar(&tlsOpts.InsecureSkipVerify, "es-insecure", false, "skip verification of the cluster certificate")
    cmd.Flags().BoolVar(&recreate, "recreate", false, "delete existing indices before creating them")
    cmd.Flags().BoolVar(&refresh, "refresh", false, "refresh each index after creation")
    return cmd
}
