package cli

import (
    "fmt"

    "github.com/spf13/cobra"
)

// NewValidateCmd returns "validate": decode only and report the outcome.
func NewValidateCmd() *cobra.Command {
    var in, from string
    cmd := &cobra.Command{
        Use:   "validate",
        Short: "Check that a metadata document decodes",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            m, err := loadMetadata(cmd, in, from)
            if err != nil { return err }
            fmt.Fprintf(cmd.OutOrStdout(), "ok: %d indices\n", m.Indices().Len())
            return nil
        },
    }
    cmd.Flags().StringVar(&in, "in", "-", "input file (- for stdin)")
    cmd.Flags().StringVar(&from, "from", "", "input content type: json|yaml|bson (default: detect)")
    return cmd
}
