package cli

import (
    "fmt"

    "github.com/spf13/cobra"

    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
    "github.com/amirimatin/go-clustermeta/pkg/xcontent"
)

// NewConvertCmd returns "convert": decode a metadata document (upgrading
// legacy aliases) and write it back in the requested content type.
func NewConvertCmd() *cobra.Command {
    var (
        in, out, from, to string
        pretty            bool
    )
    cmd := &cobra.Command{
        Use:   "convert",
        Short: "Re-encode a metadata document (json|yaml|bson)",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            target, err := xcontent.ParseContentType(to)
            if err != nil { return err }
            m, err := loadMetadata(cmd, in, from)
            if err != nil { return err }
            doc, err := md.ToXContent(m, target)
            if err != nil { return err }
            if target == xcontent.JSON {
                if pretty {
                    if doc, err = xcontent.Indent(doc); err != nil { return err }
                } else {
                    doc = append(doc, '\n')
                }
            } else if pretty {
                return fmt.Errorf("--pretty applies to json output only")
            }
            return writeOutput(cmd, out, doc)
        },
    }
    cmd.Flags().StringVar(&in, "in", "-", "input file (- for stdin)")
    cmd.Flags().StringVar(&out, "out", "-", "output file (- for stdout)")
    cmd.Flags().StringVar(&from, "from", "", "input content type: json|yaml|bson (default: detect)")
    cmd.Flags().StringVar(&to, "to", "json", "output content type: json|yaml|bson")
    cmd.Flags().BoolVar(&pretty, "pretty", false, "indent json output")
    return cmd
}
