package cli

import (
    "fmt"
    "io"
    "strings"

    "github.com/davecgh/go-spew/spew"
    "github.com/spf13/cobra"

    md "github.com/amirimatin/go-clustermeta/pkg/metadata"
)

var dumpConfig = spew.ConfigState{
    Indent:                  "  ",
    DisablePointerAddresses: true,
    DisableCapacities:       true,
    SortKeys:                true,
}

// NewInspectCmd returns "inspect": one summary line per index, or a full
// structural dump with --dump.
func NewInspectCmd() *cobra.Command {
    var (
        in, from string
        dump     bool
    )
    cmd := &cobra.Command{
        Use:   "inspect",
        Short: "Summarize the indices of a metadata document",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, args []string) error {
            m, err := loadMetadata(cmd, in, from)
            if err != nil { return err }
            if dump {
                dumpConfig.Fdump(cmd.OutOrStdout(), m)
                return nil
            }
            for _, im := range m.Indices().All() {
                writeSummary(cmd.OutOrStdout(), im)
            }
            return nil
        },
    }
    cmd.Flags().StringVar(&in, "in", "-", "input file (- for stdin)")
    cmd.Flags().StringVar(&from, "from", "", "input content type: json|yaml|bson (default: detect)")
    cmd.Flags().BoolVar(&dump, "dump", false, "print a go-spew dump of the decoded metadata")
    return cmd
}

// writeSummary prints e.g.
//
//  logs shards=2 replicas=1 settings=3 mappings=[event] aliases=[all errors*]
//
// where * marks an alias with a filter.
func writeSummary(w io.Writer, im md.IndexMetadata) {
    aliases := make([]string, 0, im.Aliases().Len())
    for name, a := range im.Aliases().All() {
        if a.HasFilter() { name += "*" }
        aliases = append(aliases, name)
    }
    fmt.Fprintf(w, "%s shards=%d replicas=%d settings=%d mappings=[%s] aliases=[%s]\n",
        im.Name(), im.NumberOfShards(), im.NumberOfReplicas(), im.Settings().Len(),
        strings.Join(im.Mappings().Keys(), " "), strings.Join(aliases, " "))
}
