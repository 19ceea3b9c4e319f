package main

import (
    "log"

    "github.com/spf13/cobra"

    metacli "github.com/amirimatin/go-clustermeta/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "metactl",
        Short:         "cluster metadata document tool",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    metacli.AddAll(root)
    return root
}
