package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "gradecalc",
		Short:         "Offline grade sheet calculator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newComputeCommand())
	return root
}
