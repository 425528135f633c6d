// Command fasttextgo converts and queries trained fastText models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fasttextgo",
		Short:         "Read-only predictor for trained fastText models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newConvertCmd())
	cmd.AddCommand(newPredictCmd())
	cmd.AddCommand(newNNCmd())
	return cmd
}
