package main

import (
	"fmt"

	"github.com/spf13/cobra"

	fasttextgo "github.com/hupe1980/fasttextgo"
)

func newNNCmd() *cobra.Command {
	var (
		modelPath string
		k         int
	)

	cmd := &cobra.Command{
		Use:   "nn <word>",
		Short: "Nearest-neighbour query over the vocabulary vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ctx := cmd.Context()
			ft, err := fasttextgo.LoadModel(ctx, modelPath)
			if err != nil {
				return err
			}
			defer ft.Close()

			syns, err := ft.NN(cmdArgs[0], k)
			if err != nil {
				return err
			}
			for _, s := range syns {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %g\n", s.Word, s.Cosine)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model path (file or mmap directory)")
	cmd.Flags().IntVarP(&k, "k", "k", 10, "number of neighbours to return")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
