package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	fasttextgo "github.com/hupe1980/fasttextgo"
)

func newConvertCmd() *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a native binary model into the memory-mapped layout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := fasttextgo.NewTextLogger(slog.LevelInfo)

			ft, err := fasttextgo.LoadModel(ctx, input, fasttextgo.WithLogger(logger))
			if err != nil {
				return err
			}
			defer ft.Close()

			return ft.SaveAsMemoryMappedModel(ctx, output)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input model path (native binary)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory for the memory-mapped model")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
