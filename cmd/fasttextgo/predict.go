package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fasttextgo "github.com/hupe1980/fasttextgo"
)

func newPredictCmd() *cobra.Command {
	var (
		modelPath string
		k         int
		threshold float32
	)

	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Predict labels for text arguments, or stdin lines when none given",
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			ctx := cmd.Context()
			ft, err := fasttextgo.LoadModel(ctx, modelPath)
			if err != nil {
				return err
			}
			defer ft.Close()

			printPreds := func(text string) error {
				preds, err := ft.Predict(text, k, threshold)
				if err != nil {
					return err
				}
				for _, p := range preds {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %g ", p.Label, p.Probability())
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}

			if len(cmdArgs) > 0 {
				for _, text := range cmdArgs {
					if err := printPreds(text); err != nil {
						return err
					}
				}
				return nil
			}

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
			for scanner.Scan() {
				if err := printPreds(scanner.Text()); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "model path (file or mmap directory)")
	cmd.Flags().IntVarP(&k, "k", "k", 1, "number of labels to return")
	cmd.Flags().Float32VarP(&threshold, "threshold", "t", 0, "minimum label probability")
	_ = cmd.MarkFlagRequired("model")

	return cmd
}
