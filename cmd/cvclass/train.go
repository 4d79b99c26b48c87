package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/pkg/cvclass/train"
)

func newTrainCmd(st *appState) *cobra.Command {
	var corpusPath string
	var showIssues bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a new artifact set from a labeled CSV or JSONL corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			corpus, err := train.ReadFile(corpusPath, st.cfg.columns())
			if err != nil {
				return err
			}
			st.log.Info("corpus read",
				zap.String("path", corpusPath),
				zap.Int("rows", len(corpus.Examples)),
				zap.Int("unreadable", len(corpus.Issues)))

			eng, err := buildEngine(ctx, st.cfg, st.log)
			if err != nil {
				return err
			}
			defer eng.Close()

			res, err := eng.Train(ctx, corpus)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			m := res.Set.Manifest
			fmt.Fprintf(out, "artifact set %s\n", m.ID)
			fmt.Fprintf(out, "rows: %d train, %d test, %d excluded\n", m.TrainRows, m.TestRows, m.ExcludedRows)
			fmt.Fprintf(out, "features: %d lexical + %d semantic, %d selected\n\n", m.Layout.Lexical, m.Layout.Semantic, m.Selected)
			fmt.Fprint(out, res.Report.String())
			if showIssues {
				for _, is := range res.Issues {
					fmt.Fprintf(out, "line %d: %s\n", is.Line, is.Reason)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&corpusPath, "corpus", "c", "", "labeled corpus (.csv, .jsonl)")
	cmd.Flags().String("text-column", "", "text column (train.text_column)")
	cmd.Flags().String("label-column", "", "label column (train.label_column)")
	cmd.Flags().BoolVar(&showIssues, "show-excluded", false, "list excluded rows")
	_ = cmd.MarkFlagRequired("corpus")
	_ = st.v.BindPFlag("train.text_column", cmd.Flags().Lookup("text-column"))
	_ = st.v.BindPFlag("train.label_column", cmd.Flags().Lookup("label-column"))
	return cmd
}
