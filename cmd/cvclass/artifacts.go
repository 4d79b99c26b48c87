package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/pkg/cvclass/artifact"
	"github.com/cognicore/cvclass/pkg/cvclass/store/sqlite"
)

func newArtifactsCmd(st *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Inspect and manage stored artifact sets",
	}
	cmd.AddCommand(newArtifactsListCmd(st), newArtifactsDeleteCmd(st))
	return cmd
}

func newArtifactsListCmd(st *appState) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifact sets, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := sqlite.OpenSQLite(ctx, st.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			sets, err := artifact.List(ctx, s, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tENCODER\tCATEGORIES\tTRAIN\tTEST\tACCURACY")
			for _, m := range sets {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.4f\n",
					m.ID, m.CreatedAt.Format("2006-01-02 15:04"), m.Encoder.ModelID,
					len(m.Categories), m.TrainRows, m.TestRows, m.Accuracy)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum sets to list (0 for all)")
	return cmd
}

func newArtifactsDeleteCmd(st *appState) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an artifact set and its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			s, err := sqlite.OpenSQLite(ctx, st.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := artifact.Describe(ctx, s, id)
			if err != nil {
				return err
			}
			if !yes {
				prompt := promptui.Prompt{
					Label:     fmt.Sprintf("Delete set %s (%s, accuracy %.4f)", m.ID, m.Encoder.ModelID, m.Accuracy),
					IsConfirm: true,
				}
				if _, err := prompt.Run(); err != nil {
					if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
						fmt.Fprintln(cmd.OutOrStdout(), "aborted")
						return nil
					}
					return err
				}
			}
			if err := s.DeleteSet(ctx, id); err != nil {
				return err
			}
			st.log.Info("artifact set deleted", zap.String("id", id))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
