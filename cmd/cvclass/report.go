package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/cvclass/pkg/cvclass/artifact"
	"github.com/cognicore/cvclass/pkg/cvclass/store/sqlite"
)

func newReportCmd(st *appState) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report [id]",
		Short: "Print the evaluation report of an artifact set (default latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := "latest"
			if len(args) == 1 {
				id = args[0]
			}

			s, err := sqlite.OpenSQLite(ctx, st.cfg.Store.Path)
			if err != nil {
				return err
			}
			defer s.Close()

			if id == "latest" {
				if id, err = s.LatestID(ctx); err != nil {
					return err
				}
			}
			m, err := artifact.Describe(ctx, s, id)
			if err != nil {
				return err
			}
			rep, err := artifact.LoadReport(ctx, s, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Manifest any `json:"manifest"`
					Report   any `json:"report"`
				}{m, rep})
			}
			fmt.Fprintf(out, "artifact set %s (%s)\n", m.ID, m.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "encoder %s, %d train / %d test rows\n\n", m.Encoder.ModelID, m.TrainRows, m.TestRows)
			fmt.Fprint(out, rep.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json-output", false, "print the manifest and report as JSON")
	return cmd
}
