package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/cvclass/internal/docsource"
)

func newClassifyCmd(st *appState) *cobra.Command {
	var (
		file   string
		setID  string
		topN   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify résumé text, a .txt/.md/.html file, or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text, err := inputText(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}

			eng, err := buildEngine(ctx, st.cfg, st.log)
			if err != nil {
				return err
			}
			defer eng.Close()

			if _, err := eng.Reload(ctx, setID); err != nil {
				return err
			}
			results, err := eng.Classify(ctx, text, topN)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for i, r := range results {
				fmt.Fprintf(out, "%d. %-30s %8s\n", i+1, r.Category, r.Confidence)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "résumé file (.txt, .md, .html); - reads stdin")
	cmd.Flags().StringVar(&setID, "set", "latest", "artifact set id")
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "number of categories (default predict.top_n)")
	cmd.Flags().BoolVar(&asJSON, "json-output", false, "print results as JSON")
	return cmd
}

func inputText(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file == "-":
		return docsource.Read(stdin, docsource.Text)
	case file != "":
		return docsource.ReadFile(file)
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", fmt.Errorf("give text arguments or --file")
	}
}
