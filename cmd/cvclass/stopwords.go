package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/cvclass/pkg/cvclass/config"
	"github.com/cognicore/cvclass/pkg/cvclass/stoplist"
	"github.com/cognicore/cvclass/pkg/cvclass/train"
)

func newStopwordsCmd(st *appState) *cobra.Command {
	var (
		corpusPath string
		limit      int
		dfPercent  float64
		entropy    float64
	)
	cmd := &cobra.Command{
		Use:   "stopwords",
		Short: "Suggest corpus-specific stopwords as a stoplist YAML fragment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			corpus, err := train.ReadFile(corpusPath, st.cfg.columns())
			if err != nil {
				return err
			}
			loader := config.Loader{
				StoplistPath:     st.cfg.Resources.Stoplist,
				LemmasPath:       st.cfg.Resources.Lemmas,
				ContractionsPath: st.cfg.Resources.Contractions,
			}
			comp, err := loader.Load()
			if err != nil {
				return err
			}

			texts := make([]string, len(corpus.Examples))
			labels := make([]string, len(corpus.Examples))
			for i, ex := range corpus.Examples {
				texts[i] = comp.Normalizer.Normalize(ex.Text)
				labels[i] = ex.Label
			}

			th := stoplist.Thresholds{DFPercent: dfPercent, CatEntropy: entropy}
			cands := train.SuggestStopwords(texts, labels, stoplist.NewManager(comp.Stopwords), th, limit)
			for _, c := range cands {
				st.log.Debug("stopword candidate",
					zap.String("token", c.Token),
					zap.Float64("score", c.Score),
					zap.Float64("entropy", c.Reason.CatEntropy))
			}

			terms := make([]string, len(cands))
			for i, c := range cands {
				terms[i] = c.Token
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(struct {
				Terms []string `yaml:"terms"`
			}{terms})
		},
	}
	def := stoplist.DefaultThresholds()
	cmd.Flags().StringVarP(&corpusPath, "corpus", "c", "", "labeled corpus (.csv, .jsonl)")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum suggestions")
	cmd.Flags().Float64Var(&dfPercent, "min-df", def.DFPercent, "minimum document frequency, percent")
	cmd.Flags().Float64Var(&entropy, "min-entropy", def.CatEntropy, "minimum normalized category entropy")
	_ = cmd.MarkFlagRequired("corpus")
	return cmd
}
