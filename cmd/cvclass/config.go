package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/pkg/cvclass"
	"github.com/cognicore/cvclass/pkg/cvclass/config"
	"github.com/cognicore/cvclass/pkg/cvclass/gbm"
	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/store/sqlite"
	"github.com/cognicore/cvclass/pkg/cvclass/train"
)

// Config mirrors cvclass.yaml.
type Config struct {
	Store struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"store"`

	Resources struct {
		Stoplist     string `mapstructure:"stoplist"`
		Lemmas       string `mapstructure:"lemmas"`
		Contractions string `mapstructure:"contractions"`
		Categories   string `mapstructure:"categories"`
	} `mapstructure:"resources"`

	Features struct {
		MaxLexical int `mapstructure:"max_lexical"`
		NGramMax   int `mapstructure:"ngram_max"`
		ReducedDim int `mapstructure:"reduced_dim"`
		Selected   int `mapstructure:"selected"`
	} `mapstructure:"features"`

	Encoder EncoderConfig `mapstructure:"encoder"`

	Train struct {
		TextColumn        string         `mapstructure:"text_column"`
		LabelColumn       string         `mapstructure:"label_column"`
		TestRatio         float64        `mapstructure:"test_ratio"`
		Seed              uint64         `mapstructure:"seed"`
		Workers           int            `mapstructure:"workers"`
		Params            map[string]any `mapstructure:"params"`
		PreliminaryParams map[string]any `mapstructure:"preliminary_params"`
	} `mapstructure:"train"`

	Predict struct {
		TopN int `mapstructure:"top_n"`
	} `mapstructure:"predict"`
}

// EncoderConfig adds batching limits to the encoder selection.
type EncoderConfig struct {
	cvclass.EncoderConfig `mapstructure:",squash"`

	BatchSize int           `mapstructure:"batch_size"`
	Workers   int           `mapstructure:"workers"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Rate      float64       `mapstructure:"rate"`
	CacheSize int           `mapstructure:"cache_size"`
}

func setDefaults(v *viper.Viper) {
	def := train.DefaultConfig()
	emb := semantic.DefaultEmbedderConfig()

	v.SetDefault("store.path", "cvclass.db")
	v.SetDefault("features.max_lexical", def.Lexical.MaxFeatures)
	v.SetDefault("features.ngram_max", def.Lexical.NGramMax)
	v.SetDefault("features.reduced_dim", def.ReducedDim)
	v.SetDefault("features.selected", def.Selected)
	v.SetDefault("encoder.provider", cvclass.ProviderHash)
	v.SetDefault("encoder.dim", 384)
	v.SetDefault("encoder.batch_size", emb.BatchSize)
	v.SetDefault("encoder.workers", emb.Workers)
	v.SetDefault("encoder.timeout", 30*time.Second)
	v.SetDefault("encoder.cache_size", 1024)
	v.SetDefault("encoder.max_seq_len", 256)
	v.SetDefault("train.text_column", train.DefaultColumns().Text)
	v.SetDefault("train.label_column", train.DefaultColumns().Label)
	v.SetDefault("train.test_ratio", def.TestRatio)
	v.SetDefault("train.seed", def.Seed)
	v.SetDefault("train.workers", def.Workers)
	v.SetDefault("predict.top_n", 3)

	// Known to viper so that CVCLASS_* variables reach Unmarshal.
	for _, key := range []string{
		"resources.stoplist", "resources.lemmas", "resources.contractions", "resources.categories",
		"encoder.model", "encoder.ort_library", "encoder.model_path", "encoder.tokenizer_path",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("encoder.rate", 0.0)
	v.SetDefault("encoder.normalize", false)
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix("CVCLASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v.BindEnv("encoder.api_key", "CVCLASS_ENCODER_API_KEY", "GEMINI_API_KEY", "VOYAGE_API_KEY")
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// trainConfig overlays the feature and training settings on the defaults.
func (c *Config) trainConfig() (train.Config, error) {
	out := train.DefaultConfig()
	out.Lexical = lexical.Config{
		MaxFeatures: c.Features.MaxLexical,
		NGramMax:    c.Features.NGramMax,
		MinTokenLen: out.Lexical.MinTokenLen,
	}
	out.ReducedDim = c.Features.ReducedDim
	out.Selected = c.Features.Selected
	out.TestRatio = c.Train.TestRatio
	out.Seed = c.Train.Seed
	out.Workers = c.Train.Workers

	var err error
	if out.Params, err = gbm.FromMap(gbm.DefaultParams(), c.Train.Params); err != nil {
		return out, fmt.Errorf("train.params: %w", err)
	}
	if out.PreliminaryParams, err = gbm.FromMap(gbm.PreliminaryParams(), c.Train.PreliminaryParams); err != nil {
		return out, fmt.Errorf("train.preliminary_params: %w", err)
	}
	return out, nil
}

func (c *Config) columns() train.Columns {
	return train.Columns{Text: c.Train.TextColumn, Label: c.Train.LabelColumn}
}

// newEncoder is replaced in tests.
var newEncoder = cvclass.NewEncoder

// buildEngine opens the store, loads the resource files and creates the
// encoder. The caller closes the engine.
func buildEngine(ctx context.Context, cfg *Config, log *zap.Logger) (*cvclass.Engine, error) {
	loader := config.Loader{
		StoplistPath:     cfg.Resources.Stoplist,
		LemmasPath:       cfg.Resources.Lemmas,
		ContractionsPath: cfg.Resources.Contractions,
		CategoriesPath:   cfg.Resources.Categories,
	}
	comp, err := loader.Load()
	if err != nil {
		return nil, err
	}
	trainCfg, err := cfg.trainConfig()
	if err != nil {
		return nil, err
	}
	enc, err := newEncoder(ctx, cfg.Encoder.EncoderConfig)
	if err != nil {
		return nil, err
	}
	st, err := sqlite.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		closeEncoder(enc, log)
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}

	log.Debug("engine configured",
		zap.String("store", cfg.Store.Path),
		zap.String("encoder", enc.ModelID()),
		zap.Int("stopwords", len(comp.Stopwords)),
		zap.Int("lemma_groups", comp.Lexicon.Stats().Groups))

	eng, err := cvclass.New(cvclass.Options{
		Store:      st,
		Normalizer: comp.Normalizer,
		Encoder:    enc,
		Embedder: semantic.EmbedderConfig{
			BatchSize: cfg.Encoder.BatchSize,
			Workers:   cfg.Encoder.Workers,
			Timeout:   cfg.Encoder.Timeout,
			Rate:      cfg.Encoder.Rate,
			CacheSize: cfg.Encoder.CacheSize,
		},
		Categories: comp.Categories,
		Train:      trainCfg,
		TopN:       cfg.Predict.TopN,
		Logger:     log,
	})
	if err != nil {
		closeEncoder(enc, log)
		st.Close()
		return nil, err
	}
	return eng, nil
}

// closeEncoder releases encoders that hold sessions or clients.
func closeEncoder(enc semantic.Encoder, log *zap.Logger) {
	c, ok := enc.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn("closing encoder", zap.String("encoder", enc.ModelID()), zap.Error(err))
	}
}
