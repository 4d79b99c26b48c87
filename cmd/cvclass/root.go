package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cognicore/cvclass/internal/logger"
)

const app = "cvclass"

// appState holds what every subcommand needs once flags are parsed.
type appState struct {
	v       *viper.Viper
	cfgFile string
	log     *zap.Logger
	cfg     *Config
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	st := &appState{v: viper.New()}

	cmd := &cobra.Command{
		Use:           app,
		Short:         "cvclass classifies résumés into professional categories",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if st.log != nil {
				_ = st.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&st.cfgFile, "config", "", "config file (default is cvclass.yaml in the current directory)")
	cmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	cmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	cmd.PersistentFlags().String("store", "", "artifact database path (store.path)")
	_ = st.v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	_ = st.v.BindPFlag("json", cmd.PersistentFlags().Lookup("json"))
	_ = st.v.BindPFlag("store.path", cmd.PersistentFlags().Lookup("store"))

	cmd.AddCommand(
		newTrainCmd(st),
		newClassifyCmd(st),
		newArtifactsCmd(st),
		newReportCmd(st),
		newStopwordsCmd(st),
		newVersionCmd(),
	)
	return cmd
}

// init loads .env, the config file and the environment, then builds the
// logger.
func (st *appState) init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	setDefaults(st.v)
	if err := bindEnv(st.v); err != nil {
		return err
	}

	if st.cfgFile != "" {
		st.v.SetConfigFile(st.cfgFile)
	} else {
		st.v.AddConfigPath(".")
		st.v.SetConfigName(app)
		st.v.SetConfigType("yaml")
	}
	if err := st.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if st.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	log, err := logger.New(st.v.GetBool("json"), st.v.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	st.log = log

	if st.cfg, err = loadConfig(st.v); err != nil {
		return err
	}
	if used := st.v.ConfigFileUsed(); used != "" {
		st.log.Debug("config loaded", zap.String("file", used))
	}
	return nil
}
