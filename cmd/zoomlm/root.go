package main

import (
	"fmt"
	"strings"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "ZOOMLM"

	modelCTW     = "ctw"
	modelUnigram = "unigram"
	modelMixture = "mixture"
)

// config is everything the commands read from flags, ZOOMLM_* variables and
// the optional config file, in that order of precedence.
type config struct {
	LogLevel string `mapstructure:"log-level"`
	Model    string `mapstructure:"model"`
	Store    string `mapstructure:"store"`
	Uniform  uint32 `mapstructure:"uniform"`
	MaxNodes uint64 `mapstructure:"max-nodes"`
	Weight   uint32 `mapstructure:"weight"`
	Budget   int    `mapstructure:"budget"`
	ScreenY  int64  `mapstructure:"screen"`
	Fresh    bool   `mapstructure:"fresh"`
}

func (c config) check() error {
	switch c.Model {
	case modelCTW, modelUnigram, modelMixture:
	default:
		return fmt.Errorf("unknown model %q, want %s, %s or %s", c.Model, modelCTW, modelUnigram, modelMixture)
	}
	if c.Uniform > 1000 {
		return fmt.Errorf("uniform %d is above 1000", c.Uniform)
	}
	if c.Weight > 100 {
		return fmt.Errorf("weight %d is above 100", c.Weight)
	}
	return nil
}

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config
	log     logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "zoomlm",
		Short:         "Adaptive language models for zooming text entry",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	f.String("log-level", "INFO", "log level")
	f.String("model", modelCTW, "model kind: ctw, unigram or mixture")
	f.String("store", "models", "snapshot directory, or azurite:<container> for the blob emulator")
	f.Uint32("uniform", 50, "share of every prediction spread evenly, per 1000")
	f.Uint64("max-nodes", 1<<22, "CTW arena size in nodes, a power of two")
	f.Uint32("weight", 50, "mixture weight of the CTW component, percent")
	f.Int("budget", 3000, "live node budget for navigation")
	f.Int64("screen", 4096, "screen height in screen units")
	f.Bool("fresh", false, "start from an untrained model instead of the latest snapshot")

	root.AddCommand(
		newTrainCmd(a),
		newPredictCmd(a),
		newSimulateCmd(a),
		newExploreCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("config %s: %w", a.cfgFile, err)
		}
	}
	if err := a.v.Unmarshal(&a.cfg); err != nil {
		return err
	}
	if err := a.cfg.check(); err != nil {
		return err
	}

	logger.New(a.cfg.LogLevel)
	a.log = logger.Sugar.WithServiceName("zoomlm")
	return nil
}
