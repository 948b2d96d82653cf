package main

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// simConfig is the merged view of flags, TRAFFICSIM_* environment variables
// and the optional config file.
type simConfig struct {
	Seed      int64     `mapstructure:"seed"`
	Count     int       `mapstructure:"count"`
	Horizon   int       `mapstructure:"horizon"`
	Location  string    `mapstructure:"location"`
	TimeRange string    `mapstructure:"time-range"`
	Model     string    `mapstructure:"model"`
	At        time.Time `mapstructure:"at"`
	Output    string    `mapstructure:"output"`
	Input     string    `mapstructure:"input"`
	Settings  string    `mapstructure:"settings"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "trafficsim",
		Short:         "Generate, summarize and validate traffic datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or json)")

	root.AddCommand(
		newGenerateCmd(v),
		newSummarizeCmd(v),
		newValidateCmd(v),
	)
	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("TRAFFICSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

// loadConfig binds the command's flags and decodes the merged settings.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (simConfig, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return simConfig{}, err
	}

	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			emptyTimeHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})

	var cfg simConfig
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return simConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// emptyTimeHookFunc decodes an unset time flag to the zero time.
func emptyTimeHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		if data.(string) == "" {
			return time.Time{}, nil
		}
		return data, nil
	}
}
