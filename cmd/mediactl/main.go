package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "DEV"

var (
	cfg *viper.Viper
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "Operator tool for the clipper media pipeline",
	Long: `mediactl runs the clipper pipeline steps from the command line:
speech generation, document summaries, video generation, ffmpeg tooling and YouTube publishing.

Configuration is read from the --config file and environment variables
(OPENAI_KEY, FAL_KEY, AUDIO_CSV, ...).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
		file, _ := cmd.Flags().GetString("config")
		var err error
		cfg, err = loadConfig(file)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads optional file and binds env vars: key audio.csv comes from AUDIO_CSV
func loadConfig(file string) (*viper.Viper, error) {
	res := viper.New()
	res.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	res.AutomaticEnv()
	if file != "" {
		res.SetConfigFile(file)
		if err := res.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("can't read config '%s': %w", file, err)
		}
		log.Debug().Str("file", res.ConfigFileUsed()).Msg("config loaded")
	}
	return res, nil
}
