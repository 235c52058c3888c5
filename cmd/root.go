package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "policy-ranker"
)

type Config struct {
	CandidatesFile string        `mapstructure:"candidates-file"`
	ProfileFile    string        `mapstructure:"profile-file"`
	ReferenceDate  string        `mapstructure:"reference-date"`
	BlocklistFile  string        `mapstructure:"blocklist-file"`
	Engine         *EngineConfig `mapstructure:"engine"`
}

type EngineConfig struct {
	ClosureKeywords     []string `mapstructure:"closure-keywords"`
	RecencyFloorYears   int      `mapstructure:"recency-floor-years"`
	CorroborationQuorum int      `mapstructure:"corroboration-quorum"`
	MaxLogLength        int      `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "policy-ranker validates and ranks retrieved youth-policy candidates against a user profile",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("blocklist-file", "POLICY_RANKER_BLOCKLIST_FILE"); err != nil {
		log.Fatalf("binding POLICY_RANKER_BLOCKLIST_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is policy-ranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the evaluate command. If there is no config, we can skip initialization
	if evaluateCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
