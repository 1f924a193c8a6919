package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gigflow/gigwatch/internal/gig"
)

const (
	app = "gigwatch"
)

type Config struct {
	UserID       string `mapstructure:"user-id"`
	APIBaseURL   string `mapstructure:"api-base-url"`
	APITokenFile string `mapstructure:"api-token-file"`
	WebsocketURL string `mapstructure:"websocket-url"`

	// RequestTimeoutSeconds bounds catalog requests; zero means the default.
	RequestTimeoutSeconds int `mapstructure:"request-timeout-seconds"`
	// RefreshIntervalSeconds is how often watch re-ranks the gig feed.
	RefreshIntervalSeconds int `mapstructure:"refresh-interval-seconds"`

	Profile *gig.UserProfile `mapstructure:"profile"`
	AI      *AIConfig        `mapstructure:"ai"`
}

type AIConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Provider        string        `mapstructure:"provider"`
	MinimumFitScore float64       `mapstructure:"minimum-fit-score"`
	Gemini          *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "gigwatch ranks freelance gigs against your profile and watches for real-time alerts",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("api-token-file", "GIGWATCH_API_TOKEN_FILE"); err != nil {
		log.Fatalf("binding GIGWATCH_API_TOKEN_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is gigwatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for the watch and matches commands. If neither was
	// called, we can skip initialization.
	if watchCmd.CalledAs() == "" && matchesCmd.CalledAs() == "" {
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
