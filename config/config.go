package config

import (
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mnemo-ai/mnemo/internal"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

// DefaultRetrievalConfig returns the default tunables of the retrieval
// engine. Loaded config values take precedence; zero values are filled in
// from these defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		DefaultLimit:              10,
		PrimaryThreshold:          0.25,
		RelaxedFloor:              0.05,
		RelaxedFactor:             0.3,
		RecencyHalfLifeDays:       90,
		SessionPriorWeight:        0.3,
		MessageWeight:             0.7,
		OrderWeight:               0.7,
		OrderSemanticWeight:       0.3,
		FirstBase:                 0.9,
		LastBase:                  0.85,
		NthBase:                   0.8,
		RecentFallbackSessions:    2,
		RecentFallbackBase:        0.6,
		RecentFallbackPriorWeight: 0.4,
		MinSimilarity:             0.0,
		ClassifierTimeoutSeconds:  5,
		MMRLambda:                 0.5,
		MMRMultiplier:             2,
	}
}

// LoadConfig loads the config file and ENV variables into a Config struct
func LoadConfig(configFile string) (*Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MNEMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	err := viper.BindEnv("llm.openai_api_key", "MNEMO_OPENAI_API_KEY")
	if err != nil {
		log.Fatalf("Error binding environment variable: %s", err)
	}
	err = viper.BindEnv("auth.secret", "MNEMO_AUTH_SECRET")
	if err != nil {
		log.Fatalf("Error binding environment variable: %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Fill in unset retrieval tunables from the defaults.
	defaults := DefaultRetrievalConfig()
	if err := mergo.Merge(&cfg.Retrieval, defaults); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Warn(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level based on the config file. Defaults to INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	log.Info("Log level set to: ", level)
}
