package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envConfig supplies flag defaults from the environment
type envConfig struct {
	ConfigFile  string `env:"REFGATE_CONFIG_FILE"`
	DBPath      string `env:"REFGATE_DB_PATH" envDefault:"./refgate.db"`
	LogFile     string `env:"REFGATE_LOG_FILE" envDefault:"./refgate.log"`
	LogLevel    string `env:"REFGATE_LOG_LEVEL" envDefault:"info"`
	Host        string `env:"REFGATE_HOST" envDefault:"127.0.0.1"`
	Port        int    `env:"REFGATE_PORT" envDefault:"5050"`
	GitHubToken string `env:"GITHUB_TOKEN"`
}

// defaults is read before flags are registered; envErr is reported by the
// root command so a bad variable fails every subcommand.
var defaults, envErr = parseEnv()

func parseEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
