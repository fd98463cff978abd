// Package config reads the application configuration from a YAML file and the environment.
package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/agent"
	"github.com/maxbolgarin/falcon/internal/provider"
	"github.com/maxbolgarin/falcon/internal/reviewer"
	"github.com/maxbolgarin/falcon/internal/server"
)

// Config represents the main application configuration
type Config struct {
	Provider provider.Config `yaml:"provider"`
	Agent    agent.Config    `yaml:"agent"`
	Reviewer reviewer.Config `yaml:"reviewer"`
	Server   server.Config   `yaml:"server"`

	Debug bool `yaml:"debug" env:"DEBUG"`
}

// Load reads the config file at path, environment variables override it.
// With an empty path only the environment is read.
func Load(path string) (Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return cfg, errm.Wrap(err, "failed to read environment")
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return cfg, errm.Wrap(ErrConfigNotFound, path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, errm.Wrap(err, "failed to read config "+path)
	}

	return cfg, nil
}

// PrepareAndValidate fills defaults of the sections every run needs.
// The server section is checked by the server itself.
func (c *Config) PrepareAndValidate() error {
	if err := c.Provider.PrepareAndValidate(); err != nil {
		return errm.Wrap(ErrInvalidConfig, "provider: "+err.Error())
	}
	if err := c.Agent.PrepareAndValidate(); err != nil {
		return errm.Wrap(ErrInvalidConfig, "agent: "+err.Error())
	}
	if err := c.Reviewer.PrepareAndValidate(); err != nil {
		return errm.Wrap(ErrInvalidConfig, "reviewer: "+err.Error())
	}
	return nil
}
