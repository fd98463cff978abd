package provider

import (
	"os"
	"slices"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

type ProviderType string

// Supported provider types
const (
	GitHub    ProviderType = "github"
	Bitbucket ProviderType = "bitbucket"
	GitLab    ProviderType = "gitlab"
	Local     ProviderType = "local"
)

var supportedProviderTypes = []ProviderType{GitHub, Bitbucket, GitLab, Local}

// tokenEnv are the conventional token variables of each provider
var tokenEnv = map[ProviderType]string{
	GitHub:    "GITHUB_TOKEN",
	Bitbucket: "BITBUCKET_TOKEN",
	GitLab:    "GITLAB_TOKEN",
}

// Config represents code provider configuration
type Config struct {
	Type          ProviderType `yaml:"type" env:"PROVIDER_TYPE"`
	BaseURL       string       `yaml:"base_url" env:"PROVIDER_BASE_URL"`
	Token         string       `yaml:"token" env:"PROVIDER_TOKEN"`
	Username      string       `yaml:"username" env:"PROVIDER_USERNAME"`
	AppPassword   string       `yaml:"app_password" env:"PROVIDER_APP_PASSWORD"`
	WebhookSecret string       `yaml:"webhook_secret" env:"PROVIDER_WEBHOOK_SECRET"`
	BotUsername   string       `yaml:"bot_username" env:"PROVIDER_BOT_USERNAME"`
	WorkDir       string       `yaml:"work_dir" env:"PROVIDER_WORK_DIR"`
}

// PrepareAndValidate fills the token from the provider's conventional variable and checks credentials
func (c *Config) PrepareAndValidate() error {
	c.Type = lang.Check(c.Type, GitHub)
	if !slices.Contains(supportedProviderTypes, c.Type) {
		return errm.New("invalid provider type: %s", c.Type)
	}

	if env, ok := tokenEnv[c.Type]; ok {
		c.Token = lang.Check(c.Token, os.Getenv(env))
	}

	switch c.Type {
	case Local:
		c.WorkDir = lang.Check(c.WorkDir, ".")
	case Bitbucket:
		if c.Token == "" && (c.Username == "" || c.AppPassword == "") {
			return errm.New("token or username with app password is required for %s", c.Type)
		}
	default:
		if c.Token == "" {
			return errm.New("token is required for %s, set it in config, --token or %s", c.Type, tokenEnv[c.Type])
		}
	}

	return nil
}
