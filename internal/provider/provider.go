// Package provider creates code providers and webhook sources by provider type.
package provider

import (
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider/bitbucket"
	"github.com/maxbolgarin/falcon/internal/provider/github"
	"github.com/maxbolgarin/falcon/internal/provider/gitlab"
	"github.com/maxbolgarin/falcon/internal/provider/local"
)

// New creates a code provider for one pull request.
// baseBranch is used by the local provider, remote providers read it from the pull request.
func New(cfg Config, target model.Target, baseBranch string, opts ...local.Option) (interfaces.CodeProvider, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	cfgForProvider := toProviderConfig(cfg)
	cfgForProvider.BaseBranch = baseBranch
	target.Provider = string(cfg.Type)

	var provider interfaces.CodeProvider
	var err error

	switch cfg.Type {
	case GitHub:
		provider, err = github.New(cfgForProvider, target)
	case Bitbucket:
		provider, err = bitbucket.New(cfgForProvider, target)
	case GitLab:
		provider, err = gitlab.New(cfgForProvider, target)
	case Local:
		provider, err = local.New(cfgForProvider, opts...)
	default:
		return nil, erro.New("unsupported provider type: %s", cfg.Type)
	}
	if err != nil {
		return nil, erro.Wrap(err, "failed to create provider")
	}

	return provider, nil
}

// NewWebhookSource creates a webhook source for a remote provider type
func NewWebhookSource(cfg Config) (interfaces.WebhookSource, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	cfgForProvider := toProviderConfig(cfg)

	switch cfg.Type {
	case GitHub:
		return github.NewWebhook(cfgForProvider), nil
	case Bitbucket:
		return bitbucket.NewWebhook(cfgForProvider), nil
	case GitLab:
		return gitlab.NewWebhook(cfgForProvider), nil
	default:
		return nil, erro.New("provider type %s does not support webhooks", cfg.Type)
	}
}

// SignatureHeader returns the HTTP header that carries the webhook signature or token
func SignatureHeader(t ProviderType) string {
	switch t {
	case GitHub:
		return github.SignatureHeader
	case Bitbucket:
		return bitbucket.SignatureHeader
	case GitLab:
		return gitlab.TokenHeader
	default:
		return ""
	}
}

func toProviderConfig(cfg Config) model.ProviderConfig {
	return model.ProviderConfig{
		BaseURL:       cfg.BaseURL,
		Token:         cfg.Token,
		Username:      cfg.Username,
		AppPassword:   cfg.AppPassword,
		WebhookSecret: cfg.WebhookSecret,
		BotUsername:   cfg.BotUsername,
		WorkDir:       cfg.WorkDir,
	}
}
