// Package app wires providers, the model and the reviewer together.
package app

import (
	"context"
	"io"

	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/agent"
	"github.com/maxbolgarin/falcon/internal/config"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/provider"
	"github.com/maxbolgarin/falcon/internal/provider/local"
	"github.com/maxbolgarin/falcon/internal/reviewer"
	"github.com/maxbolgarin/falcon/internal/server"
	"github.com/maxbolgarin/logze/v2"
)

// Falcon runs reviews for single pull requests or for webhook events
type Falcon struct {
	model interfaces.LanguageModel

	newProvider func(target model.Target) (interfaces.CodeProvider, error)

	dryRun io.Writer
	output io.Writer

	cfg config.Config
	log logze.Logger
}

// Option configures Falcon
type Option func(*Falcon)

// WithDryRun prints documents to w instead of publishing them
func WithDryRun(w io.Writer) Option {
	return func(f *Falcon) {
		f.dryRun = w
	}
}

// WithOutput sets where the local provider prints reviews
func WithOutput(w io.Writer) Option {
	return func(f *Falcon) {
		f.output = w
	}
}

// WithLanguageModel replaces the configured model backend
func WithLanguageModel(lm interfaces.LanguageModel) Option {
	return func(f *Falcon) {
		f.model = lm
	}
}

// New creates the service, the model backend is created once and shared by all runs
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Falcon, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, err
	}

	f := &Falcon{
		cfg: cfg,
		log: logze.With("component", "app"),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.newProvider = f.createProvider

	if f.model == nil {
		lm, err := agent.New(ctx, cfg.Agent)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create AI agent")
		}
		f.model = lm
	}

	return f, nil
}

// Run reviews or summarizes the pull request of target
func (f *Falcon) Run(ctx context.Context, target model.Target, mode string) (reviewer.Outcome, error) {
	prov, err := f.newProvider(target)
	if err != nil {
		return reviewer.Outcome{}, errm.Wrap(err, "failed to create code provider")
	}

	opts := []reviewer.Option{
		reviewer.WithLogger(f.log.WithFields("target", target.String())),
	}
	if lp, ok := prov.(*local.Provider); ok {
		opts = append(opts, reviewer.WithVersionControl(lp.Repository()))
	}
	if f.dryRun != nil {
		opts = append(opts, reviewer.WithDryRun(f.dryRun))
	}

	r, err := reviewer.New(f.cfg.Reviewer, prov, f.model, opts...)
	if err != nil {
		return reviewer.Outcome{}, errm.Wrap(err, "failed to create reviewer")
	}

	if mode == model.ModeSummary {
		return r.Summarize(ctx)
	}
	return r.Review(ctx)
}

// Serve runs the webhook server until ctx is done
func (f *Falcon) Serve(ctx contem.Context) error {
	source, err := provider.NewWebhookSource(f.cfg.Provider)
	if err != nil {
		return errm.Wrap(err, "failed to create webhook source")
	}

	srv, err := server.New(f.cfg.Server, source, provider.SignatureHeader(f.cfg.Provider.Type), f.handleEvent)
	if err != nil {
		return errm.Wrap(err, "failed to create webhook server")
	}
	ctx.Add(srv.Stop)

	if err := srv.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start webhook server")
	}

	<-ctx.Done()
	return nil
}

func (f *Falcon) handleEvent(ctx context.Context, event model.CodeEvent) error {
	_, err := f.Run(ctx, event.Target, event.Mode())
	return err
}

func (f *Falcon) createProvider(target model.Target) (interfaces.CodeProvider, error) {
	var opts []local.Option
	if f.output != nil {
		opts = append(opts, local.WithOutput(f.output))
	}
	return provider.New(f.cfg.Provider, target, f.cfg.Reviewer.BaseBranch, opts...)
}
