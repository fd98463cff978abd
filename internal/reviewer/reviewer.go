// Package reviewer runs one review or summary of a pull request:
// fetch, filter, compose, invoke, validate, render, publish.
package reviewer

import (
	"io"
	"time"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/agent/prompts"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/falcon/internal/reviewer/llmcontext"
	"github.com/maxbolgarin/falcon/internal/reviewer/render"
	"github.com/maxbolgarin/falcon/internal/reviewer/response"
	"github.com/maxbolgarin/logze/v2"
)

// State is a step of a run
type State string

const (
	StateFetchingContext State = "fetching_context"
	StateFiltering       State = "filtering"
	StateComposing       State = "composing"
	StateInvoking        State = "invoking"
	StateValidating      State = "validating"
	StateRendering       State = "rendering"
	StatePublishing      State = "publishing"
	StateDone            State = "done"
	StateAborted         State = "aborted"
)

// Stats are counters collected during a run
type Stats struct {
	ChangedFiles  int
	ReviewedFiles int
	IgnoredFiles  int
	FailedFetches int
	Comments      int
	Elapsed       time.Duration
}

// Outcome is the terminal result of a run.
// State is Done or Aborted; AbortedAt is the step that aborted.
type Outcome struct {
	State     State
	AbortedAt State
	Reason    string
	Report    response.Report
	Stats     Stats
	// Noop is set when the run was aborted without a failure
	Noop bool
	// Published is the document that was posted, empty when nothing was posted
	Published string
}

// Reviewer runs reviews and summaries for one pull request
type Reviewer struct {
	provider interfaces.CodeProvider
	model    interfaces.LanguageModel
	vcs      interfaces.VersionControl

	assembler *llmcontext.Assembler
	composer  *prompts.Composer
	validator *response.Validator
	renderer  *render.Renderer

	dryRun io.Writer
	cfg    Config
	log    logze.Logger

	related llmcontext.RelatedResolver
}

// Option configures a Reviewer
type Option func(*Reviewer)

// WithVersionControl makes the reviewer take the diff and file content from a local repository.
func WithVersionControl(vcs interfaces.VersionControl) Option {
	return func(r *Reviewer) {
		r.vcs = vcs
	}
}

// WithDryRun writes the final document to w instead of publishing it.
func WithDryRun(w io.Writer) Option {
	return func(r *Reviewer) {
		r.dryRun = w
	}
}

// WithRelatedResolver sets the related file extension point.
func WithRelatedResolver(resolver llmcontext.RelatedResolver) Option {
	return func(r *Reviewer) {
		r.related = resolver
	}
}

// WithLogger sets the base logger.
func WithLogger(log logze.Logger) Option {
	return func(r *Reviewer) {
		r.log = log
	}
}

// New creates a new reviewer
func New(cfg Config, provider interfaces.CodeProvider, lm interfaces.LanguageModel, opts ...Option) (*Reviewer, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "failed to prepare and validate config")
	}
	if provider == nil {
		return nil, erro.New("code provider is required")
	}
	if lm == nil {
		return nil, erro.New("language model is required")
	}

	r := &Reviewer{
		provider: provider,
		model:    lm,
		cfg:      cfg,
		log:      logze.With("component", "reviewer"),
	}
	for _, opt := range opts {
		opt(r)
	}

	var fetcher llmcontext.ContentFetcher = provider
	if r.vcs != nil {
		fetcher = vcsFetcher{vcs: r.vcs}
	}
	assembler, err := llmcontext.New(cfg.Context, fetcher, llmcontext.WithRelatedResolver(r.related))
	if err != nil {
		return nil, erro.Wrap(err, "failed to create context assembler")
	}
	sections, err := render.ParseSections(cfg.Sections)
	if err != nil {
		return nil, erro.Wrap(err, "failed to parse sections")
	}

	r.assembler = assembler
	r.composer = prompts.NewComposer(prompts.Config{
		Granularity: cfg.Granularity,
		Language:    cfg.Language,
		Taxonomy:    cfg.Taxonomy,
	})
	r.validator = response.NewValidator(r.log)
	r.renderer = render.New(render.Config{Sections: sections, Taxonomy: cfg.Taxonomy}, provider)

	return r, nil
}

// run tracks the state of a single invocation
type run struct {
	outcome Outcome
	state   State
	timer   abstract.Timer
	log     logze.Logger
}

func (r *Reviewer) newRun(mode string) *run {
	return &run{
		state: StateFetchingContext,
		timer: abstract.StartTimer(),
		log:   r.log.WithFields("mode", mode),
	}
}

func (r *Reviewer) logFlow(log logze.Logger, msg string, fields ...any) {
	if r.cfg.Verbose {
		log.Info(msg, fields...)
	} else {
		log.Debug(msg, fields...)
	}
}

func (s *run) enter(state State) {
	s.state = state
}

// abort ends the run in the current state. Noop errors are reported as a nil error.
func (s *run) abort(err error) (Outcome, error) {
	s.outcome.State = StateAborted
	s.outcome.AbortedAt = s.state
	s.outcome.Reason = err.Error()
	s.outcome.Noop = IsNoop(err)
	s.finish()

	if s.outcome.Noop {
		s.log.Info("nothing to do", "state", s.state, "reason", err.Error())
		return s.outcome, nil
	}
	s.log.Err(err, "run aborted", "state", s.state)
	return s.outcome, err
}

func (s *run) done(published string) (Outcome, error) {
	s.state = StateDone
	s.outcome.State = StateDone
	s.outcome.Published = published
	s.finish()
	return s.outcome, nil
}

func (s *run) finish() {
	s.outcome.Stats.Elapsed = s.timer.ElapsedTime()
	s.log.Info("run finished",
		"state", s.outcome.State,
		"changed_files", s.outcome.Stats.ChangedFiles,
		"reviewed_files", s.outcome.Stats.ReviewedFiles,
		"ignored_files", s.outcome.Stats.IgnoredFiles,
		"failed_fetches", s.outcome.Stats.FailedFetches,
		"comments", s.outcome.Stats.Comments,
		"elapsed_time", s.outcome.Stats.Elapsed.String(),
	)
}
