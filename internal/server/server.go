// Package server receives provider webhooks and runs reviews for relevant pull request events.
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/falcon/internal/model/interfaces"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"
	"github.com/panjf2000/ants/v2"
)

// Runner runs one review or summary for the event's pull request
type Runner func(ctx context.Context, event model.CodeEvent) error

// Server handles webhook requests from a code provider
type Server struct {
	source interfaces.WebhookSource
	header string
	run    Runner

	config Config
	log    logze.Logger
	server *servex.Server
	pool   *ants.Pool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a webhook server. header is the request header that carries the signature or token.
func New(cfg Config, source interfaces.WebhookSource, header string, run Runner) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}
	if source == nil || run == nil {
		return nil, erro.New("webhook source and runner are required")
	}

	log := logze.With("component", "server")

	server, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	pool, err := ants.NewPool(cfg.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, erro.Wrap(err, "failed to create worker pool")
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		source:  source,
		header:  header,
		run:     run,
		config:  cfg,
		log:     log,
		server:  server,
		pool:    pool,
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	server.HandleFunc(cfg.Endpoint, s.handleWebhook)

	return s, nil
}

// Start starts the webhook server
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting webhook server", "address", s.config.Address, "endpoint", s.config.Endpoint)
	if s.config.EnableHTTPS {
		return s.server.StartHTTPS(s.config.Address)
	}
	return s.server.StartHTTP(s.config.Address)
}

// Stop stops accepting requests, cancels running jobs and waits for them to return
func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.cancel()
	s.wg.Wait()
	s.pool.Release()
	return err
}

// Wait blocks until all submitted jobs are finished
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	body, err := ctx.Read()
	if err != nil {
		ctx.BadRequest(err, "failed to read webhook body")
		return
	}

	if err := s.source.ValidateWebhook(body, r.Header.Get(s.header)); err != nil {
		ctx.Unauthorized(err, "webhook validation failed")
		return
	}

	event, err := s.source.ParseWebhookEvent(body)
	if err != nil {
		ctx.BadRequest(err, "failed to parse webhook event")
		return
	}

	if !s.source.IsReviewEvent(event) {
		ctx.Response(http.StatusOK)
		return
	}

	log := s.log.WithFields("project", event.Target.ProjectID(), "pr", event.Target.Number, "mode", event.Mode())
	log.Info("received pull request event", "type", event.Type, "action", event.Action, "title", event.Title)

	if err := s.submit(log, *event); err != nil {
		log.Err(err, "rejected event, too many running reviews")
		ctx.Response(http.StatusServiceUnavailable)
		return
	}

	ctx.Response(http.StatusAccepted)
}

// submit runs the event on the pool, detached from the request
func (s *Server) submit(log logze.Logger, event model.CodeEvent) error {
	s.wg.Add(1)
	err := s.pool.Submit(func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.baseCtx, s.config.JobTimeout)
		defer cancel()

		if err := s.run(ctx, event); err != nil {
			log.Err(err, "run failed")
		}
	})
	if err != nil {
		s.wg.Done()
		return erro.Wrap(err, "failed to submit job")
	}
	return nil
}
