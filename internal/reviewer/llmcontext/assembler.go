// Package llmcontext filters parsed file changes and loads the file content used as prompt context.
package llmcontext

import (
	"context"
	"sync"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/logze/v2"
	"github.com/panjf2000/ants/v2"
)

// ContentFetcher loads a file at a ref. Providers return "" for missing files.
type ContentFetcher interface {
	GetFileContent(ctx context.Context, path, ref string) (string, error)
}

// Request describes one assembly run
type Request struct {
	Changes []model.FileChange
	HeadRef string
	BaseRef string
	// Ignore is merged with the configured patterns, e.g. patterns from repository metadata
	Ignore []string
}

// Result is the filtered and content-enriched change list, in input order
type Result struct {
	Files   []model.FileChange
	Ignored []string
	Failed  []string
}

// Assembler builds the per-file context consumed by the prompt composer
type Assembler struct {
	fetcher ContentFetcher
	related RelatedResolver
	cfg     Config
	log     logze.Logger
}

// Option configures an Assembler
type Option func(*Assembler)

// WithRelatedResolver sets the related file resolver, none is used by default.
func WithRelatedResolver(r RelatedResolver) Option {
	return func(a *Assembler) {
		if r != nil {
			a.related = r
		}
	}
}

// New creates a new context assembler
func New(cfg Config, fetcher ContentFetcher, opts ...Option) (*Assembler, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}
	if fetcher == nil {
		return nil, erro.New("content fetcher is required")
	}
	a := &Assembler{
		fetcher: fetcher,
		related: NoRelatedFiles{},
		cfg:     cfg,
		log:     logze.With("component", "context_assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Assemble drops ignored files and fetches content for the rest.
// A failed fetch leaves that file without content and never aborts the run.
// An empty Files slice means there is nothing to review.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Result, error) {
	timer := abstract.StartTimer()
	matcher := NewIgnoreMatcher(a.log, a.cfg.IgnoreFiles, req.Ignore)

	var res Result
	for _, change := range req.Changes {
		if pattern, ok := matcher.Match(change.FilePath); ok {
			a.log.DebugIf(a.cfg.Verbose, "skipping ignored", "file", change.FilePath, "pattern", pattern)
			res.Ignored = append(res.Ignored, change.FilePath)
			continue
		}
		res.Files = append(res.Files, change)
	}

	if a.cfg.MaxFiles > 0 && len(res.Files) > a.cfg.MaxFiles {
		a.log.Warn("reached maximum files limit", "limit", a.cfg.MaxFiles, "files", len(res.Files))
		for _, f := range res.Files[a.cfg.MaxFiles:] {
			res.Ignored = append(res.Ignored, f.FilePath)
		}
		res.Files = res.Files[:a.cfg.MaxFiles]
	}

	if len(res.Files) == 0 {
		return res, nil
	}

	failed, err := a.loadContent(ctx, req, res.Files)
	if err != nil {
		return Result{}, err
	}
	res.Failed = failed

	a.log.DebugIf(a.cfg.Verbose, "assembled context",
		"files", len(res.Files),
		"ignored", len(res.Ignored),
		"failed", len(res.Failed),
		"elapsed_time", timer.ElapsedTime().String(),
	)

	return res, nil
}

type fetchJob struct {
	index int
	path  string
	ref   string
	old   bool
}

// loadContent fans fetches out on a bounded pool, every job writes only its own slot.
func (a *Assembler) loadContent(ctx context.Context, req Request, files []model.FileChange) ([]string, error) {
	var jobs []fetchJob
	for i, f := range files {
		if f.Status != model.FileDeleted && req.HeadRef != "" {
			jobs = append(jobs, fetchJob{index: i, path: f.FilePath, ref: req.HeadRef})
		}
		if a.cfg.FetchBaseContent && f.Status != model.FileAdded && req.BaseRef != "" {
			jobs = append(jobs, fetchJob{index: i, path: oldPath(f), ref: req.BaseRef, old: true})
		}
	}

	newContent := make([]string, len(files))
	oldContent := make([]string, len(files))
	related := make([][]model.RelatedFile, len(files))
	failures := make([]bool, len(files))

	pool, err := ants.NewPool(a.cfg.Workers)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create ants pool")
	}
	defer pool.Release()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	markFailed := func(i int) {
		mu.Lock()
		failures[i] = true
		mu.Unlock()
	}

	run := func(job fetchJob) {
		defer wg.Done()
		content, err := a.fetcher.GetFileContent(ctx, job.path, job.ref)
		if err != nil {
			a.log.Warn("failed to fetch file content, continuing without it", "file", job.path, "ref", job.ref, "error", err)
			markFailed(job.index)
			return
		}
		if job.old {
			oldContent[job.index] = content
		} else {
			newContent[job.index] = content
		}
	}

	for _, job := range jobs {
		wg.Add(1)
		if err := pool.Submit(func() { run(job) }); err != nil {
			a.log.Warn("pool rejected fetch, running inline", "file", job.path, "error", err)
			run(job)
		}
	}

	for i := range files {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			related[i] = a.resolveRelated(ctx, files[i])
		}); err != nil {
			related[i] = a.resolveRelated(ctx, files[i])
			wg.Done()
		}
	}

	wg.Wait()

	var failed []string
	for i := range files {
		files[i].NewContent = newContent[i]
		files[i].OldContent = oldContent[i]
		files[i].Related = related[i]
		if failures[i] {
			failed = append(failed, files[i].FilePath)
		}
	}
	return failed, nil
}

func (a *Assembler) resolveRelated(ctx context.Context, change model.FileChange) []model.RelatedFile {
	out, err := a.related.Related(ctx, change)
	if err != nil {
		a.log.Warn("failed to resolve related files", "file", change.FilePath, "error", err)
		return nil
	}
	return out
}

func oldPath(f model.FileChange) string {
	if f.PreviousFilePath != "" {
		return f.PreviousFilePath
	}
	return f.FilePath
}
