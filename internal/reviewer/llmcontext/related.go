package llmcontext

import (
	"context"

	"github.com/maxbolgarin/falcon/internal/model"
)

// RelatedResolver maps a changed file to zero or more related files, e.g. its callers.
// No resolution algorithm ships with the assembler.
type RelatedResolver interface {
	Related(ctx context.Context, change model.FileChange) ([]model.RelatedFile, error)
}

// NoRelatedFiles is the default resolver
type NoRelatedFiles struct{}

func (NoRelatedFiles) Related(context.Context, model.FileChange) ([]model.RelatedFile, error) {
	return nil, nil
}

// RelatedFunc adapts a function to RelatedResolver
type RelatedFunc func(ctx context.Context, change model.FileChange) ([]model.RelatedFile, error)

func (f RelatedFunc) Related(ctx context.Context, change model.FileChange) ([]model.RelatedFile, error) {
	return f(ctx, change)
}
