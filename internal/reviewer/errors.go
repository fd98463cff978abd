package reviewer

import (
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/agent/prompts"
)

// Graceful aborts: the run ends without publishing and the process exits with 0.
var (
	ErrEmptyDiff       = errm.New("pull request diff is empty")
	ErrNothingToReview = errm.New("no files left to review after filtering")
	ErrEmptyReport     = errm.New("rendered report is empty")
)

// Fatal aborts.
var (
	ErrNoBaseBranch = errm.New("base branch cannot be resolved")
)

// IsNoop reports whether err ends a run without being a failure.
func IsNoop(err error) bool {
	return errm.Is(err, ErrEmptyDiff) ||
		errm.Is(err, ErrNothingToReview) ||
		errm.Is(err, ErrEmptyReport) ||
		prompts.IsInputError(err)
}
