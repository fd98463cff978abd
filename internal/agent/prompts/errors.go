package prompts

import "github.com/maxbolgarin/errm"

// Input errors are raised before any model call. The caller treats them as "nothing to do".
var (
	ErrMissingPrompt     = errm.New("user prompt is required")
	ErrMissingStyleGuide = errm.New("style guide or repository review instructions are required")
	ErrNoFiles           = errm.New("no files to compose a prompt from")
)

// IsInputError reports whether err is one of the composer input errors.
func IsInputError(err error) bool {
	return errm.Is(err, ErrMissingPrompt) || errm.Is(err, ErrMissingStyleGuide) || errm.Is(err, ErrNoFiles)
}
