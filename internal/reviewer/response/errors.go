package response

import "github.com/maxbolgarin/errm"

var (
	ErrInvalidJSON    = errm.New("model response is not a valid JSON object")
	ErrMissingSummary = errm.New("model response has no overallSummary")
)
