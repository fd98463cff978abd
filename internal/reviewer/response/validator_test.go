package response

import (
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/logze/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *Validator {
	return NewValidator(logze.Default())
}

func TestValidateWellFormed(t *testing.T) {
	raw := `{
		"overallSummary": "Solid change",
		"positiveFeedback": ["Good tests", "  ", 42],
		"files": [
			{"filePath": "a.ts", "comments": [
				{"line": 5, "currentCode": "x == y", "suggestedCode": "x === y", "reason": "strict equality", "category": "BUG", "severity": "HIGH"}
			]}
		]
	}`

	review, report, err := newValidator().Validate(raw)
	require.NoError(t, err)

	assert.Equal(t, "Solid change", review.OverallSummary)
	assert.Equal(t, []string{"Good tests"}, review.PositiveFeedback)
	assert.Equal(t, 2, report.DroppedPositives)
	require.Len(t, review.Files, 1)
	assert.Equal(t, model.ReviewComment{
		Line:          5,
		CurrentCode:   "x == y",
		SuggestedCode: "x === y",
		Reason:        "strict equality",
		Category:      "BUG",
		Severity:      "HIGH",
	}, review.Files[0].Comments[0])
	assert.Zero(t, report.DroppedFiles)
}

func TestValidateDropsCommentMissingReason(t *testing.T) {
	raw := `{"overallSummary": "s", "files": [{"filePath": "a.ts", "comments": [
		{"currentCode": "a", "reason": "keep me", "category": "STYLE", "severity": "LOW"},
		{"currentCode": "b", "category": "STYLE", "severity": "LOW"}
	]}]}`

	review, report, err := newValidator().Validate(raw)
	require.NoError(t, err)
	require.Len(t, review.Files, 1)
	require.Len(t, review.Files[0].Comments, 1)
	assert.Equal(t, "keep me", review.Files[0].Comments[0].Reason)
	assert.Equal(t, 1, report.DroppedComments)
	assert.False(t, report.Clean())
}

func TestValidateMissingSummaryIsFatal(t *testing.T) {
	raws := []string{
		`{"files": [{"filePath": "a.ts", "comments": [{"currentCode": "a", "reason": "r"}]}]}`,
		`{"overallSummary": "   ", "files": []}`,
		`{"overallSummary": 7}`,
	}
	for _, raw := range raws {
		_, _, err := newValidator().Validate(raw)
		assert.ErrorIs(t, err, ErrMissingSummary, raw)
	}
}

func TestValidateUnparsableIsFatal(t *testing.T) {
	_, _, err := newValidator().Validate("Sorry, I cannot review this pull request.")
	assert.ErrorIs(t, err, ErrInvalidJSON)

	_, _, err = newValidator().Validate("")
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestValidateFilesShape(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		files        int
		droppedFiles int
	}{
		{"missing files", `{"overallSummary": "s"}`, 0, 0},
		{"files is a string", `{"overallSummary": "s", "files": "none"}`, 0, 0},
		{"entry without path", `{"overallSummary": "s", "files": [{"comments": []}, {"filePath": "b.go", "comments": []}]}`, 1, 1},
		{"entry is not an object", `{"overallSummary": "s", "files": ["a.go"]}`, 0, 1},
		{"comments not an array", `{"overallSummary": "s", "files": [{"filePath": "a.go", "comments": {}}]}`, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review, report, err := newValidator().Validate(tt.raw)
			require.NoError(t, err)
			assert.Len(t, review.Files, tt.files)
			assert.Equal(t, tt.droppedFiles, report.DroppedFiles)
		})
	}
}

func TestValidatePassesUnknownLabels(t *testing.T) {
	raw := `{"overallSummary": "s", "files": [{"filePath": "a.go", "comments": [
		{"currentCode": "a", "reason": "r", "category": "QUESTION", "severity": "BLOCKER"}
	]}]}`

	review, _, err := newValidator().Validate(raw)
	require.NoError(t, err)
	c := review.Files[0].Comments[0]
	assert.Equal(t, model.Category("QUESTION"), c.Category)
	assert.Equal(t, model.Severity("BLOCKER"), c.Severity)
}

func TestValidateLineValues(t *testing.T) {
	tests := []struct {
		raw  any
		want int
	}{
		{float64(12), 12},
		{float64(0), 0},
		{float64(-3), 0},
		{float64(2.5), 0},
		{"7", 7},
		{"seven", 0},
		{nil, 0},
		{true, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lineNumber(tt.raw), "%v", tt.raw)
	}
}

func TestValidateStripsFencesAndProse(t *testing.T) {
	raw := "```json\n{\"overallSummary\": \"fenced\", \"files\": []}\n```"
	review, _, err := newValidator().Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "fenced", review.OverallSummary)

	raw = "Here is the review:\n{\"overallSummary\": \"prose\"}\nThanks!"
	review, _, err = newValidator().Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "prose", review.OverallSummary)
}

func TestValidateRejectsTruncatedOutput(t *testing.T) {
	tests := []string{
		`{"overallSummary": "Looks fine", "files": [{"filePath": "a.go", "comments": [{"currentCode": "x := 1", "reason": "unused var`,
		`{"overallSummary": "cut", "positiveFeedback": ["ok"], "files": [`,
		`Sorry, here is {"overallSummary": "ok"`,
	}
	for _, raw := range tests {
		review, _, err := newValidator().Validate(raw)
		require.Error(t, err, raw)
		assert.True(t, errm.Is(err, ErrInvalidJSON), raw)
		assert.Empty(t, review.OverallSummary)
		assert.Empty(t, review.Files)
	}
}
