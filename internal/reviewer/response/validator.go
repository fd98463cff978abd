// Package response turns raw model output into a sanitized structured review.
package response

import (
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/logze/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report describes what was dropped while validating a response.
type Report struct {
	DroppedFiles     int
	DroppedComments  int
	DroppedPositives int
	Warnings         []string
}

// Clean reports whether nothing was dropped.
func (r Report) Clean() bool {
	return r.DroppedFiles == 0 && r.DroppedComments == 0 && r.DroppedPositives == 0
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Validator checks model output against the structured review shape.
// The model is untrusted: bad leaves are dropped, only an unusable top level is fatal.
type Validator struct {
	log logze.Logger
}

// NewValidator creates a new response validator
func NewValidator(log logze.Logger) *Validator {
	return &Validator{log: log}
}

// Validate parses raw model text into a sanitized review.
// Errors are ErrInvalidJSON or ErrMissingSummary, both fatal for the run.
func (v *Validator) Validate(raw string) (model.StructuredReview, Report, error) {
	var report Report

	doc, err := decode(raw)
	if err != nil {
		return model.StructuredReview{}, report, err
	}

	summary, ok := doc["overallSummary"].(string)
	summary = strings.TrimSpace(summary)
	if !ok || summary == "" {
		return model.StructuredReview{}, report, ErrMissingSummary
	}

	out := model.StructuredReview{
		OverallSummary:   summary,
		PositiveFeedback: v.positives(doc["positiveFeedback"], &report),
		Files:            v.files(doc["files"], &report),
	}

	if !report.Clean() {
		v.log.Warn("model response was partially invalid",
			"dropped_files", report.DroppedFiles,
			"dropped_comments", report.DroppedComments,
			"dropped_positive", report.DroppedPositives,
		)
	}

	return out, report, nil
}

func (v *Validator) positives(raw any, report *Report) []string {
	items, ok := raw.([]any)
	if !ok {
		if raw != nil {
			report.warn("positiveFeedback is not an array")
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			report.DroppedPositives++
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func (v *Validator) files(raw any, report *Report) []model.FileReview {
	items, ok := raw.([]any)
	if !ok {
		if raw != nil {
			report.warn("files is not an array, treated as empty")
			v.log.Warn("files field has unexpected type, treating as empty")
		}
		return nil
	}

	out := make([]model.FileReview, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			report.DroppedFiles++
			report.warn("file entry " + strconv.Itoa(i) + " is not an object")
			v.log.Warn("dropping file entry", "index", i, "reason", "not an object")
			continue
		}
		path, _ := obj["filePath"].(string)
		path = strings.TrimSpace(path)
		if path == "" {
			report.DroppedFiles++
			report.warn("file entry " + strconv.Itoa(i) + " has no filePath")
			v.log.Warn("dropping file entry", "index", i, "reason", "missing filePath")
			continue
		}

		out = append(out, model.FileReview{
			FilePath: path,
			Comments: v.comments(path, obj["comments"], report),
		})
	}
	return out
}

func (v *Validator) comments(path string, raw any, report *Report) []model.ReviewComment {
	items, ok := raw.([]any)
	if !ok {
		if raw != nil {
			report.warn("comments of " + path + " is not an array")
		}
		return nil
	}

	out := make([]model.ReviewComment, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			report.DroppedComments++
			v.log.Warn("dropping comment", "file", path, "index", i, "reason", "not an object")
			continue
		}
		current, _ := obj["currentCode"].(string)
		reason, _ := obj["reason"].(string)
		if strings.TrimSpace(current) == "" || strings.TrimSpace(reason) == "" {
			report.DroppedComments++
			report.warn("comment " + strconv.Itoa(i) + " of " + path + " misses currentCode or reason")
			v.log.Warn("dropping comment", "file", path, "index", i, "reason", "missing required field")
			continue
		}
		suggested, _ := obj["suggestedCode"].(string)
		category, _ := obj["category"].(string)
		severity, _ := obj["severity"].(string)

		out = append(out, model.ReviewComment{
			Line:          lineNumber(obj["line"]),
			CurrentCode:   current,
			SuggestedCode: suggested,
			Reason:        strings.TrimSpace(reason),
			Category:      model.Category(strings.TrimSpace(category)),
			Severity:      model.Severity(strings.TrimSpace(severity)),
		})
	}
	return out
}

// lineNumber accepts positive whole numbers and numeric strings, anything else is no line.
func lineNumber(raw any) int {
	switch v := raw.(type) {
	case float64:
		if v >= 1 && v == math.Trunc(v) && v <= math.MaxInt32 {
			return int(v)
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// decode extracts a JSON object from model text. Only a strict parse is accepted,
// a payload that needs repair is never rendered.
func decode(raw string) (map[string]any, error) {
	payload := extractPayload(raw)
	if payload == "" {
		return nil, ErrInvalidJSON
	}

	var doc map[string]any
	err := json.UnmarshalFromString(payload, &doc)
	if err == nil && doc != nil {
		return doc, nil
	}
	if err == nil {
		return nil, ErrInvalidJSON
	}

	// repairable syntax usually means the output hit the token limit
	if _, rerr := jsonrepair.JSONRepair(payload); rerr == nil {
		return nil, errm.Wrap(ErrInvalidJSON, "malformed or truncated output, consider raising max_tokens: "+err.Error())
	}
	return nil, errm.Wrap(ErrInvalidJSON, err.Error())
}

// extractPayload strips code fences and surrounding prose around the JSON object.
func extractPayload(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	if end := strings.LastIndexByte(s, '}'); end > start {
		return s[start : end+1]
	}
	// no closing brace, strict parsing rejects it
	return s[start:]
}
