package prompts

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/falcon/internal/model"
)

// schemaJSON renders schemas with sorted keys so the prompt stays byte-stable.
var schemaJSON = jsoniter.Config{
	SortMapKeys:            true,
	EscapeHTML:             false,
	ValidateJsonRawMessage: true,
}.Froze()

// ReviewSchema returns the structured review schema for a granularity.
// Line granularity requires a line number on every comment, file granularity has no line field.
func ReviewSchema(granularity model.Granularity, taxonomy model.Taxonomy) *model.Schema {
	comment := &model.Schema{
		Type: model.SchemaObject,
		Properties: map[string]*model.Schema{
			"currentCode": {
				Type:        model.SchemaString,
				Description: "The exact code snippet the comment is about",
			},
			"suggestedCode": {
				Type:        model.SchemaString,
				Description: "The improved code that replaces currentCode, empty if there is nothing to replace",
			},
			"reason": {
				Type:        model.SchemaString,
				Description: "Why the change is needed and what it improves",
			},
			"category": {
				Type: model.SchemaString,
				Enum: taxonomy.Categories,
			},
			"severity": {
				Type: model.SchemaString,
				Enum: taxonomy.Severities,
			},
		},
		// category and severity stay optional, their vocabulary is configurable
		Required: []string{"currentCode", "suggestedCode", "reason"},
		Ordering: []string{"currentCode", "suggestedCode", "reason", "category", "severity"},
	}

	if granularity == model.GranularityLine {
		comment.Properties["line"] = &model.Schema{
			Type:        model.SchemaInteger,
			Description: "Line number in the new version of the file where the comment applies",
		}
		comment.Required = append([]string{"line"}, comment.Required...)
		comment.Ordering = append([]string{"line"}, comment.Ordering...)
	}

	return &model.Schema{
		Type: model.SchemaObject,
		Properties: map[string]*model.Schema{
			"overallSummary": {
				Type:        model.SchemaString,
				Description: "A short summary of the whole pull request and its quality",
			},
			"positiveFeedback": {
				Type:  model.SchemaArray,
				Items: &model.Schema{Type: model.SchemaString},
			},
			"files": {
				Type: model.SchemaArray,
				Items: &model.Schema{
					Type: model.SchemaObject,
					Properties: map[string]*model.Schema{
						"filePath": {Type: model.SchemaString},
						"comments": {Type: model.SchemaArray, Items: comment},
					},
					Required: []string{"filePath", "comments"},
					Ordering: []string{"filePath", "comments"},
				},
			},
		},
		Required: []string{"overallSummary", "positiveFeedback", "files"},
		Ordering: []string{"overallSummary", "positiveFeedback", "files"},
	}
}

// MarshalSchema renders a schema as indented JSON with sorted keys.
func MarshalSchema(s *model.Schema) (string, error) {
	data, err := schemaJSON.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
