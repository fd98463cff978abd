package model

import (
	"strings"

	"github.com/maxbolgarin/errm"
	"gopkg.in/yaml.v3"
)

// MetadataFile is the repository-level configuration path read at the PR head ref.
const MetadataFile = ".falcon.yml"

// Metadata is repository-level configuration supplied by the reviewed repository itself.
// A missing file yields the zero value.
type Metadata struct {
	ProjectInfo   *ProjectInfo   `yaml:"projectInfo" json:"projectInfo,omitempty"`
	CustomPrompts *CustomPrompts `yaml:"customPrompts" json:"customPrompts,omitempty"`
	IgnoreFiles   []string       `yaml:"ignoreFiles" json:"ignoreFiles,omitempty"`
}

type ProjectInfo struct {
	Language    string `yaml:"language" json:"language,omitempty"`
	ProjectType string `yaml:"projectType" json:"projectType,omitempty"`
	Framework   string `yaml:"framework" json:"framework,omitempty"`
}

type CustomPrompts struct {
	Review  string `yaml:"review" json:"review,omitempty"`
	Summary string `yaml:"summary" json:"summary,omitempty"`
}

// ParseMetadata decodes a metadata document. JSON documents are accepted too.
func ParseMetadata(data []byte) (Metadata, error) {
	var out Metadata
	if strings.TrimSpace(string(data)) == "" {
		return out, nil
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Metadata{}, errm.Wrap(err, "failed to parse metadata")
	}
	return out, nil
}

// ReviewPrompt returns the repository review prompt or an empty string.
func (m Metadata) ReviewPrompt() string {
	if m.CustomPrompts == nil {
		return ""
	}
	return strings.TrimSpace(m.CustomPrompts.Review)
}

// SummaryPrompt returns the repository summary prompt or an empty string.
func (m Metadata) SummaryPrompt() string {
	if m.CustomPrompts == nil {
		return ""
	}
	return strings.TrimSpace(m.CustomPrompts.Summary)
}
