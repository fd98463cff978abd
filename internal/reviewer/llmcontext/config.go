package llmcontext

import (
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

const (
	defaultWorkers = 8
)

// Config controls which files reach the prompt and how their content is loaded
type Config struct {
	// IgnoreFiles are doublestar globs matched against the full repository-relative path
	IgnoreFiles []string `yaml:"ignore_files" env:"REVIEW_IGNORE_FILES" env-separator:","`
	// MaxFiles caps the number of files after filtering, 0 means no cap
	MaxFiles int `yaml:"max_files" env:"REVIEW_MAX_FILES"`
	// FetchBaseContent loads content at the base ref for modified, renamed and deleted files
	FetchBaseContent bool `yaml:"fetch_base_content" env:"REVIEW_FETCH_BASE_CONTENT"`
	Workers          int  `yaml:"workers" env:"REVIEW_WORKERS"`

	Verbose bool `yaml:"-"`
}

func (c *Config) PrepareAndValidate() error {
	if c.MaxFiles < 0 {
		return errm.New("max_files must not be negative")
	}
	if c.Workers < 0 {
		return errm.New("workers must not be negative")
	}
	c.Workers = lang.Check(c.Workers, defaultWorkers)
	return nil
}
