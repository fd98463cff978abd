// Package render turns a validated review into the markdown report posted to a pull request.
package render

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/maxbolgarin/falcon/internal/model"
	"github.com/maxbolgarin/lang"
)

// Header opens every non-empty report.
const Header = "### Falcon AI Review"

// Linker builds a deep link to a line of a file at a commit. An empty result means no link.
type Linker interface {
	Permalink(path, commit string, line int) string
}

// Config selects sections and the severity vocabulary
type Config struct {
	Sections []Section
	Taxonomy model.Taxonomy
}

// Renderer produces deterministic markdown from a structured review.
type Renderer struct {
	enabled  map[Section]bool
	taxonomy model.Taxonomy
	linker   Linker
}

// New creates a renderer. A nil linker renders line numbers without links.
func New(cfg Config, linker Linker) *Renderer {
	if cfg.Sections == nil {
		cfg.Sections = DefaultSections()
	}
	if cfg.Taxonomy.IsEmpty() {
		cfg.Taxonomy = model.DefaultTaxonomy()
	}
	enabled := make(map[Section]bool, len(cfg.Sections))
	for _, s := range cfg.Sections {
		enabled[s] = true
	}
	return &Renderer{
		enabled:  enabled,
		taxonomy: cfg.Taxonomy,
		linker:   linker,
	}
}

// Render returns the report for a review at the given head commit.
// The result is empty when no section has anything to show.
func (r *Renderer) Render(review model.StructuredReview, commit string) string {
	var blocks []string

	if r.enabled[SectionSummary] && strings.TrimSpace(review.OverallSummary) != "" {
		blocks = append(blocks, "#### Summary\n\n"+strings.TrimSpace(review.OverallSummary))
	}
	if r.enabled[SectionPositive] {
		blocks = appendNotEmpty(blocks, r.positive(review.PositiveFeedback))
	}
	if r.enabled[SectionCounts] {
		blocks = appendNotEmpty(blocks, r.counts(review))
	}
	if r.enabled[SectionActionable] {
		blocks = appendNotEmpty(blocks, r.actionable(review, commit))
	}
	if r.enabled[SectionDetails] {
		blocks = appendNotEmpty(blocks, r.details(review, commit))
	}

	// score alone is not a report
	if len(blocks) == 0 {
		return ""
	}
	if r.enabled[SectionScore] {
		blocks = append(blocks, fmt.Sprintf("#### Quality Score\n\n**%s** / 100", FormatScore(QualityScore(review, r.taxonomy))))
	}

	return Header + "\n\n" + strings.Join(blocks, "\n\n") + "\n"
}

// QualityScore is 100 without comments and drops with the share of actionable findings.
func QualityScore(review model.StructuredReview, taxonomy model.Taxonomy) float64 {
	var total, actionable int
	for _, f := range review.Files {
		for _, c := range f.Comments {
			total++
			if taxonomy.IsActionable(c.Severity) {
				actionable++
			}
		}
	}
	if total == 0 {
		return 100
	}
	return (1 - float64(actionable)/float64(total)) * 100
}

// FormatScore renders a score with two decimals.
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}

func (r *Renderer) positive(items []string) string {
	var b strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(strings.ReplaceAll(item, "\n", " "))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return ""
	}
	return "#### Positive Feedback\n\n" + strings.TrimRight(b.String(), "\n")
}

type countKey struct {
	category model.Category
	severity model.Severity
}

func (r *Renderer) counts(review model.StructuredReview) string {
	var order []countKey
	counts := make(map[countKey]int)
	for _, f := range review.Files {
		for _, c := range f.Comments {
			key := countKey{category: c.Category, severity: c.Severity}
			if _, ok := counts[key]; !ok {
				order = append(order, key)
			}
			counts[key]++
		}
	}
	if len(order) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("#### Suggestion Summary\n\n")
	b.WriteString("| Category | Severity | Count |\n")
	b.WriteString("| --- | --- | ---: |\n")
	for _, key := range order {
		fmt.Fprintf(&b, "| %s | %s | %d |\n",
			cell(lang.Check(string(key.category), "-")),
			cell(lang.Check(string(key.severity), "-")),
			counts[key],
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) actionable(review model.StructuredReview, commit string) string {
	var rows []string
	for _, f := range review.Files {
		for _, c := range f.Comments {
			if !r.taxonomy.IsActionable(c.Severity) {
				continue
			}
			rows = append(rows, fmt.Sprintf("| `%s` | %s | %s |",
				strings.ReplaceAll(f.FilePath, "`", "'"),
				r.lineRef(f.FilePath, commit, c.Line),
				cell(c.Reason),
			))
		}
	}
	if len(rows) == 0 {
		return ""
	}
	return "#### Actionable Items\n\n| File | Line | Reason |\n| --- | --- | --- |\n" + strings.Join(rows, "\n")
}

func (r *Renderer) details(review model.StructuredReview, commit string) string {
	var b strings.Builder
	for _, f := range review.Files {
		if len(f.Comments) == 0 {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("#### Details\n")
		}
		fmt.Fprintf(&b, "\n##### `%s`\n", strings.ReplaceAll(f.FilePath, "`", "'"))

		for _, c := range f.Comments {
			b.WriteString("\n###### ")
			if c.Line > 0 {
				b.WriteString(r.lineRef(f.FilePath, commit, c.Line))
			} else {
				b.WriteString("File-level")
			}
			b.WriteString("\n\n")

			var tags []string
			if c.Category != "" {
				tags = append(tags, "**Category:** `"+tag(string(c.Category))+"`")
			}
			if c.Severity != "" {
				tags = append(tags, "**Severity:** `"+tag(string(c.Severity))+"`")
			}
			if len(tags) > 0 {
				b.WriteString(strings.Join(tags, " | "))
				b.WriteString("\n\n")
			}

			b.WriteString(strings.TrimSpace(c.Reason))
			b.WriteString("\n")

			language := codeLanguage(f.FilePath)
			b.WriteString("\n**Current code:**\n\n")
			b.WriteString(codeBlock(language, c.CurrentCode))
			b.WriteString("\n")
			if strings.TrimSpace(c.SuggestedCode) != "" {
				b.WriteString("\n**Suggested code:**\n\n")
				b.WriteString(codeBlock(language, c.SuggestedCode))
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) lineRef(path, commit string, line int) string {
	if line <= 0 {
		return "-"
	}
	label := "Line " + strconv.Itoa(line)
	if r.linker == nil || commit == "" {
		return label
	}
	link := r.linker.Permalink(path, commit, line)
	if link == "" {
		return label
	}
	return "[" + label + "](" + link + ")"
}

// codeBlock wraps code in a fence longer than any backtick run inside it.
func codeBlock(language, code string) string {
	fence := strings.Repeat("`", max(3, longestRun(code, '`')+1))
	return fence + language + "\n" + strings.TrimRight(code, "\n") + "\n" + fence
}

func longestRun(s string, ch byte) int {
	var best, cur int
	for i := 0; i < len(s); i++ {
		if s[i] == ch {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}

var extLanguages = map[string]string{
	".go":   "go",
	".ts":   "typescript",
	".tsx":  "tsx",
	".js":   "javascript",
	".jsx":  "jsx",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
	".kt":   "kotlin",
	".cs":   "csharp",
	".cpp":  "cpp",
	".c":    "c",
	".h":    "c",
	".php":  "php",
	".sh":   "bash",
	".sql":  "sql",
	".yml":  "yaml",
	".yaml": "yaml",
	".json": "json",
}

func codeLanguage(path string) string {
	return extLanguages[strings.ToLower(filepath.Ext(path))]
}

func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func tag(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "`", "'")
}

func appendNotEmpty(blocks []string, block string) []string {
	if block == "" {
		return blocks
	}
	return append(blocks, block)
}
