// Package diffparser turns unified diff text into per-file change records.
package diffparser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/maxbolgarin/falcon/internal/model"
)

const (
	fileMarker  = "diff --git "
	devNull     = "/dev/null"
	renameFrom  = "rename from "
	renameTo    = "rename to "
	newFileMode = "new file mode"
	delFileMode = "deleted file mode"
)

var (
	hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
	plainHeader     = regexp.MustCompile(`^a/(.+) b/(.+)$`)
)

// Parse splits a multi-file unified diff into file changes in order of appearance.
// Fragments with an unparsable header and binary fragments are skipped.
// Parse never fails: malformed input yields fewer results.
func Parse(raw string) []model.FileChange {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var out []model.FileChange
	for _, fragment := range splitFragments(raw) {
		change, ok := parseFragment(fragment)
		if !ok {
			continue
		}
		out = append(out, change)
	}
	return out
}

// ParseChangedLines returns 1-based new-file line numbers of added lines in a diff fragment.
func ParseChangedLines(fileDiff string) []int {
	var (
		out     []int
		inHunk  bool
		counter int
	)
	for _, line := range strings.Split(fileDiff, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if strings.HasPrefix(line, fileMarker) {
			inHunk = false
			continue
		}
		if strings.HasPrefix(line, "@@") {
			if m := hunkHeaderRegex.FindStringSubmatch(line); m != nil {
				counter, _ = strconv.Atoi(m[3])
				inHunk = true
			}
			continue
		}
		if !inHunk {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+++"):
		case strings.HasPrefix(line, "+"):
			out = append(out, counter)
			counter++
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "-"):
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file"
		default:
			counter++
		}
	}
	return out
}

// Stats counts added and removed lines inside hunks.
func Stats(fileDiff string) (added, removed int) {
	var inHunk bool
	for _, line := range strings.Split(fileDiff, "\n") {
		switch {
		case strings.HasPrefix(line, fileMarker):
			inHunk = false
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}

func splitFragments(raw string) []string {
	lines := strings.SplitAfter(raw, "\n")

	var (
		out     []string
		current strings.Builder
		started bool
	)
	for _, line := range lines {
		if strings.HasPrefix(line, fileMarker) {
			if started {
				out = append(out, current.String())
				current.Reset()
			}
			started = true
		}
		if started {
			current.WriteString(line)
		}
	}
	if started {
		out = append(out, current.String())
	}
	return out
}

func parseFragment(fragment string) (model.FileChange, bool) {
	header, body, _ := strings.Cut(fragment, "\n")
	header = strings.TrimSuffix(strings.TrimPrefix(header, fileMarker), "\r")

	oldPath, newPath, ok := parseHeader(header)
	if !ok {
		return model.FileChange{}, false
	}

	var (
		minusPath, plusPath string
		renFrom, renTo      string
		isNew, isDeleted    bool
	)

scan:
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "@@"):
			break scan
		case strings.HasPrefix(line, "Binary files "), strings.HasPrefix(line, "GIT binary patch"):
			return model.FileChange{}, false
		case strings.HasPrefix(line, "--- "):
			minusPath = headerPath(strings.TrimPrefix(line, "--- "), "a/")
		case strings.HasPrefix(line, "+++ "):
			plusPath = headerPath(strings.TrimPrefix(line, "+++ "), "b/")
		case strings.HasPrefix(line, renameFrom):
			renFrom = unquote(strings.TrimPrefix(line, renameFrom))
		case strings.HasPrefix(line, renameTo):
			renTo = unquote(strings.TrimPrefix(line, renameTo))
		case strings.HasPrefix(line, newFileMode):
			isNew = true
		case strings.HasPrefix(line, delFileMode):
			isDeleted = true
		}
	}

	change := model.FileChange{
		FilePath:     newPath,
		Status:       model.FileModified,
		FileDiff:     strings.TrimRight(fragment, "\n"),
		ChangedLines: ParseChangedLines(fragment),
	}

	switch {
	case minusPath == devNull || isNew:
		change.Status = model.FileAdded
		change.FilePath = pathOr(plusPath, newPath)
	case plusPath == devNull || isDeleted:
		change.Status = model.FileDeleted
		change.FilePath = pathOr(minusPath, oldPath)
	case renFrom != "" && renTo != "":
		change.Status = model.FileRenamed
		change.FilePath = renTo
		change.PreviousFilePath = renFrom
	default:
		change.FilePath = pathOr(plusPath, newPath)
	}

	return change, change.FilePath != ""
}

// parseHeader recovers old and new paths from "a/<old> b/<new>", with git quoting support.
func parseHeader(header string) (string, string, bool) {
	if strings.HasPrefix(header, `"`) || strings.HasSuffix(header, `"`) {
		return parseQuotedHeader(header)
	}

	// Paths may contain " b/", prefer the split where both sides match.
	for i := strings.Index(header, " b/"); i != -1; {
		left, right := header[:i], header[i+1:]
		if strings.HasPrefix(left, "a/") && left[2:] == right[2:] {
			return left[2:], right[2:], true
		}
		next := strings.Index(header[i+1:], " b/")
		if next == -1 {
			break
		}
		i += next + 1
	}

	m := plainHeader.FindStringSubmatch(header)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func parseQuotedHeader(header string) (string, string, bool) {
	var parts []string
	rest := header
	for len(parts) < 2 && rest != "" {
		rest = strings.TrimLeft(rest, " ")
		if strings.HasPrefix(rest, `"`) {
			prefix, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return "", "", false
			}
			s, err := strconv.Unquote(prefix)
			if err != nil {
				return "", "", false
			}
			parts = append(parts, s)
			rest = rest[len(prefix):]
			continue
		}
		token, after, _ := strings.Cut(rest, " ")
		parts = append(parts, token)
		rest = after
	}
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "a/") || !strings.HasPrefix(parts[1], "b/") {
		return "", "", false
	}
	return parts[0][2:], parts[1][2:], true
}

func headerPath(s, prefix string) string {
	s = unquote(strings.TrimSpace(s))
	// some tools append a tab and a timestamp
	if i := strings.IndexByte(s, '\t'); i != -1 {
		s = s[:i]
	}
	if s == devNull {
		return devNull
	}
	return strings.TrimPrefix(s, prefix)
}

func unquote(s string) string {
	if strings.HasPrefix(s, `"`) {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

func pathOr(v, def string) string {
	if v == "" || v == devNull {
		return def
	}
	return v
}
