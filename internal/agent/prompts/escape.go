package prompts

import (
	"strings"
)

// EscapeFences neutralizes runs of three or more backticks so embedded text cannot close
// the surrounding code block. Every backtick of such a run is prefixed with a backslash.
func EscapeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)

	for i := 0; i < len(s); {
		if s[i] != '`' {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '`' {
			j++
		}
		if j-i >= 3 {
			for k := i; k < j; k++ {
				b.WriteString("\\`")
			}
		} else {
			b.WriteString(s[i:j])
		}
		i = j
	}
	return b.String()
}

// fenced wraps text in a fenced block with an optional info string.
func fenced(info, text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(info) + 10)
	b.WriteString("```")
	b.WriteString(info)
	b.WriteString("\n")
	b.WriteString(EscapeFences(strings.TrimRight(text, "\n")))
	b.WriteString("\n```")
	return b.String()
}
