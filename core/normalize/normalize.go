// Package normalize provides deterministic text canonicalization applied
// before digest computation. Normalization exists solely to keep
// incidental formatting churn (editor line-ending conversion, trailing
// whitespace stripping) from registering as a content change. It never
// alters semantic content: no case-folding, no re-wrapping, no markdown
// re-rendering.
package normalize

import "strings"

// =============================================================================
// Policy
// =============================================================================

// Policy selects which canonicalization steps are applied. Each flag is
// independent; a zero Policy makes Normalize the identity function.
type Policy struct {
	// LineEndings converts CRLF sequences to LF.
	LineEndings bool

	// TrimTrailingWhitespace strips trailing spaces and tabs per line.
	TrimTrailingWhitespace bool

	// CollapseTrailingBlankLines drops blank lines at the end of the
	// block, so text ends at its last non-blank line.
	CollapseTrailingBlankLines bool
}

// DefaultPolicy returns the policy with all canonicalization enabled.
func DefaultPolicy() Policy {
	return Policy{
		LineEndings:                true,
		TrimTrailingWhitespace:     true,
		CollapseTrailingBlankLines: true,
	}
}

// =============================================================================
// Normalizer
// =============================================================================

// Normalizer applies a fixed Policy. It is stateless and safe for
// concurrent use.
type Normalizer struct {
	policy Policy
}

// New creates a Normalizer with the given policy.
func New(policy Policy) *Normalizer {
	return &Normalizer{policy: policy}
}

// Policy returns the normalizer's policy.
func (n *Normalizer) Policy() Policy {
	return n.policy
}

// Normalize canonicalizes raw block text. Pure and deterministic:
// identical input always yields identical output.
func (n *Normalizer) Normalize(raw string) string {
	text := raw

	if n.policy.LineEndings {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}

	if n.policy.TrimTrailingWhitespace {
		text = trimLineTrailingWhitespace(text)
	}

	if n.policy.CollapseTrailingBlankLines {
		text = collapseTrailingBlankLines(text)
	}

	return text
}

// trimLineTrailingWhitespace strips trailing spaces and tabs from every
// line without touching leading whitespace or line content.
func trimLineTrailingWhitespace(text string) string {
	if !strings.ContainsAny(text, " \t") {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// collapseTrailingBlankLines removes blank lines at the end of the text.
// A line is blank when it contains only spaces and tabs.
func collapseTrailingBlankLines(text string) string {
	end := len(text)
	for end > 0 {
		lineStart := strings.LastIndexByte(text[:end], '\n') + 1
		if strings.TrimRight(text[lineStart:end], " \t") != "" {
			break
		}
		if lineStart == 0 {
			return ""
		}
		end = lineStart - 1
	}
	return text[:end]
}
