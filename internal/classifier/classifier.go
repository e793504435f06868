// internal/classifier/classifier.go

// Package classifier tags commit messages that carry an AI coding tool's
// attribution trailer or generation marker.
package classifier

import "strings"

// Tag names the AI tool a commit is attributed to.
type Tag string

const (
	ClaudeCode Tag = "claude-code"
	Copilot    Tag = "github-copilot"
	Cursor     Tag = "cursor"
	Codex      Tag = "openai-codex"
	Aider      Tag = "aider"
	Devin      Tag = "devin"
	Windsurf   Tag = "windsurf"
	Gemini     Tag = "gemini"
	AmazonQ    Tag = "amazon-q"
)

// marker is a tool identity. Co-author names alone are never enough: a human
// may share the name, so trailers are matched on the tool's email or bot login.
type marker struct {
	pattern string // lower case
	tag     Tag
	// linePrefix requires pattern to open a line of the message.
	linePrefix bool
}

func (m marker) matches(lower string) bool {
	if !m.linePrefix {
		return strings.Contains(lower, m.pattern)
	}
	for _, line := range strings.Split(lower, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), m.pattern) {
			return true
		}
	}
	return false
}

// markers is scanned in order; the first hit wins.
var markers = []marker{
	{pattern: "generated with [claude code]", tag: ClaudeCode},
	{pattern: "generated with claude code", tag: ClaudeCode},
	{pattern: "noreply@anthropic.com", tag: ClaudeCode},
	{pattern: "copilot@users.noreply.github.com", tag: Copilot},
	{pattern: "copilot-swe-agent[bot]", tag: Copilot},
	{pattern: "cursoragent@cursor.com", tag: Cursor},
	{pattern: "codex@openai.com", tag: Codex},
	{pattern: "chatgpt-codex-connector[bot]", tag: Codex},
	{pattern: "noreply@aider.chat", tag: Aider},
	{pattern: "aider: ", tag: Aider, linePrefix: true},
	{pattern: "devin-ai-integration[bot]", tag: Devin},
	{pattern: "noreply@windsurf.com", tag: Windsurf},
	{pattern: "noreply@codeium.com", tag: Windsurf},
	{pattern: "gemini-code-assist[bot]", tag: Gemini},
	{pattern: "amazon-q-developer[bot]", tag: AmazonQ},
}

// Classify returns the tag of the first AI marker found in message, compared
// case-insensitively. ok is false for human-authored messages.
func Classify(message string) (tag Tag, ok bool) {
	if message == "" {
		return "", false
	}
	lower := strings.ToLower(message)
	for _, m := range markers {
		if m.matches(lower) {
			return m.tag, true
		}
	}
	return "", false
}

// Tags lists every tag the classifier can return, in marker order.
func Tags() []Tag {
	seen := make(map[Tag]bool)
	var tags []Tag
	for _, m := range markers {
		if !seen[m.tag] {
			seen[m.tag] = true
			tags = append(tags, m.tag)
		}
	}
	return tags
}
