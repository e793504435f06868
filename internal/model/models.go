// internal/model/models.go
package model

import (
	"strings"
	"time"

	custom_errors "github-ai-attribution/internal/errors"
)

// MaxMessageLength bounds the commit message stored per commit, in runes.
const MaxMessageLength = 500

// OwnerKind tells whether an installation belongs to a user or an organization.
type OwnerKind string

const (
	OwnerPersonal     OwnerKind = "personal"
	OwnerOrganization OwnerKind = "organization"
)

// InstallationRef points at one internal installation row, personal or org.
type InstallationRef struct {
	Kind OwnerKind
	ID   int64
	// GithubInstallationID is the platform-assigned installation id.
	GithubInstallationID int64
}

// Account is the hosting-platform account behind an installation.
type Account struct {
	ID    int64
	Login string
	Type  string // "User" or "Organization"
}

// RemoteRepository is a repository visible to an installation on the platform.
type RemoteRepository struct {
	GithubRepoID  int64
	FullName      string
	DefaultBranch string
	PushedAt      *time.Time
}

// Commit is one classified commit ready to be persisted.
type Commit struct {
	SHA          string
	AuthorName   string
	AuthorEmail  string
	Message      string
	IsAI         bool
	AITool       string
	LinesAdded   int
	LinesRemoved int
	CommittedAt  time.Time
}

// LineStats are the additions/deletions the platform reports for one commit.
type LineStats struct {
	Added   int
	Removed int
}

// Totals are the rollup counters kept per repository.
type Totals struct {
	TotalCommits   int
	AICommits      int
	AILinesAdded   int64
	AILinesRemoved int64
}

// Add accumulates c into t.
func (t *Totals) Add(c Commit) {
	t.TotalCommits++
	if c.IsAI {
		t.AICommits++
		t.AILinesAdded += int64(c.LinesAdded)
		t.AILinesRemoved += int64(c.LinesRemoved)
	}
}

// AIPercentage is the share of AI commits, rounded to two decimals.
func (t Totals) AIPercentage() float64 {
	return AIPercentage(t.TotalCommits, t.AICommits)
}

// AIPercentage returns ai/total as a percentage rounded to two decimals.
func AIPercentage(total, ai int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(ai) * 100 / float64(total)
	return float64(int64(p*100+0.5)) / 100
}

// TruncateMessage cuts msg to MaxMessageLength runes.
func TruncateMessage(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxMessageLength {
		return msg
	}
	return string(r[:MaxMessageLength])
}

// SplitFullName splits "owner/repo".
func SplitFullName(fullName string) (owner, repo string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &custom_errors.ErrInvalidRepoFormat{Repo: fullName}
	}
	return parts[0], parts[1], nil
}
