// internal/database/models.go
package database

import (
	"time"
)

type OrganizationMember struct {
	OrganizationID int64     `db:"organization_id"`
	UserID         string    `db:"user_id"`
	Role           string    `db:"role"`
	CreatedAt      time.Time `db:"created_at"`
}

type Installation struct {
	ID                   int64     `db:"id"`
	GithubInstallationID int64     `db:"github_installation_id"`
	UserID               string    `db:"user_id"`
	AccountID            int64     `db:"account_id"`
	AccountLogin         string    `db:"account_login"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

type OrgInstallation struct {
	ID                   int64     `db:"id"`
	GithubInstallationID int64     `db:"github_installation_id"`
	OrganizationID       int64     `db:"organization_id"`
	AccountID            int64     `db:"account_id"`
	AccountLogin         string    `db:"account_login"`
	ConnectedBy          string    `db:"connected_by"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

type TrackedRepository struct {
	ID                int64      `db:"id"`
	InstallationID    *int64     `db:"installation_id"`
	OrgInstallationID *int64     `db:"org_installation_id"`
	GithubRepoID      int64      `db:"github_repo_id"`
	FullName          string     `db:"full_name"`
	DefaultBranch     string     `db:"default_branch"`
	IsActive          bool       `db:"is_active"`
	AIPercentage      float64    `db:"ai_percentage"`
	LastPushAt        *time.Time `db:"last_push_at"`
	LastAnalyzedAt    *time.Time `db:"last_analyzed_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

type Commit struct {
	ID            int64     `db:"id"`
	RepositoryID  int64     `db:"repository_id"`
	Sha           string    `db:"sha"`
	Message       string    `db:"message"`
	AuthorName    string    `db:"author_name"`
	AuthorEmail   string    `db:"author_email"`
	IsAIGenerated bool      `db:"is_ai_generated"`
	AITool        *string   `db:"ai_tool"`
	LinesAdded    int64     `db:"lines_added"`
	LinesRemoved  int64     `db:"lines_removed"`
	CommittedAt   time.Time `db:"committed_at"`
	CreatedAt     time.Time `db:"created_at"`
}

type RepoAnalysis struct {
	RepositoryID   int64     `db:"repository_id"`
	TotalCommits   int64     `db:"total_commits"`
	AICommits      int64     `db:"ai_commits"`
	AILinesAdded   int64     `db:"ai_lines_added"`
	AILinesRemoved int64     `db:"ai_lines_removed"`
	LastAnalyzedAt time.Time `db:"last_analyzed_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
