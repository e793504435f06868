// internal/github/webhook.go
package github

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"

	custom_errors "github-ai-attribution/internal/errors"
	"github-ai-attribution/internal/model"
)

const (
	EventPush = "push"
	EventPing = "ping"
)

// PushEvent is the typed subset of a push delivery the pipeline reads.
type PushEvent struct {
	InstallationID int64
	RepoID         int64
	FullName       string
	DefaultBranch  string
	Ref            string
	PushedAt       time.Time
	Commits        []model.Commit
}

// EventType returns the X-GitHub-Event header.
func EventType(r *http.Request) string {
	return github.WebHookType(r)
}

// DeliveryID returns the X-GitHub-Delivery header.
func DeliveryID(r *http.Request) string {
	return github.DeliveryID(r)
}

// ParsePushEvent decodes a push payload. Payloads missing the installation or
// repository identity are rejected; malformed commits are dropped.
func ParsePushEvent(body []byte) (*PushEvent, error) {
	const op = "github: parse push event"
	raw, err := github.ParseWebHook(EventPush, body)
	if err != nil {
		return nil, custom_errors.E(custom_errors.Invalid, op, err)
	}
	ev, ok := raw.(*github.PushEvent)
	if !ok {
		return nil, custom_errors.Ef(custom_errors.Invalid, op, "%w: got %T", ErrUnexpectedResponse, raw)
	}
	if ev.GetInstallation().GetID() == 0 || ev.GetRepo().GetID() == 0 || ev.GetRepo().GetFullName() == "" {
		return nil, custom_errors.Ef(custom_errors.Invalid, op, "%w: missing installation or repository", ErrUnexpectedResponse)
	}

	out := &PushEvent{
		InstallationID: ev.GetInstallation().GetID(),
		RepoID:         ev.GetRepo().GetID(),
		FullName:       ev.GetRepo().GetFullName(),
		DefaultBranch:  ev.GetRepo().GetDefaultBranch(),
		Ref:            ev.GetRef(),
		PushedAt:       ev.GetRepo().GetPushedAt().Time,
	}
	for _, c := range ev.Commits {
		commit, err := toPushCommit(c)
		if err != nil {
			continue
		}
		out.Commits = append(out.Commits, commit)
	}
	return out, nil
}

func toPushCommit(c *github.HeadCommit) (model.Commit, error) {
	if c == nil || c.GetID() == "" {
		return model.Commit{}, fmt.Errorf("%w: commit without id", ErrUnexpectedResponse)
	}
	return model.Commit{
		SHA:         c.GetID(),
		AuthorName:  c.GetAuthor().GetName(),
		AuthorEmail: c.GetAuthor().GetEmail(),
		Message:     c.GetMessage(),
		CommittedAt: c.GetTimestamp().Time,
	}, nil
}
