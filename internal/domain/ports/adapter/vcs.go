package adapter

import "context"

// PullRequest describes a PR created through the VCS collaborator.
type PullRequest struct {
	Number int
	URL    string
	Title  string
}

// VCSClient is the port over version-control operations. The production
// implementation uses go-git plus the GitHub API; tests use a fake.
// remoteURL passed to Clone may embed a credential and must never be
// reproduced in logs or error text by implementations.
type VCSClient interface {
	Clone(ctx context.Context, dir, remoteURL, branch string) error
	CreateBranch(dir, base, branch string) error
	CommitAll(dir, message string) error
	Push(ctx context.Context, dir, branch string) error
	CreatePullRequest(ctx context.Context, owner, repo, base, head, title, body string) (*PullRequest, error)
}
