// File: internal/infra/adapters/vcs/github.go
package vcs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"ai-coding-tasks/internal/domain/ports/adapter"
)

var _ adapter.VCSClient = (*GitHubClient)(nil)

// GitHubClient performs local git operations through go-git and PR
// creation through the GitHub API. Clone URLs it receives may embed a
// credential; they are never logged.
type GitHubClient struct {
	api      *github.Client
	botName  string
	botEmail string
	log      *zerolog.Logger
}

func NewGitHubClient(accessToken, botName, botEmail string, logger *zerolog.Logger) *GitHubClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	tc := oauth2.NewClient(context.Background(), ts)
	l := logger.With().Str("component", "vcs").Logger()
	return &GitHubClient{
		api:      github.NewClient(tc),
		botName:  botName,
		botEmail: botEmail,
		log:      &l,
	}
}

func (c *GitHubClient) Clone(ctx context.Context, dir, remoteURL, branch string) error {
	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           remoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		return err
	}
	c.log.Info().Str("dir", dir).Str("branch", branch).Msg("cloned repository")
	return nil
}

func (c *GitHubClient) CreateBranch(dir, base, branch string) error {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(base),
	}); err != nil {
		return fmt.Errorf("checkout base branch: %w", err)
	}
	if err := w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}); err != nil {
		return fmt.Errorf("create branch: %w", err)
	}
	c.log.Info().Str("branch", branch).Msg("created branch")
	return nil
}

func (c *GitHubClient) CommitAll(dir, message string) error {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}
	if _, err := w.Add("."); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	if _, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: c.botName, Email: c.botEmail, When: time.Now()},
	}); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (c *GitHubClient) Push(ctx context.Context, dir, branch string) error {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	remote, err := r.Remote("origin")
	if err != nil {
		return fmt.Errorf("get remote: %w", err)
	}
	err = remote.PushContext(ctx, &git.PushOptions{
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch)),
		},
	})
	if err != nil {
		return fmt.Errorf("push branch: %w", err)
	}
	c.log.Info().Str("branch", branch).Msg("pushed branch")
	return nil
}

func (c *GitHubClient) CreatePullRequest(ctx context.Context, owner, repo, base, head, title, body string) (*adapter.PullRequest, error) {
	pr, _, err := c.api.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request: %w", err)
	}
	out := &adapter.PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Title:  pr.GetTitle(),
	}
	c.log.Info().Str("owner", owner).Str("repo", repo).
		Int("pr_number", out.Number).Str("pr_url", out.URL).Msg("created pull request")
	return out, nil
}
