// File: internal/infra/worker/mocks_test.go
package worker

import (
	"context"
	"sync"

	"ai-coding-tasks/internal/domain/ports/adapter"
)

// fakeGateway can fail a configurable number of times before succeeding,
// which is how the retry path gets exercised.
type fakeGateway struct {
	mu        sync.Mutex
	response  *adapter.AIResponse
	failTimes int
	failWith  error
	calls     int
}

func (g *fakeGateway) Execute(ctx context.Context, modelID string, req *adapter.AIRequest) (*adapter.AIResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failTimes {
		return nil, g.failWith
	}
	cp := *g.response
	return &cp, nil
}

func (g *fakeGateway) EstimateTokens(modelID, text string) int {
	return (len(text) + 3) / 4
}

type fakeVCS struct {
	mu       sync.Mutex
	cloneErr error
	prOpened int
	pushed   []string
}

func (v *fakeVCS) Clone(ctx context.Context, dir, remoteURL, branch string) error {
	return v.cloneErr
}

func (v *fakeVCS) CreateBranch(dir, base, branch string) error { return nil }

func (v *fakeVCS) CommitAll(dir, message string) error { return nil }

func (v *fakeVCS) Push(ctx context.Context, dir, branch string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pushed = append(v.pushed, branch)
	return nil
}

func (v *fakeVCS) CreatePullRequest(ctx context.Context, owner, repo, base, head, title, body string) (*adapter.PullRequest, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prOpened++
	return &adapter.PullRequest{Number: 7, URL: "https://github.com/" + owner + "/" + repo + "/pull/7"}, nil
}
