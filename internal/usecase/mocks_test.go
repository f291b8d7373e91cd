// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
)

// fakeGateway returns a canned response and counts tokens as len/4, the
// same heuristic the real estimator falls back to.
type fakeGateway struct {
	mu       sync.Mutex
	response *adapter.AIResponse
	err      error
	calls    int
}

func (g *fakeGateway) Execute(ctx context.Context, modelID string, req *adapter.AIRequest) (*adapter.AIResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	cp := *g.response
	return &cp, nil
}

func (g *fakeGateway) EstimateTokens(modelID, text string) int {
	return (len(text) + 3) / 4
}

// fakeVCS records calls; individual steps can be made to fail.
type fakeVCS struct {
	mu        sync.Mutex
	cloneErr  error
	branchErr error
	commitErr error
	pushErr   error
	prErr     error
	prURL     string
	branches  []string
	commits   []string
	pushed    []string
	prOpened  int
}

func (v *fakeVCS) Clone(ctx context.Context, dir, remoteURL, branch string) error {
	return v.cloneErr
}

func (v *fakeVCS) CreateBranch(dir, base, branch string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.branchErr != nil {
		return v.branchErr
	}
	v.branches = append(v.branches, branch)
	return nil
}

func (v *fakeVCS) CommitAll(dir, message string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.commitErr != nil {
		return v.commitErr
	}
	v.commits = append(v.commits, message)
	return nil
}

func (v *fakeVCS) Push(ctx context.Context, dir, branch string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pushErr != nil {
		return v.pushErr
	}
	v.pushed = append(v.pushed, branch)
	return nil
}

func (v *fakeVCS) CreatePullRequest(ctx context.Context, owner, repo, base, head, title, body string) (*adapter.PullRequest, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.prErr != nil {
		return nil, v.prErr
	}
	v.prOpened++
	url := v.prURL
	if url == "" {
		url = "https://github.com/" + owner + "/" + repo + "/pull/1"
	}
	return &adapter.PullRequest{Number: 1, URL: url, Title: title}, nil
}

// fakeEnqueuer satisfies Enqueuer without a real queue behind it.
type fakeEnqueuer struct {
	mu        sync.Mutex
	enqueued  []string
	cancelled []string
	cancelOK  bool
	err       error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, taskID string, kind model.JobKind, prio model.TaskPriority, delay time.Duration) (*model.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	f.enqueued = append(f.enqueued, taskID)
	return &model.Job{ID: "job-" + taskID, TaskID: taskID, Kind: kind}, true, nil
}

func (f *fakeEnqueuer) Cancel(ctx context.Context, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, taskID)
	return f.cancelOK, nil
}
