// File: internal/usecase/result_uc_test.go
package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/infra/db/memory"
)

const changeResponse = "I fixed the bug.\n\n" +
	"FILE: pkg/api/handler.go\n" +
	"```\n" +
	"package api\n" +
	"\n" +
	"func Handle() {}\n" +
	"```\n" +
	"\n" +
	"FILE: pkg/api/handler_test.go\n" +
	"```\n" +
	"package api\n" +
	"```\n"

func TestParseFileBlocks(t *testing.T) {
	t.Parallel()

	blocks := ParseFileBlocks(changeResponse)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Path != "pkg/api/handler.go" {
		t.Fatalf("unexpected path %q", blocks[0].Path)
	}
	if blocks[0].Content != "package api\n\nfunc Handle() {}\n" {
		t.Fatalf("unexpected content %q", blocks[0].Content)
	}
}

func TestParseFileBlocks_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	content := "FILE: ../../etc/passwd\n```\nowned\n```\n" +
		"FILE: /etc/passwd\n```\nowned\n```\n" +
		"FILE: ok.txt\n```\nfine\n```\n"
	blocks := ParseFileBlocks(content)
	if len(blocks) != 1 || blocks[0].Path != "ok.txt" {
		t.Fatalf("expected only the safe block, got %+v", blocks)
	}
}

func TestParseFileBlocks_IgnoresUnterminatedFence(t *testing.T) {
	t.Parallel()

	blocks := ParseFileBlocks("FILE: a.go\n```\nnever closed")
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %+v", blocks)
	}
}

func TestParseFileBlocks_PlainTextHasNone(t *testing.T) {
	t.Parallel()

	if blocks := ParseFileBlocks("The bug is in handler.go, line 10."); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %+v", blocks)
	}
}

func newResultFixture(t *testing.T, v *fakeVCS) (*ResultUseCase, *memory.ResultRepo) {
	t.Helper()
	results := memory.NewResultRepo()
	logger := zerolog.Nop()
	return NewResultUseCase(results, v, "codetask", &logger), results
}

func mutationTask() *model.Task {
	return &model.Task{
		ID:           "task-1",
		UserID:       "user-1",
		RepoOwner:    "acme",
		RepoName:     "widgets",
		Prompt:       "fix the handler",
		SourceBranch: "main",
		Type:         model.TaskTypeDebug,
	}
}

func TestResultUseCase_MaterializePRCreated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := &fakeVCS{}
	uc, results := newResultFixture(t, v)
	ws := &model.Workspace{ID: "ws-1", TaskID: "task-1", Path: t.TempDir()}

	res, err := uc.Materialize(ctx, mutationTask(), ws, &adapter.AIResponse{
		Content: changeResponse,
		Usage:   adapter.Usage{TotalTokens: 600},
	})
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if res.Type != model.ResultTypePRCreated {
		t.Fatalf("expected pr_created, got %s", res.Type)
	}
	if res.PRURL == "" || res.FilesChanged != 2 || res.TokensUsed != 600 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if v.prOpened != 1 || len(v.pushed) != 1 {
		t.Fatalf("expected one push and one PR, got %+v", v)
	}
	// files really land in the workspace
	if _, err := os.Stat(filepath.Join(ws.Path, "pkg/api/handler.go")); err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if saved, err := results.FindByTaskID(ctx, nil, "task-1"); err != nil || saved.Type != model.ResultTypePRCreated {
		t.Fatalf("result not persisted: %v", err)
	}
}

func TestResultUseCase_ZeroChangesStoresAnalysis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := &fakeVCS{}
	uc, _ := newResultFixture(t, v)
	ws := &model.Workspace{ID: "ws-1", TaskID: "task-1", Path: t.TempDir()}

	res, err := uc.Materialize(ctx, mutationTask(), ws, &adapter.AIResponse{
		Content: "No change needed; the test was already fixed upstream.",
	})
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if res.Type != model.ResultTypeAnalysis {
		t.Fatalf("expected analysis fallback, got %s", res.Type)
	}
	if v.prOpened != 0 {
		t.Fatal("no PR should be opened without changes")
	}
}

func TestResultUseCase_PRFailureDowngrades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := &fakeVCS{pushErr: errors.New("remote rejected")}
	uc, _ := newResultFixture(t, v)
	ws := &model.Workspace{ID: "ws-1", TaskID: "task-1", Path: t.TempDir()}

	res, err := uc.Materialize(ctx, mutationTask(), ws, &adapter.AIResponse{Content: changeResponse})
	if err != nil {
		t.Fatalf("a failed PR must not fail materialization: %v", err)
	}
	if res.Type != model.ResultTypeAnalysis || res.PRURL != "" {
		t.Fatalf("expected analysis downgrade, got %+v", res)
	}
	if res.Content != changeResponse {
		t.Fatal("raw response must be preserved on downgrade")
	}
}

func TestResultUseCase_NonMutationTypes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cases := []struct {
		taskType model.TaskType
		want     model.ResultType
	}{
		{model.TaskTypeDocumentation, model.ResultTypeDocumentation},
		{model.TaskTypeAsk, model.ResultTypeAnalysis},
		{model.TaskTypeArchitect, model.ResultTypeAnalysis},
		{model.TaskTypePRReview, model.ResultTypeAnalysis},
	}
	for _, tc := range cases {
		v := &fakeVCS{}
		uc, _ := newResultFixture(t, v)
		task := mutationTask()
		task.Type = tc.taskType
		ws := &model.Workspace{ID: "ws-1", TaskID: task.ID, Path: t.TempDir()}

		res, err := uc.Materialize(ctx, task, ws, &adapter.AIResponse{Content: changeResponse})
		if err != nil {
			t.Fatalf("%s: materialize: %v", tc.taskType, err)
		}
		if res.Type != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.taskType, tc.want, res.Type)
		}
		if v.prOpened != 0 {
			t.Fatalf("%s: non-mutation types never open PRs", tc.taskType)
		}
	}
}
