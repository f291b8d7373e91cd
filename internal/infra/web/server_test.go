// File: internal/infra/web/server_test.go
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/infra/db/memory"
	"ai-coding-tasks/internal/infra/queue"
	"ai-coding-tasks/internal/usecase"
)

func newTestServer(t *testing.T) (*Server, *memory.TaskRepo, *memory.ProgressStore, *memory.ResultRepo, *queue.Queue) {
	t.Helper()
	logger := zerolog.Nop()
	store := memory.NewJobStore()
	q := queue.New(store, queue.Config{}, &logger)

	tasks := memory.NewTaskRepo()
	progress := memory.NewProgressStore()
	results := memory.NewResultRepo()
	pricing := memory.NewPricingRepo()
	credits := memory.NewCreditRepo()
	creditUC := usecase.NewCreditUseCase(memory.NewTxManager(), credits, pricing, nil, &logger)
	taskUC := usecase.NewTaskUseCase(tasks, results, creditUC, q, progress, nil, &logger)

	return NewServer(q, taskUC, &logger), tasks, progress, results, q
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	srv, _, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_QueueStats(t *testing.T) {
	t.Parallel()
	srv, _, _, _, q := newTestServer(t)
	ctx := context.Background()
	if _, _, err := q.Enqueue(ctx, "task-1", model.JobKindExecute, model.TaskPriorityHigh, 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats model.QueueStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Waiting != 1 {
		t.Fatalf("expected waiting=1, got %+v", stats)
	}
}

func TestServer_TaskProgress(t *testing.T) {
	t.Parallel()
	srv, tasks, progress, _, _ := newTestServer(t)
	ctx := context.Background()

	task := &model.Task{ID: "task-1", UserID: "u", Status: model.TaskStatusRunning}
	if err := tasks.Save(ctx, nil, task); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = progress.Set(ctx, "task-1", 40)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task-1/progress", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		TaskID   string `json:"task_id"`
		Progress int    `json:"progress"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Progress != 40 {
		t.Fatalf("expected 40%%, got %d", body.Progress)
	}
}

func TestServer_TaskProgressNotFound(t *testing.T) {
	t.Parallel()
	srv, _, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/ghost/progress", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestServer_MetricsExposed(t *testing.T) {
	t.Parallel()
	srv, _, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServer_TaskResult(t *testing.T) {
	t.Parallel()
	srv, _, _, results, _ := newTestServer(t)
	ctx := context.Background()

	if err := results.Save(ctx, nil, &model.Result{
		TaskID:  "task-1",
		Type:    model.ResultTypePRCreated,
		Content: "done",
		PRURL:   "https://github.com/acme/widgets/pull/7",
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task-1/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Type  string `json:"type"`
		PRURL string `json:"pr_url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Type != string(model.ResultTypePRCreated) || body.PRURL == "" {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/ghost/result", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
