package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/ports/adapter"
)

type stubVCS struct {
	cloneErr error
	populate map[string]string // files written into the clone dir
}

func (v *stubVCS) Clone(ctx context.Context, dir, remoteURL, branch string) error {
	if v.cloneErr != nil {
		return v.cloneErr
	}
	for path, content := range v.populate {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (v *stubVCS) CreateBranch(dir, base, branch string) error { return nil }
func (v *stubVCS) CommitAll(dir, message string) error         { return nil }
func (v *stubVCS) Push(ctx context.Context, dir, branch string) error {
	return nil
}
func (v *stubVCS) CreatePullRequest(ctx context.Context, owner, repo, base, head, title, body string) (*adapter.PullRequest, error) {
	return nil, nil
}

func TestManager_CreateAndCleanupIdempotent(t *testing.T) {
	t.Parallel()
	m := NewManager(t.TempDir(), &stubVCS{}, "", time.Minute, 10, 1<<20)

	ws, err := m.Create("task-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := os.Stat(ws.Path); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}

	if err := m.Cleanup(ws.ID); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(ws.Path); !os.IsNotExist(err) {
		t.Fatalf("workspace dir still present: %v", err)
	}
	// removing again must succeed
	if err := m.Cleanup(ws.ID); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
}

func TestManager_CloneErrorNeverLeaksToken(t *testing.T) {
	t.Parallel()
	token := "ghp_supersecret123456"
	v := &stubVCS{cloneErr: errors.New("fatal: repository 'https://x-access-token:" + token + "@github.com/acme/widgets.git' not found")}
	m := NewManager(t.TempDir(), v, token, time.Minute, 10, 1<<20)

	ws, err := m.Create("task-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = m.Clone(context.Background(), ws, "acme", "widgets", "main")
	if err == nil {
		t.Fatal("expected clone error")
	}
	if strings.Contains(err.Error(), token) {
		t.Fatalf("token leaked into error text: %v", err)
	}
	if domain.KindOf(err) != domain.KindWorkspace {
		t.Fatalf("expected workspace kind, got %v", domain.KindOf(err))
	}
}

func TestManager_CollectContextRespectsBudgets(t *testing.T) {
	t.Parallel()
	v := &stubVCS{populate: map[string]string{
		"main.go":             "package main\n",
		"internal/a.go":       "package internal\n",
		"internal/b.go":       "package internal\n",
		"README.md":           "# readme\n",
		"image.png":           "binarybits",
		".git/config":         "[core]\n",
		"node_modules/x/y.js": "junk",
		"vendor/dep/dep.go":   "package dep\n",
	}}
	m := NewManager(t.TempDir(), v, "", time.Minute, 3, 1<<20)

	ws, _ := m.Create("task-1")
	if err := m.Clone(context.Background(), ws, "acme", "widgets", "main"); err != nil {
		t.Fatalf("clone: %v", err)
	}
	files, listing, err := m.CollectContext(ws)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) > 3 {
		t.Fatalf("file budget exceeded: %d", len(files))
	}
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".png") {
			t.Fatalf("binary file included: %s", f.Path)
		}
		if strings.HasPrefix(f.Path, ".git") || strings.HasPrefix(f.Path, "node_modules") || strings.HasPrefix(f.Path, "vendor") {
			t.Fatalf("skipped dir leaked into context: %s", f.Path)
		}
	}
	// the listing covers everything outside skipped dirs, budget or not
	var sawImage bool
	for _, p := range listing {
		if p == "image.png" {
			sawImage = true
		}
		if strings.HasPrefix(p, ".git") {
			t.Fatalf("skipped dir leaked into listing: %s", p)
		}
	}
	if !sawImage {
		t.Fatal("listing should include non-context files")
	}
}

func TestManager_CollectContextByteBudget(t *testing.T) {
	t.Parallel()
	big := strings.Repeat("x", 2048)
	v := &stubVCS{populate: map[string]string{
		"a.go": big,
		"b.go": big,
	}}
	m := NewManager(t.TempDir(), v, "", time.Minute, 10, 2048)

	ws, _ := m.Create("task-1")
	if err := m.Clone(context.Background(), ws, "acme", "widgets", "main"); err != nil {
		t.Fatalf("clone: %v", err)
	}
	files, _, err := m.CollectContext(ws)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("byte budget allows exactly one file here, got %d", len(files))
	}
}
