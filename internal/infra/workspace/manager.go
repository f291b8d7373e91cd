// Package workspace manages the ephemeral per-task directories that
// repository clones and generated changes live in.
package workspace

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/oklog/ulid/v2"

	"ai-coding-tasks/internal/domain"
	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/infra/logging"
)

// Manager creates, populates, and destroys task workspaces under a
// single root directory. Workspaces are strictly ephemeral: they are
// never persisted and must always be cleaned up, even when the task
// that owns them fails.
type Manager struct {
	root         string
	vcs          adapter.VCSClient
	token        string
	cloneTimeout time.Duration

	maxContextFiles int
	maxContextBytes int64
}

func NewManager(root string, vcs adapter.VCSClient, token string, cloneTimeout time.Duration, maxFiles int, maxBytes int64) *Manager {
	return &Manager{
		root:            root,
		vcs:             vcs,
		token:           token,
		cloneTimeout:    cloneTimeout,
		maxContextFiles: maxFiles,
		maxContextBytes: maxBytes,
	}
}

// Create allocates a fresh empty directory for a task.
func (m *Manager) Create(taskID string) (*model.Workspace, error) {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	path := filepath.Join(m.root, id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, domain.E(domain.KindWorkspace, "create workspace dir", err)
	}
	return &model.Workspace{
		ID:        id,
		TaskID:    taskID,
		Path:      path,
		CreatedAt: time.Now(),
	}, nil
}

// Clone checks the task's repository out into the workspace. The access
// token is injected into the clone URL but must never surface in logs
// or returned errors.
func (m *Manager) Clone(ctx context.Context, ws *model.Workspace, owner, repo, branch string) error {
	ctx, cancel := context.WithTimeout(ctx, m.cloneTimeout)
	defer cancel()

	url := fmt.Sprintf("https://github.com/%s/%s.git", owner, repo)
	authURL := url
	if m.token != "" {
		authURL = fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", m.token, owner, repo)
	}

	err := m.vcs.Clone(ctx, ws.Path, authURL, branch)
	if err == nil {
		return nil
	}
	// Strip the credential before the error can escape.
	msg := err.Error()
	if m.token != "" {
		msg = strings.ReplaceAll(msg, m.token, logging.RedactPlaceholder)
	}
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired), errors.Is(err, transport.ErrAuthorizationFailed):
		return domain.E(domain.KindAuth, fmt.Sprintf("clone %s: %s", url, msg), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.E(domain.KindWorkspace, fmt.Sprintf("clone %s timed out", url), nil)
	default:
		return domain.E(domain.KindWorkspace, fmt.Sprintf("clone %s: %s", url, msg), nil)
	}
}

// Cleanup removes the workspace directory. It is idempotent: removing
// an already-removed workspace succeeds.
func (m *Manager) Cleanup(id string) error {
	if id == "" {
		return nil
	}
	path := filepath.Join(m.root, filepath.Base(id))
	if err := os.RemoveAll(path); err != nil {
		return domain.E(domain.KindWorkspace, "remove workspace dir", err)
	}
	return nil
}

// skip directories and files that add noise without adding context.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	".idea":        true,
	".vscode":      true,
}

var contextExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".jsx": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
	".h": true, ".cpp": true, ".sql": true, ".sh": true, ".yaml": true,
	".yml": true, ".toml": true, ".json": true, ".md": true, ".mod": true,
}

// CollectContext walks the cloned tree and gathers a bounded slice of
// source files plus the full directory listing, for inclusion in the
// model prompt. Files are taken in walk order until either the file
// count or the byte budget runs out.
func (m *Manager) CollectContext(ws *model.Workspace) ([]adapter.FileContext, []string, error) {
	var (
		files   []adapter.FileContext
		listing []string
		total   int64
	)
	err := filepath.WalkDir(ws.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(ws.Path, path)
		if rerr != nil {
			return rerr
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		listing = append(listing, rel)
		if len(files) >= m.maxContextFiles || total >= m.maxContextBytes {
			return nil
		}
		if !contextExtensions[filepath.Ext(d.Name())] {
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil || info.Size() > m.maxContextBytes-total {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		files = append(files, adapter.FileContext{Path: rel, Content: string(content)})
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, nil, domain.E(domain.KindWorkspace, "collect workspace context", err)
	}
	return files, listing, nil
}
