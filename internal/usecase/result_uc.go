// File: internal/usecase/result_uc.go
package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
	"ai-coding-tasks/internal/domain/ports/repository"
	"ai-coding-tasks/internal/infra/adapters/vcs"
)

// ResultUseCase turns a raw model response into the task's materialized
// outcome: a pull request for mutation tasks that produced changes, a
// stored document otherwise. Exactly one result row is written per task.
type ResultUseCase struct {
	results      repository.ResultRepository
	vcs          adapter.VCSClient
	branchPrefix string
	log          *zerolog.Logger
}

func NewResultUseCase(results repository.ResultRepository, vcsClient adapter.VCSClient, branchPrefix string, logger *zerolog.Logger) *ResultUseCase {
	l := logger.With().Str("component", "result_uc").Logger()
	return &ResultUseCase{results: results, vcs: vcsClient, branchPrefix: branchPrefix, log: &l}
}

// FileBlock is one full-file replacement extracted from a model response.
type FileBlock struct {
	Path    string
	Content string
}

// ParseFileBlocks extracts `FILE: <path>` blocks followed by a fenced
// body, the format the mutation system prompts demand. Blocks with
// absolute or parent-escaping paths are dropped.
func ParseFileBlocks(content string) []FileBlock {
	var blocks []FileBlock
	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		path, ok := strings.CutPrefix(strings.TrimSpace(lines[i]), "FILE:")
		if !ok {
			continue
		}
		path = strings.TrimSpace(path)
		if path == "" || !filepath.IsLocal(path) {
			continue
		}
		// find the opening fence (tolerate a blank line between)
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
			j++
		}
		if j >= len(lines) || !strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
			continue
		}
		var body []string
		k := j + 1
		for ; k < len(lines); k++ {
			if strings.TrimSpace(lines[k]) == "```" {
				break
			}
			body = append(body, lines[k])
		}
		if k >= len(lines) {
			break // unterminated fence, drop the block
		}
		blocks = append(blocks, FileBlock{Path: path, Content: strings.Join(body, "\n") + "\n"})
		i = k
	}
	return blocks
}

// Materialize writes the task's result. For mutation tasks it applies the
// parsed file blocks to the workspace and opens a pull request; when no
// blocks were produced, or the pull request cannot be opened, the raw
// response is kept as an analysis result instead of failing the task.
func (uc *ResultUseCase) Materialize(ctx context.Context, t *model.Task, ws *model.Workspace, resp *adapter.AIResponse) (*model.Result, error) {
	res := &model.Result{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		Content:    resp.Content,
		TokensUsed: resp.Usage.TotalTokens,
		CreatedAt:  time.Now(),
	}

	switch {
	case !t.Type.Mutates():
		if t.Type == model.TaskTypeDocumentation {
			res.Type = model.ResultTypeDocumentation
		} else {
			res.Type = model.ResultTypeAnalysis
		}

	default:
		blocks := ParseFileBlocks(resp.Content)
		if len(blocks) == 0 {
			uc.log.Info().Str("task_id", t.ID).Msg("mutation task produced no file blocks, storing analysis")
			res.Type = model.ResultTypeAnalysis
			break
		}
		lines, err := uc.applyBlocks(ws.Path, blocks)
		if err != nil {
			return nil, err
		}
		res.FilesChanged = len(blocks)
		res.LinesGenerated = lines
		res.Type = model.ResultTypeCodeChanges

		pr, err := uc.openPullRequest(ctx, t, ws, len(blocks))
		if err != nil {
			// The generated content still has value; keep it as an
			// analysis result rather than failing the task.
			uc.log.Warn().Err(err).Str("task_id", t.ID).Msg("pull request failed, downgrading result")
			res.Type = model.ResultTypeAnalysis
		} else {
			res.Type = model.ResultTypePRCreated
			res.PRURL = pr.URL
		}
	}

	if err := uc.results.Save(ctx, nil, res); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveFailure records the terminal result of a failed task.
func (uc *ResultUseCase) SaveFailure(ctx context.Context, taskID, category string) error {
	return uc.results.Save(ctx, nil, &model.Result{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Type:      model.ResultTypeError,
		Content:   category,
		CreatedAt: time.Now(),
	})
}

func (uc *ResultUseCase) applyBlocks(root string, blocks []FileBlock) (int, error) {
	lines := 0
	for _, b := range blocks {
		dst := filepath.Join(root, b.Path)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return 0, err
		}
		if err := os.WriteFile(dst, []byte(b.Content), 0o644); err != nil {
			return 0, err
		}
		lines += strings.Count(b.Content, "\n")
	}
	return lines, nil
}

func (uc *ResultUseCase) openPullRequest(ctx context.Context, t *model.Task, ws *model.Workspace, filesChanged int) (*adapter.PullRequest, error) {
	branch := vcs.GenerateBranchName(uc.branchPrefix, t.ID, t.Prompt)
	if err := uc.vcs.CreateBranch(ws.Path, t.SourceBranch, branch); err != nil {
		return nil, err
	}
	title := vcs.GeneratePRTitle(t.ID, t.Prompt)
	if err := uc.vcs.CommitAll(ws.Path, title); err != nil {
		return nil, err
	}
	if err := uc.vcs.Push(ctx, ws.Path, branch); err != nil {
		return nil, err
	}
	base := t.TargetBranch
	if base == "" {
		base = t.SourceBranch
	}
	body := vcs.GeneratePRDescription(t.ID, string(t.Type), t.Prompt, filesChanged)
	return uc.vcs.CreatePullRequest(ctx, t.RepoOwner, t.RepoName, base, branch, title, body)
}
