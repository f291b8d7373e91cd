// File: internal/infra/adapters/ai/prompts.go
package ai

import (
	"fmt"
	"strings"

	"ai-coding-tasks/internal/domain/model"
	"ai-coding-tasks/internal/domain/ports/adapter"
)

// One fixed system instruction per task type. Mutation types demand the
// full-file block format the result processor parses (see ParseFileBlocks
// in the usecase package).

const fileBlockInstruction = `When you change code, output every modified or created file in full using this exact format:

FILE: relative/path/to/file
` + "```" + `
<entire file content>
` + "```" + `

Do not output partial files or diffs. If no code change is needed, explain why instead.`

var systemPrompts = map[model.TaskType]string{
	model.TaskTypeDebug: "You are an expert software engineer. Diagnose the bug described by the user " +
		"against the repository context and fix it.\n\n" + fileBlockInstruction,
	model.TaskTypeAsync: "You are an expert software engineer. Implement the change requested by the user " +
		"against the repository context.\n\n" + fileBlockInstruction,
	model.TaskTypeAsk: "You are an expert software engineer. Answer the user's question about the " +
		"repository precisely and cite the relevant files.",
	model.TaskTypeDocumentation: "You are a technical writer. Produce clear markdown documentation for the " +
		"repository aspects the user asks about.",
	model.TaskTypeArchitect: "You are a software architect. Analyze the repository structure and produce a " +
		"design assessment answering the user's request.",
	model.TaskTypePRReview: "You are a senior code reviewer. Review the described change for correctness, " +
		"style and risk, and list concrete findings.",
}

func systemPrompt(t model.TaskType) string {
	if p, ok := systemPrompts[t]; ok {
		return p
	}
	return systemPrompts[model.TaskTypeAsk]
}

// BuildMessages serializes the request into the provider chat contract:
// the task-type system instruction plus one user turn carrying the prompt
// and the repository context.
func BuildMessages(req *adapter.AIRequest) []adapter.Message {
	var sb strings.Builder
	sb.WriteString(req.Prompt)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Repository: %s/%s (branch %s)\n", req.RepoOwner, req.RepoName, req.Branch)

	if len(req.DirListing) > 0 {
		sb.WriteString("\nDirectory structure:\n")
		for _, p := range req.DirListing {
			sb.WriteString("  ")
			sb.WriteString(p)
			sb.WriteString("\n")
		}
	}
	for _, f := range req.Files {
		fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", f.Path, f.Content)
	}

	return []adapter.Message{
		{Role: "system", Content: systemPrompt(req.Type)},
		{Role: "user", Content: sb.String()},
	}
}
