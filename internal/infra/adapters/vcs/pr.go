package vcs

import (
	"fmt"
	"strings"
)

// GenerateBranchName derives the head branch for a task's changes.
func GenerateBranchName(prefix, taskID, prompt string) string {
	short := taskID
	if len(short) > 8 {
		short = short[:8]
	}
	return prefix + "/" + short + "-" + sanitizeBranchName(truncate(prompt, 30))
}

// GeneratePRTitle derives the pull request title from the task prompt.
func GeneratePRTitle(taskID, prompt string) string {
	short := taskID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("[task %s] %s", short, truncate(prompt, 60))
}

// GeneratePRDescription builds the pull request body.
func GeneratePRDescription(taskID, taskType, prompt string, filesChanged int) string {
	var sb strings.Builder
	sb.WriteString("## Automated change for task " + taskID + "\n\n")
	sb.WriteString("**Type:** " + taskType + "\n")
	sb.WriteString("**Files changed:** " + fmt.Sprintf("%d", filesChanged) + "\n\n")
	sb.WriteString("### Request\n\n")
	sb.WriteString(prompt + "\n")
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func sanitizeBranchName(s string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		} else if r == ' ' {
			result.WriteRune('-')
		}
	}
	return strings.Trim(result.String(), "-")
}
