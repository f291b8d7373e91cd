package vcs

import (
	"strings"
	"testing"
)

func TestGenerateBranchName(t *testing.T) {
	t.Parallel()

	name := GenerateBranchName("codetask", "0f8fad5b-d9cb-469f-a165-70867728950e", "Fix the Flaky Widget Test!")
	if !strings.HasPrefix(name, "codetask/0f8fad5b-") {
		t.Fatalf("unexpected prefix: %s", name)
	}
	for _, c := range name {
		if c == ' ' || c == '!' {
			t.Fatalf("branch name carries invalid char: %q", name)
		}
	}
	if name != strings.ToLower(name) {
		t.Fatalf("branch name not lowercased: %s", name)
	}
}

func TestGeneratePRTitleTruncatesPrompt(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("describe the change ", 10)
	title := GeneratePRTitle("0f8fad5b-d9cb-469f", long)
	if !strings.HasPrefix(title, "[task 0f8fad5b]") {
		t.Fatalf("unexpected title: %s", title)
	}
	if len(title) > 80 {
		t.Fatalf("title too long: %d chars", len(title))
	}
}

func TestGeneratePRDescription(t *testing.T) {
	t.Parallel()

	body := GeneratePRDescription("task-1", "debug", "fix the handler", 3)
	for _, want := range []string{"task-1", "debug", "fix the handler", "3"} {
		if !strings.Contains(body, want) {
			t.Fatalf("description missing %q:\n%s", want, body)
		}
	}
}
