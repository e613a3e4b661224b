package service

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"game-builder/internal/domain"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Prompt template names.
const (
	promptClarifierSystem = "clarifier_system.md"
	promptClarifierNext   = "clarifier_next.md"
	promptExtraction      = "extraction.md"
	promptPlannerSystem   = "planner_system.md"
	promptPlannerUser     = "planner_user.md"
	promptExecutorSystem  = "executor_system.md"
	promptExecutorUser    = "executor_user.md"
)

var prompts = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(promptFS, "prompts/*.md"))

// promptData is the value every prompt template is rendered with.
type promptData struct {
	Marker       string
	Transcript   string
	Requirements string
	Plan         string
	Spec         domain.RequirementSpec
}

func renderPrompt(name string, data promptData) (string, error) {
	var sb strings.Builder
	if err := prompts.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// mustRenderPrompt is for prompts whose data cannot fail to render.
func mustRenderPrompt(name string, data promptData) string {
	text, err := renderPrompt(name, data)
	if err != nil {
		panic(err)
	}
	return text
}
