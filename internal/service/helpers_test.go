package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-builder/pkg/ai"
)

// reply answers a gateway call with text, applying the request schema the
// way the real gateway does.
func reply(text string) func(context.Context, ai.Request) *ai.Completion {
	return func(_ context.Context, req ai.Request) *ai.Completion {
		comp := &ai.Completion{
			Choices: []ai.Choice{{Message: ai.Message{Role: ai.RoleAssistant, Content: text}}},
			Raw:     text,
		}
		if req.Schema != nil {
			obj, err := req.Schema.Extract(text)
			if err != nil {
				out := unavailable(err)
				out.Raw = text
				return out
			}
			comp.Structured = obj
		}
		return comp
	}
}

func unavailable(cause error) *ai.Completion {
	return &ai.Completion{
		Choices: []ai.Choice{{Message: ai.Message{Role: ai.RoleAssistant, Content: ai.FailureContent}}},
		Error:   fmt.Errorf("%w: %w", ai.ErrGenerationFailed, cause),
	}
}

var errOffline = errors.New("connection refused")

const sentinelReply = `REQUIREMENTS_CLEAR{
  "character": "penguin",
  "character_action": "slides and catches fish",
  "world_setting": "ice floe",
  "collectibles": "fish",
  "obstacles": "sharks",
  "progression": "faster sharks every level",
  "win_condition": "reach level 10",
  "lose_condition": "eaten by a shark",
  "controls": "arrow keys",
  "visual_style": "pixel art"
}`

const planReply = `Here is the plan:
{"framework": "vanilla", "game_title": "Penguin Dash", "mechanics": ["slide", "avoid sharks"],
 "data_structures": ["player"], "game_loop_steps": ["update", "draw"],
 "key_functions": ["update"], "visual_elements": ["penguin"]}
Good luck!`

const modelIndex = `<!DOCTYPE html>
<html>
<head><title>Penguin Dash</title><link rel="stylesheet" href="style.css"></head>
<body>
<canvas id="gameCanvas"></canvas>
<div class="controls">Arrow keys</div>
<script src="game.js"></script>
</body>
</html>`

func modelBundleReply() string {
	return fmt.Sprintf("```json\n{%q: %q, %q: %q, %q: %q, %q: %q}\n```",
		"index.html", modelIndex,
		"style.css", "body { margin: 0; }",
		"game.js", "let game = {level: 1};\nfunction checkLevelUp() { game.level++; }\nrequestAnimationFrame(function loop() {});",
		"README.md", "ignored",
	)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
