package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GamePlan is the technical blueprint produced by the planning phase.
// Only GameTitle is required of a model plan; the list fields may be empty.
type GamePlan struct {
	Framework      string   `json:"framework"`
	GameTitle      string   `json:"game_title"`
	Mechanics      []string `json:"mechanics"`
	DataStructures []string `json:"data_structures"`
	GameLoopSteps  []string `json:"game_loop_steps"`
	KeyFunctions   []string `json:"key_functions"`
	VisualElements []string `json:"visual_elements"`
}

// DefaultPlan synthesizes a plan from the requirement fields alone.
func DefaultPlan(req RequirementSpec) GamePlan {
	return GamePlan{
		Framework: "vanilla",
		GameTitle: fmt.Sprintf("%s %s", req.Character, req.CharacterAction),
		Mechanics: []string{
			req.CharacterAction,
			fmt.Sprintf("avoid %s", req.Obstacles),
		},
		DataStructures: []string{"player position", "score", "collectibles array", "obstacles array"},
		GameLoopSteps: []string{
			"handle input",
			"update positions",
			"check collisions with collectibles",
			"check collisions with obstacles",
			"draw",
		},
		KeyFunctions:   []string{"init", "update", "draw", "checkCollectibleCollisions", "checkObstacleCollisions"},
		VisualElements: []string{"character", "collectibles", "obstacles", "score display", "level display"},
	}
}

// PlanFromMap converts a decoded model object into a GamePlan. Framework may
// arrive as a string or an object; list fields accept either a list or a
// single string.
func PlanFromMap(raw map[string]interface{}) GamePlan {
	return GamePlan{
		Framework:      strings.TrimSpace(FlattenValue(raw["framework"])),
		GameTitle:      strings.TrimSpace(FlattenValue(raw["game_title"])),
		Mechanics:      toStringList(raw["mechanics"]),
		DataStructures: toStringList(raw["data_structures"]),
		GameLoopSteps:  toStringList(raw["game_loop_steps"]),
		KeyFunctions:   toStringList(raw["key_functions"]),
		VisualElements: toStringList(raw["visual_elements"]),
	}
}

func toStringList(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(FlattenValue(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(FlattenValue(v)); s != "" {
			return []string{s}
		}
		return nil
	}
}

// PrettyJSON renders the plan as indented JSON for prompts.
func (p GamePlan) PrettyJSON() string {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
