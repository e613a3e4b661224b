package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Canonical requirement keys, in the order they are presented to the model.
const (
	KeyCharacter       = "character"
	KeyCharacterAction = "character_action"
	KeyWorldSetting    = "world_setting"
	KeyCollectibles    = "collectibles"
	KeyObstacles       = "obstacles"
	KeyProgression     = "progression"
	KeyWinCondition    = "win_condition"
	KeyLoseCondition   = "lose_condition"
	KeyControls        = "controls"
	KeyVisualStyle     = "visual_style"
)

// RequirementKeys lists every key a RequirementSpec carries.
var RequirementKeys = []string{
	KeyCharacter,
	KeyCharacterAction,
	KeyWorldSetting,
	KeyCollectibles,
	KeyObstacles,
	KeyProgression,
	KeyWinCondition,
	KeyLoseCondition,
	KeyControls,
	KeyVisualStyle,
}

// RequirementSpec is the finalized design brief produced by clarification.
// Build it with NormalizeRequirements or DefaultRequirements so that every
// field is non-empty.
type RequirementSpec struct {
	Character       string `json:"character"`
	CharacterAction string `json:"character_action"`
	WorldSetting    string `json:"world_setting"`
	Collectibles    string `json:"collectibles"`
	Obstacles       string `json:"obstacles"`
	Progression     string `json:"progression"`
	WinCondition    string `json:"win_condition"`
	LoseCondition   string `json:"lose_condition"`
	Controls        string `json:"controls"`
	VisualStyle     string `json:"visual_style"`
}

// DefaultRequirements returns the generic brief used when clarification
// could not produce one.
func DefaultRequirements() RequirementSpec {
	return RequirementSpec{
		Character:       "player",
		CharacterAction: "moves and collects items while avoiding obstacles",
		WorldSetting:    "simple game world",
		Collectibles:    "items",
		Obstacles:       "enemies",
		Progression:     "increasing difficulty with more obstacles",
		WinCondition:    "reach target score",
		LoseCondition:   "hit by obstacle",
		Controls:        "arrow keys",
		VisualStyle:     "simple and colorful",
	}
}

// Get returns the value stored under a canonical key.
func (r RequirementSpec) Get(key string) string {
	switch key {
	case KeyCharacter:
		return r.Character
	case KeyCharacterAction:
		return r.CharacterAction
	case KeyWorldSetting:
		return r.WorldSetting
	case KeyCollectibles:
		return r.Collectibles
	case KeyObstacles:
		return r.Obstacles
	case KeyProgression:
		return r.Progression
	case KeyWinCondition:
		return r.WinCondition
	case KeyLoseCondition:
		return r.LoseCondition
	case KeyControls:
		return r.Controls
	case KeyVisualStyle:
		return r.VisualStyle
	}
	return ""
}

func (r *RequirementSpec) set(key, value string) {
	switch key {
	case KeyCharacter:
		r.Character = value
	case KeyCharacterAction:
		r.CharacterAction = value
	case KeyWorldSetting:
		r.WorldSetting = value
	case KeyCollectibles:
		r.Collectibles = value
	case KeyObstacles:
		r.Obstacles = value
	case KeyProgression:
		r.Progression = value
	case KeyWinCondition:
		r.WinCondition = value
	case KeyLoseCondition:
		r.LoseCondition = value
	case KeyControls:
		r.Controls = value
	case KeyVisualStyle:
		r.VisualStyle = value
	}
}

// Complete reports whether all ten fields are non-empty.
func (r RequirementSpec) Complete() bool {
	for _, key := range RequirementKeys {
		if strings.TrimSpace(r.Get(key)) == "" {
			return false
		}
	}
	return true
}

// NormalizeRequirements builds a RequirementSpec from a decoded model
// object. Unknown keys are dropped, non-string values are flattened to text
// and missing or blank keys take the generic default. The second return
// value lists the keys that had to be defaulted.
func NormalizeRequirements(raw map[string]interface{}) (RequirementSpec, []string) {
	spec := DefaultRequirements()
	var defaulted []string
	for _, key := range RequirementKeys {
		value, ok := raw[key]
		text := ""
		if ok {
			text = strings.TrimSpace(FlattenValue(value))
		}
		if text == "" {
			defaulted = append(defaulted, key)
			continue
		}
		spec.set(key, text)
	}
	return spec, defaulted
}

// FlattenValue renders a decoded JSON value as plain text. Lists are joined
// with ", ", other composite values are re-encoded as JSON.
func FlattenValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, float64, json.Number:
		return fmt.Sprint(v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(FlattenValue(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// PrettyJSON renders the spec as indented JSON for prompts.
func (r RequirementSpec) PrettyJSON() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
