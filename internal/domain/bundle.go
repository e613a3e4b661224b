package domain

import "strings"

// Bundle file names.
const (
	FileIndexHTML = "index.html"
	FileStyleCSS  = "style.css"
	FileGameJS    = "game.js"
)

// BundleFiles lists the files a complete bundle contains, in write order.
var BundleFiles = []string{FileIndexHTML, FileStyleCSS, FileGameJS}

// ArtifactBundle maps file names to file contents.
type ArtifactBundle map[string]string

// BundleFromMap keeps only the three bundle files from a decoded object.
// Non-string values are ignored.
func BundleFromMap(raw map[string]interface{}) ArtifactBundle {
	bundle := make(ArtifactBundle, len(BundleFiles))
	for _, name := range BundleFiles {
		if s, ok := raw[name].(string); ok {
			bundle[name] = s
		}
	}
	return bundle
}

// Complete reports whether all three files are present and non-empty.
func (b ArtifactBundle) Complete() bool {
	for _, name := range BundleFiles {
		if strings.TrimSpace(b[name]) == "" {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy.
func (b ArtifactBundle) Clone() ArtifactBundle {
	out := make(ArtifactBundle, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Feature is one item of the mandatory playable-game checklist together
// with the file and marker that evidences it.
type Feature struct {
	Name   string
	File   string
	Marker string
}

// FeatureChecklist is the set of markers every shipped bundle must carry.
var FeatureChecklist = []Feature{
	{Name: "canvas", File: FileIndexHTML, Marker: "<canvas"},
	{Name: "stylesheet link", File: FileIndexHTML, Marker: FileStyleCSS},
	{Name: "script reference", File: FileIndexHTML, Marker: FileGameJS},
	{Name: "username field", File: FileIndexHTML, Marker: "usernameInput"},
	{Name: "leaderboard section", File: FileIndexHTML, Marker: "leaderboard"},
	{Name: "save score control", File: FileIndexHTML, Marker: "saveScoreBtn"},
	{Name: "on-screen instructions", File: FileIndexHTML, Marker: "controls"},
	{Name: "animation loop", File: FileGameJS, Marker: "requestAnimationFrame"},
	{Name: "username persistence", File: FileGameJS, Marker: "localStorage"},
	{Name: "obstacles", File: FileGameJS, Marker: "obstacles"},
	{Name: "collision game over", File: FileGameJS, Marker: "gameOver"},
	{Name: "level-up popup", File: FileGameJS, Marker: "showLevelUp"},
	{Name: "win condition", File: FileGameJS, Marker: "gameWon"},
	{Name: "popup styles", File: FileStyleCSS, Marker: ".level-up-popup"},
}

// MissingFeatures returns the checklist items the bundle does not evidence.
func (b ArtifactBundle) MissingFeatures() []string {
	var missing []string
	for _, f := range FeatureChecklist {
		if !strings.Contains(b[f.File], f.Marker) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
