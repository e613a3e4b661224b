package service

import (
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"game-builder/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Fallback game tuning. A level is reached every ItemsPerLevel collected
// items, independent of the points awarded per item.
const (
	fallbackItemsPerLevel = 3
	fallbackPointsPerItem = 10
	fallbackMaxLevel      = 10
	fallbackTimePerLevel  = 30
)

var (
	templateFuncs = map[string]interface{}{"comment": commentSafe}

	htmlTemplates = htmltemplate.Must(htmltemplate.New("fallback").
			Funcs(htmltemplate.FuncMap(templateFuncs)).
			ParseFS(templateFS, "templates/index.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.New("fallback").
			Funcs(texttemplate.FuncMap(templateFuncs)).
			ParseFS(templateFS, "templates/style.css.tmpl", "templates/game.js.tmpl"))
)

// commentSafe makes a value safe inside a CSS block or JS line comment.
func commentSafe(s string) string {
	s = strings.ReplaceAll(s, "*/", "* /")
	return strings.Join(strings.Fields(s), " ")
}

type fallbackView struct {
	Title         string
	Character     string
	Collectibles  string
	Obstacles     string
	Controls      string
	WinCondition  string
	LoseCondition string
	VisualStyle   string
	ItemsPerLevel int
	PointsPerItem int
	MaxLevel      int
	TimePerLevel  int
}

func newFallbackView(req domain.RequirementSpec, plan domain.GamePlan) fallbackView {
	title := strings.TrimSpace(plan.GameTitle)
	if title == "" {
		title = strings.Join([]string{req.Character, req.CharacterAction, req.Collectibles}, " ")
	}
	return fallbackView{
		Title:         title,
		Character:     req.Character,
		Collectibles:  req.Collectibles,
		Obstacles:     req.Obstacles,
		Controls:      req.Controls,
		WinCondition:  req.WinCondition,
		LoseCondition: req.LoseCondition,
		VisualStyle:   req.VisualStyle,
		ItemsPerLevel: fallbackItemsPerLevel,
		PointsPerItem: fallbackPointsPerItem,
		MaxLevel:      fallbackMaxLevel,
		TimePerLevel:  fallbackTimePerLevel,
	}
}

// FallbackBundle renders the offline game for req and plan. The result
// satisfies domain.FeatureChecklist for any input.
func FallbackBundle(req domain.RequirementSpec, plan domain.GamePlan) (domain.ArtifactBundle, error) {
	view := newFallbackView(req, plan)
	bundle := make(domain.ArtifactBundle, len(domain.BundleFiles))

	var sb strings.Builder
	if err := htmlTemplates.ExecuteTemplate(&sb, "index.html.tmpl", view); err != nil {
		return nil, err
	}
	bundle[domain.FileIndexHTML] = sb.String()

	for name, tmpl := range map[string]string{
		domain.FileStyleCSS: "style.css.tmpl",
		domain.FileGameJS:   "game.js.tmpl",
	} {
		sb.Reset()
		if err := textTemplates.ExecuteTemplate(&sb, tmpl, view); err != nil {
			return nil, err
		}
		bundle[name] = sb.String()
	}
	return bundle, nil
}
