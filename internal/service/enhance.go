package service

import (
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"game-builder/internal/domain"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrSlotMissing is returned when index.html lacks an element the
// enhancement pass anchors on.
var ErrSlotMissing = errors.New("enhancement slot missing")

//go:embed snippets/*
var snippetFS embed.FS

func snippet(name string) string {
	b, err := snippetFS.ReadFile("snippets/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

var (
	usernameSectionHTML    = snippet("username_section.html")
	usernameScriptJS       = snippet("username_script.js")
	leaderboardSectionHTML = snippet("leaderboard_section.html")
	leaderboardScriptJS    = snippet("leaderboard_script.js")
	levelUpJS              = snippet("levelup.js")
	levelUpCSS             = snippet("levelup.css")
	usernameCSS            = snippet("username.css")
	leaderboardCSS         = snippet("leaderboard.css")
)

// Element ids the pass inserts and looks for.
const (
	idUsernameInput     = "usernameInput"
	idUsernameScript    = "usernameScript"
	idLeaderboard       = "leaderboard"
	idLeaderboardScript = "leaderboardScript"
)

// Names of the blocks reported by Enhance.
const (
	BlockUsernameSection    = "username-section"
	BlockUsernameScript     = "username-script"
	BlockLeaderboardSection = "leaderboard-section"
	BlockLeaderboardScript  = "leaderboard-script"
	BlockLevelUpScript      = "level-up-script"
	BlockLevelUpStyles      = "level-up-styles"
	BlockUsernameStyles     = "username-styles"
	BlockLeaderboardStyles  = "leaderboard-styles"
)

// html.Parse always synthesizes a body, so its presence is checked on the source.
var bodyTagRegex = regexp.MustCompile(`(?i)<body[\s>]`)

// Enhance guarantees username capture, the level-up popup and the
// leaderboard in a complete bundle. Each block is inserted only when the
// bundle does not already carry it, so applying Enhance twice changes
// nothing. The input is not modified. When index.html has no body, no
// style.css link or no game.js script, Enhance fails with ErrSlotMissing.
func Enhance(bundle domain.ArtifactBundle) (domain.ArtifactBundle, []string, error) {
	out := bundle.Clone()
	js := out[domain.FileGameJS]

	page, inserted, err := enhanceHTML(out[domain.FileIndexHTML], js)
	if err != nil {
		return nil, nil, err
	}
	out[domain.FileIndexHTML] = page

	if !definesShowLevelUp(js) {
		out[domain.FileGameJS] = levelUpJS + "\n" + js
		inserted = append(inserted, BlockLevelUpScript)
	}

	css := out[domain.FileStyleCSS]
	for _, block := range []struct {
		name, marker, rules string
	}{
		{BlockLevelUpStyles, ".level-up-popup", levelUpCSS},
		{BlockUsernameStyles, ".username-section", usernameCSS},
		{BlockLeaderboardStyles, ".leaderboard-section", leaderboardCSS},
	} {
		if !strings.Contains(css, block.marker) {
			css = strings.TrimRight(css, "\n") + "\n\n" + block.rules
			inserted = append(inserted, block.name)
		}
	}
	out[domain.FileStyleCSS] = css

	return out, inserted, nil
}

func definesShowLevelUp(js string) bool {
	return strings.Contains(js, "function showLevelUp") || strings.Contains(js, "showLevelUp =")
}

// slots are the elements of index.html the pass reads or anchors on.
type slots struct {
	body              *html.Node
	stylesheet        *html.Node
	script            *html.Node
	usernameInput     *html.Node
	usernameScript    *html.Node
	leaderboard       *html.Node
	leaderboardScript *html.Node
}

func findSlots(doc *html.Node) slots {
	var s slots
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Body:
				if s.body == nil {
					s.body = n
				}
			case atom.Link:
				if strings.EqualFold(attr(n, "rel"), "stylesheet") && strings.Contains(attr(n, "href"), domain.FileStyleCSS) {
					s.stylesheet = n
				}
			case atom.Script:
				if strings.Contains(attr(n, "src"), domain.FileGameJS) {
					s.script = n
				}
			}
			switch attr(n, "id") {
			case idUsernameInput:
				s.usernameInput = n
			case idUsernameScript:
				s.usernameScript = n
			case idLeaderboard:
				s.leaderboard = n
			case idLeaderboardScript:
				s.leaderboardScript = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return s
}

func (s slots) missing() []string {
	var names []string
	if s.body == nil {
		names = append(names, "body")
	}
	if s.stylesheet == nil {
		names = append(names, "style.css link")
	}
	if s.script == nil {
		names = append(names, "game.js script")
	}
	return names
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func enhanceHTML(page, js string) (string, []string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", nil, fmt.Errorf("%w: parse %s: %v", ErrSlotMissing, domain.FileIndexHTML, err)
	}
	s := findSlots(doc)
	if !bodyTagRegex.MatchString(page) {
		s.body = nil
	}
	if missing := s.missing(); len(missing) > 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrSlotMissing, strings.Join(missing, ", "))
	}

	var inserted []string
	persistsUsername := strings.Contains(page, "gameUsername") || strings.Contains(js, "gameUsername")

	if s.usernameInput == nil {
		if err := prependFragment(s.body, usernameSectionHTML); err != nil {
			return "", nil, err
		}
		inserted = append(inserted, BlockUsernameSection)
	}
	if s.usernameScript == nil && (s.usernameInput == nil || !persistsUsername) {
		if err := appendFragment(s.body, nil, inlineScript(idUsernameScript, usernameScriptJS)); err != nil {
			return "", nil, err
		}
		inserted = append(inserted, BlockUsernameScript)
	}
	if s.leaderboard == nil {
		before := s.script
		if before.Parent != s.body {
			before = nil
		}
		if err := appendFragment(s.body, before, leaderboardSectionHTML); err != nil {
			return "", nil, err
		}
		inserted = append(inserted, BlockLeaderboardSection)
		if s.leaderboardScript == nil {
			if err := appendFragment(s.body, nil, inlineScript(idLeaderboardScript, leaderboardScriptJS)); err != nil {
				return "", nil, err
			}
			inserted = append(inserted, BlockLeaderboardScript)
		}
	}

	if len(inserted) == 0 {
		return page, nil, nil
	}
	var sb strings.Builder
	if err := html.Render(&sb, doc); err != nil {
		return "", nil, fmt.Errorf("render %s: %w", domain.FileIndexHTML, err)
	}
	return sb.String(), inserted, nil
}

func inlineScript(id, body string) string {
	return fmt.Sprintf("<script id=%q>\n%s</script>", id, body)
}

func parseFragment(parent *html.Node, markup string) ([]*html.Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return nil, fmt.Errorf("parse snippet: %w", err)
	}
	return nodes, nil
}

// prependFragment inserts markup as the first children of parent.
func prependFragment(parent *html.Node, markup string) error {
	nodes, err := parseFragment(parent, markup)
	if err != nil {
		return err
	}
	first := parent.FirstChild
	for _, n := range nodes {
		parent.InsertBefore(n, first)
	}
	return nil
}

// appendFragment inserts markup before the given child, or at the end of
// parent when before is nil.
func appendFragment(parent, before *html.Node, markup string) error {
	nodes, err := parseFragment(parent, markup)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		parent.InsertBefore(n, before)
	}
	return nil
}
