package service

import (
	"fmt"
	"strings"
	"time"

	"game-builder/pkg/ai"

	"github.com/google/uuid"
)

// DefaultHistoryWindow is how many history turns accompany each request.
const DefaultHistoryWindow = 6

// Session is the state of one build. It is passed explicitly through every
// stage, so several sessions can run side by side.
type Session struct {
	ID        uuid.UUID
	Idea      string
	StartedAt time.Time
	History   []ai.Turn // append-only, never trimmed
}

// NewSession starts a session seeded with the idea as the first user turn.
func NewSession(idea string) *Session {
	s := &Session{
		ID:        uuid.New(),
		Idea:      idea,
		StartedAt: time.Now(),
	}
	s.Append(ai.RoleUser, "Game idea: "+idea)
	return s
}

// Append records a turn.
func (s *Session) Append(role, content string) {
	s.History = append(s.History, ai.Turn{Role: role, Content: content})
}

// Window returns a copy of the last n turns.
func (s *Session) Window(n int) []ai.Turn {
	if n <= 0 {
		n = DefaultHistoryWindow
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]ai.Turn, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}

// Transcript renders the full history as "role: content" lines.
func (s *Session) Transcript() string {
	lines := make([]string, len(s.History))
	for i, t := range s.History {
		lines[i] = fmt.Sprintf("%s: %s", t.Role, t.Content)
	}
	return strings.Join(lines, "\n")
}

// buildTurns assembles one outbound message list: the optional system
// prompt, the history window, then the stage prompt.
func buildTurns(system string, window []ai.Turn, prompt string) []ai.Turn {
	turns := make([]ai.Turn, 0, len(window)+2)
	if system != "" {
		turns = append(turns, ai.Turn{Role: ai.RoleSystem, Content: system})
	}
	turns = append(turns, window...)
	return append(turns, ai.Turn{Role: ai.RoleUser, Content: prompt})
}
