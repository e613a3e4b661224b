package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// MaxGameHistory is how many recent results a profile keeps.
	MaxGameHistory = 10
	// DefaultLeaderboardSize is the number of entries shown when none is requested.
	DefaultLeaderboardSize = 10
)

// UserProfile is the persisted per-player record.
type UserProfile struct {
	Username     string       `json:"username"`     // normalized key
	DisplayName  string       `json:"display_name"` // title-cased for display
	GamesPlayed  int          `json:"games_played"`
	TotalScore   int          `json:"total_score"`
	HighScore    int          `json:"high_score"`
	GamesHistory []GameResult `json:"games_history"` // oldest first, capped at MaxGameHistory
	CreatedAt    time.Time    `json:"created_at"`
	LastPlayed   *time.Time   `json:"last_played"` // nil until the first result
}

// GameResult is one recorded play.
type GameResult struct {
	Game  string    `json:"game"`
	Score int       `json:"score"`
	Level int       `json:"level"`
	Won   bool      `json:"won"`
	Date  time.Time `json:"date"`
}

// LeaderboardEntry is a derived ranking row.
type LeaderboardEntry struct {
	Username    string `json:"username"` // display name
	HighScore   int    `json:"high_score"`
	GamesPlayed int    `json:"games_played"`
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NewUserProfile returns a zeroed profile for an already-normalized username.
func NewUserProfile(username, displayName string, now time.Time) *UserProfile {
	return &UserProfile{
		Username:     username,
		DisplayName:  displayName,
		GamesHistory: []GameResult{},
		CreatedAt:    now,
	}
}

// Apply records a result on the profile.
func (p *UserProfile) Apply(result GameResult) {
	p.GamesPlayed++
	p.TotalScore += result.Score
	if result.Score > p.HighScore {
		p.HighScore = result.Score
	}
	played := result.Date
	p.LastPlayed = &played
	p.GamesHistory = append(p.GamesHistory, result)
	if len(p.GamesHistory) > MaxGameHistory {
		p.GamesHistory = append([]GameResult(nil), p.GamesHistory[len(p.GamesHistory)-MaxGameHistory:]...)
	}
}

// RankLeaderboard orders profiles by high score, descending. Profiles must be
// passed in insertion order; ties keep that order. n <= 0 means
// DefaultLeaderboardSize.
func RankLeaderboard(profiles []*UserProfile, n int) []LeaderboardEntry {
	if n <= 0 {
		n = DefaultLeaderboardSize
	}
	entries := make([]LeaderboardEntry, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Username:    p.DisplayName,
			HighScore:   p.HighScore,
			GamesPlayed: p.GamesPlayed,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].HighScore > entries[j].HighScore
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Stored timestamps are written as RFC 3339. Older profile files carry
// zone-less ISO 8601 values, which are read as local time.
var legacyTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339 and the zone-less layouts of older files.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// storedTime decodes a JSON string or null with ParseTimestamp.
type storedTime struct {
	time.Time
	set bool
}

func (t *storedTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time, t.set = parsed, true
	return nil
}

// UnmarshalJSON reads profiles written by any version of the store.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	type plain UserProfile
	aux := struct {
		*plain
		CreatedAt  storedTime `json:"created_at"`
		LastPlayed storedTime `json:"last_played"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.CreatedAt = aux.CreatedAt.Time
	p.LastPlayed = nil
	if aux.LastPlayed.set {
		played := aux.LastPlayed.Time
		p.LastPlayed = &played
	}
	if p.GamesHistory == nil {
		p.GamesHistory = []GameResult{}
	}
	return nil
}

// UnmarshalJSON reads results written by any version of the store.
func (r *GameResult) UnmarshalJSON(data []byte) error {
	type plain GameResult
	aux := struct {
		*plain
		Date storedTime `json:"date"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Date = aux.Date.Time
	return nil
}
