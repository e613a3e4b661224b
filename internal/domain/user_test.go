package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
	assert.Equal(t, "alice", NormalizeUsername("ALICE"))
	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestUserProfileApply(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewUserProfile("alice", "Alice", now)
	require.Nil(t, p.LastPlayed)

	for i, score := range []int{10, 30, 20} {
		p.Apply(GameResult{Game: "Cat Run", Score: score, Level: 1, Date: now.Add(time.Duration(i) * time.Minute)})
	}

	assert.Equal(t, 3, p.GamesPlayed)
	assert.Equal(t, 60, p.TotalScore)
	assert.Equal(t, 30, p.HighScore)
	require.NotNil(t, p.LastPlayed)
	assert.Equal(t, now.Add(2*time.Minute), *p.LastPlayed)
	assert.Len(t, p.GamesHistory, 3)
}

func TestUserProfileApply_HistoryCap(t *testing.T) {
	p := NewUserProfile("bob", "Bob", time.Now())
	for i := 1; i <= 12; i++ {
		p.Apply(GameResult{Game: fmt.Sprintf("game-%d", i), Score: i})
	}

	require.Len(t, p.GamesHistory, MaxGameHistory)
	assert.Equal(t, "game-3", p.GamesHistory[0].Game)
	assert.Equal(t, "game-12", p.GamesHistory[MaxGameHistory-1].Game)
	assert.Equal(t, 12, p.GamesPlayed)
	assert.Equal(t, 78, p.TotalScore)
}

func TestRankLeaderboard(t *testing.T) {
	mk := func(name string, high int) *UserProfile {
		p := NewUserProfile(NormalizeUsername(name), name, time.Now())
		p.HighScore = high
		p.GamesPlayed = 1
		return p
	}

	t.Run("descending with stable ties", func(t *testing.T) {
		profiles := []*UserProfile{mk("Ann", 10), mk("Ben", 30), mk("Cat", 10), mk("Dan", 30)}
		entries := RankLeaderboard(profiles, 10)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Username)
		}
		assert.Equal(t, []string{"Ben", "Dan", "Ann", "Cat"}, names)
	})

	t.Run("truncates to n", func(t *testing.T) {
		var profiles []*UserProfile
		for i := 0; i < 15; i++ {
			profiles = append(profiles, mk(fmt.Sprintf("P%d", i), i))
		}
		assert.Len(t, RankLeaderboard(profiles, 0), DefaultLeaderboardSize)
		top3 := RankLeaderboard(profiles, 3)
		require.Len(t, top3, 3)
		assert.Equal(t, 14, top3[0].HighScore)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, RankLeaderboard(nil, 10))
	})
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-05-01T10:00:00.5+02:00", time.Date(2024, 5, 1, 8, 0, 0, 500000000, time.UTC)},
		{"2024-05-01T10:00:00.123456", time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.Local)},
		{"2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)},
		{"2024-05-01 10:00:00.25", time.Date(2024, 5, 1, 10, 0, 0, 250000000, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s", got)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestUserProfileRoundTripKeepsNullLastPlayed(t *testing.T) {
	p := NewUserProfile("alice", "Alice", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded UserProfile
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.LastPlayed)
	assert.True(t, decoded.CreatedAt.Equal(p.CreatedAt))
	assert.Equal(t, []GameResult{}, decoded.GamesHistory)
}
