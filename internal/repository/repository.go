package repository

import (
	"context"
	"time"

	"game-builder/internal/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UserStore persists player profiles and derives the leaderboard.
type UserStore interface {
	// GetOrCreate returns the profile for username, creating and persisting a
	// zeroed one if none exists. The username is trimmed and lower-cased.
	GetOrCreate(ctx context.Context, username string) (*domain.UserProfile, error)
	// RecordResult applies a play result to an existing profile and persists it.
	// Returns domain.ErrUserNotFound for unknown users.
	RecordResult(ctx context.Context, username string, result domain.GameResult) (*domain.UserProfile, error)
	// TopLeaderboard returns at most n entries ordered by high score,
	// ties in creation order. n <= 0 means domain.DefaultLeaderboardSize.
	TopLeaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	// Close releases the underlying resources.
	Close() error
}

// BundleWriter persists a generated bundle.
type BundleWriter interface {
	// WriteBundle writes every file of the bundle and returns the written paths.
	WriteBundle(ctx context.Context, bundle domain.ArtifactBundle) ([]string, error)
}

var titleCaser = cases.Title(language.Und)

// displayName title-cases a normalized username, "mary jane" -> "Mary Jane".
func displayName(normalized string) string {
	return titleCaser.String(normalized)
}

// stampResult fills the play date when the caller left it empty.
func stampResult(result domain.GameResult, now time.Time) domain.GameResult {
	if result.Date.IsZero() {
		result.Date = now
	}
	return result
}
