package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"game-builder/internal/domain"
	"game-builder/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	recordUser  string
	recordGame  string
	recordScore int
	recordLevel int
	recordWon   bool

	leaderboardLimit int
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a play result for a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store repository.UserStore) error {
			if _, err := store.GetOrCreate(ctx, recordUser); err != nil {
				return err
			}
			profile, err := store.RecordResult(ctx, recordUser, domain.GameResult{
				Game:  recordGame,
				Score: recordScore,
				Level: recordLevel,
				Won:   recordWon,
			})
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), profile)
			return nil
		})
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the top players by high score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store repository.UserStore) error {
			entries, err := store.TopLeaderboard(ctx, leaderboardLimit)
			if err != nil {
				return err
			}
			printLeaderboard(cmd.OutOrStdout(), entries)
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile <username>",
	Short: "Show a user profile, creating it if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, store repository.UserStore) error {
			profile, err := store.GetOrCreate(ctx, args[0])
			if err != nil {
				return err
			}
			printProfile(cmd.OutOrStdout(), profile)
			return nil
		})
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordUser, "user", "", "player username")
	recordCmd.Flags().StringVar(&recordGame, "game", "", "game title")
	recordCmd.Flags().IntVar(&recordScore, "score", 0, "final score")
	recordCmd.Flags().IntVar(&recordLevel, "level", 1, "level reached")
	recordCmd.Flags().BoolVar(&recordWon, "won", false, "whether the game was won")
	_ = recordCmd.MarkFlagRequired("user")
	_ = recordCmd.MarkFlagRequired("score")

	leaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", domain.DefaultLeaderboardSize, "number of entries")
}

// withStore opens the configured profile store for the duration of fn.
func withStore(ctx context.Context, fn func(context.Context, repository.UserStore) error) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func openStore(ctx context.Context) (repository.UserStore, error) {
	if cfg.StoreBackend == "redis" {
		store, err := repository.OpenRedisUserStore(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := repository.OpenFileUserStore(cfg.UsersFile, log)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func printProfile(out io.Writer, p *domain.UserProfile) {
	fmt.Fprintf(out, "%s\n", p.DisplayName)
	fmt.Fprintf(out, "   Games played: %d\n", p.GamesPlayed)
	fmt.Fprintf(out, "   Total score:  %d\n", p.TotalScore)
	fmt.Fprintf(out, "   High score:   %d\n", p.HighScore)
	if p.LastPlayed != nil {
		fmt.Fprintf(out, "   Last played:  %s\n", p.LastPlayed.Format(time.RFC3339))
	}
	if len(p.GamesHistory) == 0 {
		return
	}
	fmt.Fprintln(out, "   Recent games:")
	for i := len(p.GamesHistory) - 1; i >= 0; i-- {
		g := p.GamesHistory[i]
		outcome := "lost"
		if g.Won {
			outcome = "won"
		}
		fmt.Fprintf(out, "     %s  %-20s score %d, level %d, %s\n",
			g.Date.Format("2006-01-02"), g.Game, g.Score, g.Level, outcome)
	}
}

func printLeaderboard(out io.Writer, entries []domain.LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No scores yet.")
		return
	}
	fmt.Fprintln(out, "LEADERBOARD")
	fmt.Fprintln(out, strings.Repeat("=", 40))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPlayer\tHigh score\tGames")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, e.Username, e.HighScore, e.GamesPlayed)
	}
	tw.Flush()
}
