package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"game-builder/internal/domain"
	"game-builder/internal/repository"
	"game-builder/internal/service"
	"game-builder/pkg/ai"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a game interactively (default command)",
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

var phaseBanners = map[string]string{
	service.StageClarify: "PHASE 1: Let me understand your game idea",
	service.StagePlan:    "PHASE 2: Creating game architecture",
	service.StageExecute: "PHASE 3: Generating your game...",
	service.StageEnhance: "PHASE 4: Adding username, level-up popup and leaderboard",
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	prompter := newLinePrompter(cmd.InOrStdin(), out)

	printWelcome(out)
	fmt.Fprint(out, "Your game idea: ")
	idea, err := prompter.readLine(ctx)
	if err != nil {
		return err
	}
	if idea == "" {
		fmt.Fprintf(out, "\nUsing default idea: %s\n", service.DefaultIdea)
	}

	if cfg.Degraded() {
		log.Warn("No API key configured, every stage will use its offline fallback")
		fmt.Fprintln(out, "\nNote: no GROQ_API_KEY set, building the offline game.")
		fmt.Fprintln(out, "   Create a .env file with your GROQ_API_KEY for generated games.")
	}

	gateway, err := ai.NewGateway(cfg.Gateway(), log)
	if err != nil {
		return err
	}
	writer := repository.NewDirBundleWriter(cfg.OutputDir, log)
	builder := service.NewBuilder(gateway, prompter, writer, service.Options{
		MaxQuestions:  cfg.MaxQuestions,
		HistoryWindow: cfg.HistoryWindow,
		OnPhase:       func(stage string) { printBanner(out, phaseBanners[stage]) },
	}, log)

	result, err := builder.Run(ctx, idea)
	if err != nil {
		return err
	}
	printResult(out, result, cfg.OutputDir)
	log.Debug("Build summary",
		zap.String("sessionID", result.SessionID.String()),
		zap.Strings("enhancements", result.Enhancements),
	)
	return nil
}

func printWelcome(out io.Writer) {
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "  WELCOME TO THE AI GAME BUILDER")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintln(out, "\nI can create ANY game you describe!")
	fmt.Fprintln(out, "Your game will have:")
	for _, f := range []string{"Username input in the UI", "Obstacles to avoid", "Level up popups", "Leaderboard tracking"} {
		fmt.Fprintf(out, "   * %s\n", f)
	}
	fmt.Fprintln(out, "\nExample ideas:")
	fmt.Fprintln(out, "  * 'A dog fetching bones in a park, avoiding cats, level up every 3 bones'")
	fmt.Fprintln(out, "  * 'A penguin catching fish while avoiding sharks, with level popups'")
	fmt.Fprintln(out)
}

func printBanner(out io.Writer, title string) {
	if title == "" {
		return
	}
	fmt.Fprintln(out, "\n"+strings.Repeat("-", 60))
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, strings.Repeat("-", 60))
}

func printResult(out io.Writer, result *service.BuildResult, dir string) {
	fmt.Fprintln(out, "\nRequirements gathered:")
	for _, key := range domain.RequirementKeys {
		fmt.Fprintf(out, "   * %s: %s\n", labelFor(key), result.Requirements.Get(key))
	}
	fmt.Fprintf(out, "\nGame plan created for: %s\n", result.Plan.GameTitle)
	if len(result.Fallbacks) > 0 {
		fmt.Fprintf(out, "Offline fallback used for: %s\n", strings.Join(result.Fallbacks, ", "))
	}

	fmt.Fprintln(out, "\n"+strings.Repeat("=", 60))
	fmt.Fprintln(out, "GAME READY!")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nFiles created in '%s' folder:\n", dir)
	for _, path := range result.Paths {
		fmt.Fprintf(out, "   * %s\n", path)
	}
	fmt.Fprintln(out, "\nTo play your game:")
	fmt.Fprintf(out, "   1. Open the '%s' folder\n", dir)
	fmt.Fprintln(out, "   2. Double-click 'index.html' to play in your browser")
	fmt.Fprintf(out, "\n   Avoid %s, level up and save your score to the leaderboard.\n", result.Requirements.Obstacles)
	fmt.Fprintf(out, "   Built in %s.\n", result.Duration.Round(time.Millisecond))
}

// labelFor turns "win_condition" into "Win Condition".
func labelFor(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
