package service

import (
	"errors"
	"fmt"

	"game-builder/internal/domain"
	"game-builder/pkg/ai"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used in logs, metrics and BuildResult.Fallbacks.
const (
	StageClarify = "clarify"
	StagePlan    = "plan"
	StageExecute = "execute"
	StageEnhance = "enhance"
)

var (
	stageFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_builder_stage_fallbacks_total",
			Help: "Number of times a stage substituted its deterministic fallback.",
		},
		[]string{"stage", "reason"},
	)
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_builder_builds_total",
			Help: "Number of finished build sessions by outcome.",
		},
		[]string{"status"},
	)
)

func recordFallback(stage, reason string) {
	stageFallbacksTotal.With(prometheus.Labels{"stage": stage, "reason": reason}).Inc()
}

// fallbackCause classifies a failed completion. A reply that arrived but
// did not fit the schema is domain.ErrParse; anything else is a generation
// failure and is returned as is.
func fallbackCause(err error) (reason string, cause error) {
	if errors.Is(err, ai.ErrSchemaMismatch) {
		return "parse", fmt.Errorf("%w: %w", domain.ErrParse, err)
	}
	return "generation", err
}
