package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"game-builder/internal/domain"
	"game-builder/internal/repository"
	"game-builder/pkg/ai"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdea is used when the operator gives no idea.
const DefaultIdea = "A character collecting items while avoiding enemies, with level up popups"

// Options tunes the pipeline.
type Options struct {
	MaxQuestions  int
	HistoryWindow int
	// OnPhase, when set, is called as each stage starts.
	OnPhase func(stage string)
}

func (o Options) withDefaults() Options {
	if o.MaxQuestions <= 0 {
		o.MaxQuestions = DefaultMaxQuestions
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = DefaultHistoryWindow
	}
	return o
}

// BuildResult describes a finished build.
type BuildResult struct {
	SessionID          uuid.UUID
	Idea               string
	Requirements       domain.RequirementSpec
	RequirementsSource string
	Questions          int
	Plan               domain.GamePlan
	Bundle             domain.ArtifactBundle
	Enhancements       []string
	Paths              []string
	Fallbacks          []string // stages that used their deterministic fallback
	Duration           time.Duration
}

// UsedFallback reports whether stage fell back.
func (r *BuildResult) UsedFallback(stage string) bool {
	for _, s := range r.Fallbacks {
		if s == stage {
			return true
		}
	}
	return false
}

// Builder runs clarification, planning, execution and enhancement in order,
// then writes the bundle.
type Builder struct {
	clarifier *Clarifier
	planner   *Planner
	executor  *Executor
	writer    repository.BundleWriter
	onPhase   func(string)
	logger    *zap.Logger
}

// NewBuilder wires the stages around one gateway.
func NewBuilder(gateway ai.Gateway, prompter Prompter, writer repository.BundleWriter, opts Options, logger *zap.Logger) *Builder {
	opts = opts.withDefaults()
	return &Builder{
		clarifier: NewClarifier(gateway, prompter, opts, logger),
		planner:   NewPlanner(gateway, opts, logger),
		executor:  NewExecutor(gateway, opts, logger),
		writer:    writer,
		onPhase:   opts.OnPhase,
		logger:    logger.Named("Builder"),
	}
}

func (b *Builder) phase(stage string) {
	if b.onPhase != nil {
		b.onPhase(stage)
	}
}

// Run builds a game for idea. Errors are operator aborts and persistence
// failures; every generation problem is absorbed by a stage fallback.
func (b *Builder) Run(ctx context.Context, idea string) (*BuildResult, error) {
	started := time.Now()
	idea = strings.TrimSpace(idea)
	if idea == "" {
		idea = DefaultIdea
	}
	session := NewSession(idea)
	log := b.logger.With(zap.String("sessionID", session.ID.String()))
	log.Info("Build started", zap.String("idea", idea))

	result, err := b.run(ctx, session)
	if err != nil {
		status := "error"
		if errors.Is(err, domain.ErrOperatorAbort) {
			status = "aborted"
		}
		buildsTotal.WithLabelValues(status).Inc()
		log.Warn("Build stopped", zap.String("status", status), zap.Error(err))
		return nil, err
	}
	result.Duration = time.Since(started)
	buildsTotal.WithLabelValues("success").Inc()
	log.Info("Build finished",
		zap.Strings("fallbacks", result.Fallbacks),
		zap.Strings("paths", result.Paths),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (b *Builder) run(ctx context.Context, session *Session) (*BuildResult, error) {
	result := &BuildResult{SessionID: session.ID, Idea: session.Idea}

	b.phase(StageClarify)
	clarified, err := b.clarifier.Clarify(ctx, session)
	if err != nil {
		return nil, err
	}
	result.Requirements = clarified.Requirements
	result.RequirementsSource = clarified.Source
	result.Questions = clarified.Questions
	if clarified.Source == SourceDefault {
		result.Fallbacks = append(result.Fallbacks, StageClarify)
	}

	b.phase(StagePlan)
	planned := b.planner.Plan(ctx, session, clarified.Requirements)
	result.Plan = planned.Plan
	if planned.Fallback {
		result.Fallbacks = append(result.Fallbacks, StagePlan)
	}

	b.phase(StageExecute)
	executed, err := b.executor.Execute(ctx, session, result.Requirements, result.Plan)
	if err != nil {
		return nil, err
	}
	if executed.Fallback {
		result.Fallbacks = append(result.Fallbacks, StageExecute)
	}

	b.phase(StageEnhance)
	bundle, inserted, err := Enhance(executed.Bundle)
	if errors.Is(err, ErrSlotMissing) && !executed.Fallback {
		b.logger.Warn("Generated page cannot be enhanced, using fallback bundle", zap.Error(err))
		recordFallback(StageEnhance, "slot_missing")
		result.Fallbacks = append(result.Fallbacks, StageEnhance)
		if executed, err = b.executor.Fallback(result.Requirements, result.Plan, err); err != nil {
			return nil, err
		}
		bundle, inserted, err = Enhance(executed.Bundle)
	}
	if err != nil {
		return nil, fmt.Errorf("enhance bundle: %w", err)
	}
	if missing := bundle.MissingFeatures(); len(missing) > 0 {
		b.logger.Warn("Bundle lacks checklist features", zap.Strings("missing", missing))
	}
	result.Bundle = bundle
	result.Enhancements = inserted

	paths, err := b.writer.WriteBundle(ctx, bundle)
	if err != nil {
		return nil, err
	}
	result.Paths = paths
	return result, nil
}
