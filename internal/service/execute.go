package service

import (
	"context"
	"fmt"

	"game-builder/internal/domain"
	"game-builder/pkg/ai"

	"go.uber.org/zap"
)

var bundleSchema = &ai.Schema{
	Name: "game_bundle",
	Properties: []ai.Property{
		{Name: domain.FileIndexHTML, Kind: ai.KindString, Required: true},
		{Name: domain.FileStyleCSS, Kind: ai.KindString, Required: true},
		{Name: domain.FileGameJS, Kind: ai.KindString, Required: true},
	},
}

// ExecuteResult is the outcome of the execution stage.
type ExecuteResult struct {
	Bundle   domain.ArtifactBundle
	Fallback bool
	Cause    error // why the fallback was used
}

// Executor asks for the three game files in one request.
type Executor struct {
	gateway ai.Gateway
	window  int
	logger  *zap.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(gateway ai.Gateway, opts Options, logger *zap.Logger) *Executor {
	opts = opts.withDefaults()
	return &Executor{gateway: gateway, window: opts.HistoryWindow, logger: logger.Named("Executor")}
}

// Execute returns the model bundle, or the fallback bundle when the reply is
// unusable. Extra keys in the reply are ignored.
func (e *Executor) Execute(ctx context.Context, session *Session, req domain.RequirementSpec, plan domain.GamePlan) (*ExecuteResult, error) {
	log := e.logger.With(zap.String("sessionID", session.ID.String()))
	data := promptData{Requirements: req.PrettyJSON(), Plan: plan.PrettyJSON(), Spec: req}

	comp := e.gateway.Complete(ctx, ai.Request{
		Turns: buildTurns(
			mustRenderPrompt(promptExecutorSystem, data),
			session.Window(e.window),
			mustRenderPrompt(promptExecutorUser, data),
		),
		Temperature: 0.3,
		MaxTokens:   8000,
		Schema:      bundleSchema,
	})
	if comp.Failed() {
		reason, cause := fallbackCause(comp.Error)
		log.Warn("Game generation failed, using fallback bundle",
			zap.Int("replyLength", len(comp.Raw)), zap.Error(cause))
		recordFallback(StageExecute, reason)
		return e.fallback(req, plan, cause)
	}

	bundle := domain.BundleFromMap(comp.Structured)
	if !bundle.Complete() {
		cause := fmt.Errorf("%w: generated bundle has empty files", domain.ErrParse)
		log.Warn("Generated bundle is incomplete, using fallback bundle", zap.Error(cause))
		recordFallback(StageExecute, "incomplete")
		return e.fallback(req, plan, cause)
	}
	log.Info("Game files generated",
		zap.Int("htmlBytes", len(bundle[domain.FileIndexHTML])),
		zap.Int("cssBytes", len(bundle[domain.FileStyleCSS])),
		zap.Int("jsBytes", len(bundle[domain.FileGameJS])),
	)
	return &ExecuteResult{Bundle: bundle}, nil
}

// Fallback renders the deterministic bundle for req and plan.
func (e *Executor) Fallback(req domain.RequirementSpec, plan domain.GamePlan, cause error) (*ExecuteResult, error) {
	return e.fallback(req, plan, cause)
}

func (e *Executor) fallback(req domain.RequirementSpec, plan domain.GamePlan, cause error) (*ExecuteResult, error) {
	bundle, err := FallbackBundle(req, plan)
	if err != nil {
		e.logger.Error("Failed to render fallback bundle", zap.Error(err))
		return nil, err
	}
	return &ExecuteResult{Bundle: bundle, Fallback: true, Cause: cause}, nil
}
