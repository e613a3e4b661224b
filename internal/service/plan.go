package service

import (
	"context"

	"game-builder/internal/domain"
	"game-builder/pkg/ai"

	"go.uber.org/zap"
)

var planSchema = &ai.Schema{
	Name: "game_plan",
	Properties: []ai.Property{
		{Name: "framework"},
		{Name: "game_title", Kind: ai.KindString, Required: true},
		{Name: "mechanics"},
		{Name: "data_structures"},
		{Name: "game_loop_steps"},
		{Name: "key_functions"},
		{Name: "visual_elements"},
	},
}

// PlanResult is the outcome of the planning stage.
type PlanResult struct {
	Plan     domain.GamePlan
	Fallback bool
	Cause    error // why the fallback was used
}

// Planner turns requirements into a GamePlan with a single request.
type Planner struct {
	gateway ai.Gateway
	window  int
	logger  *zap.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(gateway ai.Gateway, opts Options, logger *zap.Logger) *Planner {
	opts = opts.withDefaults()
	return &Planner{gateway: gateway, window: opts.HistoryWindow, logger: logger.Named("Planner")}
}

// Plan never fails: any generation or parse problem yields domain.DefaultPlan.
func (p *Planner) Plan(ctx context.Context, session *Session, req domain.RequirementSpec) PlanResult {
	log := p.logger.With(zap.String("sessionID", session.ID.String()))
	data := promptData{Requirements: req.PrettyJSON(), Spec: req}

	comp := p.gateway.Complete(ctx, ai.Request{
		Turns: buildTurns(
			mustRenderPrompt(promptPlannerSystem, data),
			session.Window(p.window),
			mustRenderPrompt(promptPlannerUser, data),
		),
		Temperature: 0.2,
		MaxTokens:   2000,
		Schema:      planSchema,
	})
	if comp.Failed() {
		reason, cause := fallbackCause(comp.Error)
		log.Warn("Planning failed, synthesizing plan from requirements", zap.Error(cause))
		recordFallback(StagePlan, reason)
		return PlanResult{Plan: domain.DefaultPlan(req), Fallback: true, Cause: cause}
	}

	plan := domain.PlanFromMap(comp.Structured)
	log.Info("Plan created", zap.String("title", plan.GameTitle), zap.String("framework", plan.Framework))
	return PlanResult{Plan: plan}
}
