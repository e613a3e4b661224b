package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"game-builder/internal/domain"
	"game-builder/pkg/ai"

	"go.uber.org/zap"
)

// RequirementsClearMarker ends clarification when followed by the
// requirements object.
const RequirementsClearMarker = "REQUIREMENTS_CLEAR"

// DefaultMaxQuestions bounds the clarification loop.
const DefaultMaxQuestions = 3

// Prompter collects an answer from the operator. Implementations return
// domain.ErrOperatorAbort when the operator gives up.
type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
}

// ClarifyState is the position of the clarification loop.
type ClarifyState int

const (
	StateAwaitingQuestion ClarifyState = iota
	StateAwaitingAnswer
	StateClear
	StateMaxReached
)

func (s ClarifyState) String() string {
	switch s {
	case StateAwaitingQuestion:
		return "awaiting_question"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateClear:
		return "clear"
	case StateMaxReached:
		return "max_reached"
	}
	return fmt.Sprintf("ClarifyState(%d)", int(s))
}

// ReplyKind tags a clarifier reply.
type ReplyKind int

const (
	ReplyQuestion ReplyKind = iota
	ReplyClear
)

// ClarifierReply is either a question for the operator or the finished
// requirements object.
type ClarifierReply struct {
	Kind         ReplyKind
	Question     string
	Requirements map[string]interface{}
}

// ParseClarifierReply classifies a model reply. A reply is Clear only when
// some occurrence of the marker is followed by exactly one JSON object,
// optionally fenced, and nothing else.
// Anything else, including a question that merely mentions the marker, is a
// Question carrying the whole reply.
func ParseClarifierReply(text string) ClarifierReply {
	question := ClarifierReply{Kind: ReplyQuestion, Question: strings.TrimSpace(text)}

	rest := text
	for {
		idx := strings.Index(rest, RequirementsClearMarker)
		if idx < 0 {
			return question
		}
		rest = rest[idx+len(RequirementsClearMarker):]

		payload := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":"))
		if obj, err := ai.DecodeObject(ai.StripFences(payload)); err == nil {
			return ClarifierReply{Kind: ReplyClear, Requirements: obj}
		}
	}
}

// Requirement sources reported in ClarifyResult.
const (
	SourceSentinel   = "sentinel"
	SourceTranscript = "transcript"
	SourceDefault    = "default"
)

// ClarifyResult is the outcome of the clarification stage.
type ClarifyResult struct {
	Requirements domain.RequirementSpec
	State        ClarifyState // StateClear or StateMaxReached
	Source       string
	Questions    int      // questions put to the operator
	Defaulted    []string // keys filled from the generic defaults
	Cause        error    // set when Source is SourceDefault
}

// Asked when the generation service cannot supply a question.
var fallbackQuestions = []string{
	"What should the main character be?",
	"What does the player need to collect?",
	"What obstacles should the player avoid?",
	"How does the game get harder?",
	"What happens when you lose?",
	"What's the visual style you want?",
	"How do you control the character?",
}

func fallbackQuestion(i int) string {
	return fallbackQuestions[i%len(fallbackQuestions)]
}

var requirementsSchema = func() *ai.Schema {
	s := &ai.Schema{Name: "requirements"}
	for _, key := range domain.RequirementKeys {
		s.Properties = append(s.Properties, ai.Property{Name: key})
	}
	return s
}()

// Clarifier runs the bounded question and answer loop.
type Clarifier struct {
	gateway      ai.Gateway
	prompter     Prompter
	maxQuestions int
	window       int
	logger       *zap.Logger
}

// NewClarifier creates a Clarifier.
func NewClarifier(gateway ai.Gateway, prompter Prompter, opts Options, logger *zap.Logger) *Clarifier {
	opts = opts.withDefaults()
	return &Clarifier{
		gateway:      gateway,
		prompter:     prompter,
		maxQuestions: opts.MaxQuestions,
		window:       opts.HistoryWindow,
		logger:       logger.Named("Clarifier"),
	}
}

// Clarify asks up to maxQuestions questions and returns a complete
// RequirementSpec. The only errors are operator aborts and prompter failures;
// generation problems always resolve to a fallback.
func (c *Clarifier) Clarify(ctx context.Context, session *Session) (*ClarifyResult, error) {
	log := c.logger.With(zap.String("sessionID", session.ID.String()))
	system := mustRenderPrompt(promptClarifierSystem, promptData{Marker: RequirementsClearMarker})
	next := mustRenderPrompt(promptClarifierNext, promptData{})

	for asked := 0; asked < c.maxQuestions; asked++ {
		comp := c.gateway.Complete(ctx, ai.Request{
			Turns:       buildTurns(system, session.Window(c.window), next),
			Temperature: 0.3,
			MaxTokens:   2000,
		})

		var reply ClarifierReply
		if comp.Failed() {
			reply = ClarifierReply{Kind: ReplyQuestion, Question: fallbackQuestion(asked)}
			log.Warn("Question request failed, asking a canned question",
				zap.Int("iteration", asked), zap.Error(comp.Error))
			recordFallback(StageClarify, "question")
		} else {
			reply = ParseClarifierReply(comp.Text())
		}

		if reply.Kind == ReplyClear {
			spec, defaulted := domain.NormalizeRequirements(reply.Requirements)
			log.Info("Requirements clear",
				zap.Int("questions", asked), zap.Strings("defaulted", defaulted))
			return &ClarifyResult{
				Requirements: spec,
				State:        StateClear,
				Source:       SourceSentinel,
				Questions:    asked,
				Defaulted:    defaulted,
			}, nil
		}
		if strings.Contains(reply.Question, RequirementsClearMarker) {
			log.Debug("Marker without a valid payload, treating reply as a question")
		}

		session.Append(ai.RoleAssistant, reply.Question)
		log.Debug("Question asked", zap.Stringer("state", StateAwaitingAnswer), zap.Int("iteration", asked))
		answer, err := c.prompter.Ask(ctx, reply.Question)
		if err != nil {
			if errors.Is(err, domain.ErrOperatorAbort) || ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrOperatorAbort, err)
			}
			return nil, fmt.Errorf("read answer: %w", err)
		}
		session.Append(ai.RoleUser, answer)
	}

	result := c.extract(ctx, session)
	result.Questions = c.maxQuestions
	return result, nil
}

// extract asks for the requirements object from the whole transcript.
func (c *Clarifier) extract(ctx context.Context, session *Session) *ClarifyResult {
	log := c.logger.With(zap.String("sessionID", session.ID.String()))
	prompt := mustRenderPrompt(promptExtraction, promptData{Transcript: session.Transcript()})

	comp := c.gateway.Complete(ctx, ai.Request{
		Turns:       buildTurns("", session.Window(c.window), prompt),
		Temperature: 0.1,
		MaxTokens:   2000,
		Schema:      requirementsSchema,
	})
	if comp.Failed() {
		reason, cause := fallbackCause(comp.Error)
		log.Warn("Requirement extraction failed, using generic requirements", zap.Error(cause))
		recordFallback(StageClarify, "extraction_"+reason)
		return &ClarifyResult{
			Requirements: domain.DefaultRequirements(),
			State:        StateMaxReached,
			Source:       SourceDefault,
			Defaulted:    append([]string(nil), domain.RequirementKeys...),
			Cause:        cause,
		}
	}

	spec, defaulted := domain.NormalizeRequirements(comp.Structured)
	log.Info("Requirements extracted from transcript", zap.Strings("defaulted", defaulted))
	return &ClarifyResult{
		Requirements: spec,
		State:        StateMaxReached,
		Source:       SourceTranscript,
		Defaulted:    defaulted,
	}
}
