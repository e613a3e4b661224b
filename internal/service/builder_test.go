package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"game-builder/internal/domain"
	"game-builder/internal/mocks"
	"game-builder/internal/repository"
	"game-builder/internal/service"
	"game-builder/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuilder_OfflineRunsOnFallbacks(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything).Return(unavailable(errOffline))
	prompter := mocks.NewMockPrompter(t)
	prompter.On("Ask", mock.Anything, mock.Anything).Return("no idea", nil).Times(3)

	dir := filepath.Join(t.TempDir(), "generated_game")
	var phases []string
	builder := service.NewBuilder(gw, prompter, repository.NewDirBundleWriter(dir, zap.NewNop()),
		service.Options{OnPhase: func(stage string) { phases = append(phases, stage) }}, zap.NewNop())

	res, err := builder.Run(context.Background(), "   ")
	require.NoError(t, err)

	assert.Equal(t, service.DefaultIdea, res.Idea)
	assert.Equal(t, []string{service.StageClarify, service.StagePlan, service.StageExecute, service.StageEnhance}, phases)
	assert.Equal(t, []string{service.StageClarify, service.StagePlan, service.StageExecute}, res.Fallbacks)
	assert.Equal(t, domain.DefaultRequirements(), res.Requirements)
	assert.Equal(t, domain.DefaultPlan(domain.DefaultRequirements()), res.Plan)
	assert.True(t, res.Bundle.Complete())
	assert.Empty(t, res.Bundle.MissingFeatures())
	assert.Empty(t, res.Enhancements)
	gw.AssertNumberOfCalls(t, "Complete", 6)

	require.Len(t, res.Paths, 3)
	for _, name := range domain.BundleFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, res.Bundle[name], string(data))
	}
}

func TestBuilder_ModelPath(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(sentinelReply)).Once()
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(planReply)).Once()
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(modelBundleReply())).Once()

	writer := mocks.NewMockBundleWriter(t)
	writer.On("WriteBundle", mock.Anything, mock.MatchedBy(func(b domain.ArtifactBundle) bool {
		return b.Complete()
	})).Return([]string{"a", "b", "c"}, nil).Once()

	builder := service.NewBuilder(gw, mocks.NewMockPrompter(t), writer, service.Options{}, zap.NewNop())
	res, err := builder.Run(context.Background(), "penguin catching fish")
	require.NoError(t, err)

	assert.Empty(t, res.Fallbacks)
	assert.Equal(t, service.SourceSentinel, res.RequirementsSource)
	assert.Equal(t, "Penguin Dash", res.Plan.GameTitle)
	assert.Contains(t, res.Bundle[domain.FileIndexHTML], `id="usernameInput"`)
	assert.Contains(t, res.Enhancements, service.BlockLevelUpScript)
	assert.Equal(t, []string{"a", "b", "c"}, res.Paths)
}

func TestBuilder_UnenhanceablePageFallsBack(t *testing.T) {
	noScript := fmt.Sprintf(`{%q: %q, %q: %q, %q: %q}`,
		"index.html", "<html><body><canvas></canvas></body></html>",
		"style.css", "body {}",
		"game.js", "requestAnimationFrame(function () {});",
	)
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(sentinelReply)).Once()
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(planReply)).Once()
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(noScript)).Once()

	writer := mocks.NewMockBundleWriter(t)
	writer.On("WriteBundle", mock.Anything, mock.Anything).Return([]string{}, nil).Once()

	res, err := service.NewBuilder(gw, mocks.NewMockPrompter(t), writer, service.Options{}, zap.NewNop()).
		Run(context.Background(), "penguin")
	require.NoError(t, err)

	assert.Equal(t, []string{service.StageEnhance}, res.Fallbacks)
	assert.True(t, res.UsedFallback(service.StageEnhance))
	assert.Empty(t, res.Bundle.MissingFeatures())

	want, err := service.FallbackBundle(res.Requirements, res.Plan)
	require.NoError(t, err)
	assert.Equal(t, want, res.Bundle)
}

func TestBuilder_PersistenceFailureIsFatal(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply(sentinelReply)).Once()
	gw.On("Complete", mock.Anything, mock.Anything).Return(unavailable(errOffline))

	writer := mocks.NewMockBundleWriter(t)
	writer.On("WriteBundle", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: disk full", domain.ErrPersistence)).Once()

	_, err := service.NewBuilder(gw, mocks.NewMockPrompter(t), writer, service.Options{}, zap.NewNop()).
		Run(context.Background(), "penguin")
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestBuilder_OperatorAbort(t *testing.T) {
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything).Return(reply("What is the hero?")).Once()
	prompter := mocks.NewMockPrompter(t)
	prompter.On("Ask", mock.Anything, mock.Anything).Return("", domain.ErrOperatorAbort).Once()

	_, err := service.NewBuilder(gw, prompter, mocks.NewMockBundleWriter(t), service.Options{}, zap.NewNop()).
		Run(context.Background(), "penguin")
	assert.True(t, errors.Is(err, domain.ErrOperatorAbort))
}

func TestBuilder_RequestsShareSessionHistory(t *testing.T) {
	var requests []ai.Request
	gw := mocks.NewMockGateway(t)
	gw.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { requests = append(requests, args.Get(1).(ai.Request)) }).
		Return(unavailable(errOffline))
	prompter := mocks.NewMockPrompter(t)
	prompter.On("Ask", mock.Anything, mock.Anything).Return("answer", nil)

	writer := mocks.NewMockBundleWriter(t)
	writer.On("WriteBundle", mock.Anything, mock.Anything).Return([]string{}, nil).Once()

	_, err := service.NewBuilder(gw, prompter, writer, service.Options{MaxQuestions: 2, HistoryWindow: 2}, zap.NewNop()).
		Run(context.Background(), "penguin")
	require.NoError(t, err)

	// Two questions, extraction, plan, execute.
	require.Len(t, requests, 5)
	for _, req := range requests[2:] {
		history := 0
		for _, turn := range req.Turns {
			if turn.Role != ai.RoleSystem {
				history++
			}
		}
		assert.Equal(t, 3, history, "window of two plus the stage prompt")
	}
}
