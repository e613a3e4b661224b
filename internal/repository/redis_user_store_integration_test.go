package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"game-builder/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// RedisUserStoreSuite runs the profile store against a real Redis.
type RedisUserStoreSuite struct {
	suite.Suite
	ctx         context.Context
	rdContainer *tcredis.RedisContainer
	client      *redis.Client
	store       *RedisUserStore
}

func (s *RedisUserStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	host, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	store, err := OpenRedisUserStore(s.ctx, &redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())}, zap.NewNop())
	require.NoError(s.T(), err, "Failed to connect to test redis")
	s.store = store
	s.client = store.client
}

func (s *RedisUserStoreSuite) TearDownSuite() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
}

func (s *RedisUserStoreSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushDB(s.ctx).Err())
}

func (s *RedisUserStoreSuite) TestGetOrCreate() {
	first, err := s.store.GetOrCreate(s.ctx, " Alice")
	s.Require().NoError(err)
	s.Equal("alice", first.Username)
	s.Equal("Alice", first.DisplayName)

	second, err := s.store.GetOrCreate(s.ctx, "ALICE")
	s.Require().NoError(err)
	s.True(first.CreatedAt.Equal(second.CreatedAt))

	count, err := s.client.ZCard(s.ctx, redisProfilesKey).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *RedisUserStoreSuite) TestRecordResult() {
	_, err := s.store.GetOrCreate(s.ctx, "alice")
	s.Require().NoError(err)

	var p *domain.UserProfile
	for _, score := range []int{10, 30, 20} {
		p, err = s.store.RecordResult(s.ctx, "alice", domain.GameResult{Game: "Cat Run", Score: score})
		s.Require().NoError(err)
	}
	s.Equal(3, p.GamesPlayed)
	s.Equal(60, p.TotalScore)
	s.Equal(30, p.HighScore)
	s.NotNil(p.LastPlayed)
}

func (s *RedisUserStoreSuite) TestRecordResultUnknownUser() {
	_, err := s.store.RecordResult(s.ctx, "ghost", domain.GameResult{Score: 1})
	s.ErrorIs(err, domain.ErrUserNotFound)
}

func (s *RedisUserStoreSuite) TestConcurrentResultsAreNotLost() {
	_, err := s.store.GetOrCreate(s.ctx, "alice")
	s.Require().NoError(err)

	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, _ = s.store.RecordResult(s.ctx, "alice", domain.GameResult{Game: "g", Score: score})
		}(i + 1)
	}
	wg.Wait()

	p, err := s.store.GetOrCreate(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(writers, p.GamesPlayed)
	s.Equal(10, p.TotalScore)
	s.Equal(4, p.HighScore)
}

func (s *RedisUserStoreSuite) TestLeaderboardOrder() {
	for _, entry := range []struct {
		name  string
		score int
	}{{"ann", 10}, {"ben", 50}, {"cat", 10}, {"dan", 50}} {
		_, err := s.store.GetOrCreate(s.ctx, entry.name)
		s.Require().NoError(err)
		_, err = s.store.RecordResult(s.ctx, entry.name, domain.GameResult{Score: entry.score})
		s.Require().NoError(err)
	}

	entries, err := s.store.TopLeaderboard(s.ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("Ben", entries[0].Username)
	s.Equal("Dan", entries[1].Username)
	s.Equal("Ann", entries[2].Username)
}

func TestRedisUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping redis integration tests in short mode.")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(RedisUserStoreSuite))
}
