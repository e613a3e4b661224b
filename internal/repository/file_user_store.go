package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"game-builder/internal/domain"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

var _ UserStore = (*FileUserStore)(nil)

// FileUserStore keeps all profiles in one JSON object keyed by normalized
// username. The file is read once at open and rewritten in full after every
// mutation. Key order in the file is creation order.
type FileUserStore struct {
	path     string
	mu       sync.Mutex
	profiles *orderedmap.OrderedMap[string, *domain.UserProfile]
	now      func() time.Time
	logger   *zap.Logger
}

// OpenFileUserStore loads the store at path. A missing file yields an empty
// store; the file is created on the first mutation. An undecodable file is
// renamed to "<path>.corrupt-<unix seconds>" before starting empty, so it is
// never overwritten.
func OpenFileUserStore(path string, logger *zap.Logger) (*FileUserStore, error) {
	s := &FileUserStore{
		path:     path,
		profiles: orderedmap.New[string, *domain.UserProfile](),
		now:      time.Now,
		logger:   logger.Named("FileUserStore"),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("Profile file not found, starting empty", zap.String("path", path))
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, s.profiles); err != nil {
			aside := fmt.Sprintf("%s.corrupt-%d", path, s.now().Unix())
			if renameErr := os.Rename(path, aside); renameErr != nil {
				return nil, fmt.Errorf("%w: move aside unreadable %s: %v", domain.ErrPersistence, path, renameErr)
			}
			s.logger.Warn("Profile file is unreadable, moved aside and starting empty",
				zap.String("path", path), zap.String("movedTo", aside), zap.Error(err))
			s.profiles = orderedmap.New[string, *domain.UserProfile]()
			return s, nil
		}
	}
	s.logger.Info("Profiles loaded", zap.String("path", path), zap.Int("count", s.profiles.Len()))
	return s, nil
}

// GetOrCreate implements UserStore.
func (s *FileUserStore) GetOrCreate(ctx context.Context, username string) (*domain.UserProfile, error) {
	key := domain.NormalizeUsername(username)
	if key == "" {
		return nil, domain.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.profiles.Get(key); ok && p != nil {
		return cloneProfile(p), nil
	}

	p := domain.NewUserProfile(key, displayName(key), s.now())
	s.profiles.Set(key, p)
	if err := s.flush(); err != nil {
		s.profiles.Delete(key)
		return nil, err
	}
	s.logger.Info("Profile created", zap.String("username", key))
	return cloneProfile(p), nil
}

// RecordResult implements UserStore.
func (s *FileUserStore) RecordResult(ctx context.Context, username string, result domain.GameResult) (*domain.UserProfile, error) {
	key := domain.NormalizeUsername(username)
	if key == "" {
		return nil, domain.ErrInvalidUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.profiles.Get(key)
	if !ok || current == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, key)
	}

	updated := cloneProfile(current)
	updated.Apply(stampResult(result, s.now()))
	s.profiles.Set(key, updated)
	if err := s.flush(); err != nil {
		s.profiles.Set(key, current)
		return nil, err
	}
	s.logger.Debug("Result recorded",
		zap.String("username", key),
		zap.Int("score", result.Score),
		zap.Int("highScore", updated.HighScore),
	)
	return cloneProfile(updated), nil
}

// TopLeaderboard implements UserStore.
func (s *FileUserStore) TopLeaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]*domain.UserProfile, 0, s.profiles.Len())
	for pair := s.profiles.Oldest(); pair != nil; pair = pair.Next() {
		profiles = append(profiles, pair.Value)
	}
	return domain.RankLeaderboard(profiles, n), nil
}

// Close implements UserStore. The file store holds no open handles.
func (s *FileUserStore) Close() error { return nil }

// flush rewrites the whole file through a temp file and rename. Caller holds mu.
func (s *FileUserStore) flush() error {
	data, err := json.Marshal(s.profiles)
	if err != nil {
		return fmt.Errorf("%w: encode profiles: %v", domain.ErrPersistence, err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err == nil {
		data = pretty.Bytes()
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		s.logger.Error("Failed to create temp profile file", zap.String("dir", dir), zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersistence, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		s.logger.Error("Failed to replace profile file", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("%w: replace %s: %v", domain.ErrPersistence, s.path, err)
	}
	return nil
}

func cloneProfile(p *domain.UserProfile) *domain.UserProfile {
	c := *p
	c.GamesHistory = make([]domain.GameResult, len(p.GamesHistory))
	copy(c.GamesHistory, p.GamesHistory)
	if p.LastPlayed != nil {
		t := *p.LastPlayed
		c.LastPlayed = &t
	}
	return &c
}
