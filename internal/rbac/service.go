package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Repository loads access snapshots from the primary store.
type Repository interface {
	GetUserAccess(ctx context.Context, username string) (*UserAccess, error)
	RecentUsernames(ctx context.Context, since time.Time, limit int) ([]string, error)
}

const accessKeyPrefix = "access:v1:"

// Service resolves access snapshots through a short-TTL cache so
// per-request decisions never block on the primary store. Snapshots are
// immutable once returned; a role or plant change becomes visible after
// Invalidate or TTL expiry.
type Service struct {
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewService returns a snapshot service. cache may be nil, in which
// case every load hits the repository.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Load returns the access snapshot for username. Concurrent loads for
// the same account are collapsed into one repository round trip.
func (s *Service) Load(ctx context.Context, username string) (*UserAccess, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrNotFound
	}
	if access, ok := s.fromCache(ctx, username); ok {
		return access, nil
	}
	ch := s.group.DoChan(username, func() (any, error) {
		return s.loadAndCache(context.WithoutCancel(ctx), username)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*UserAccess), nil
	}
}

// Invalidate drops the cached snapshot so the next load sees current
// role and plant assignments.
func (s *Service) Invalidate(ctx context.Context, username string) {
	if s.cache == nil {
		return
	}
	username = strings.TrimSpace(username)
	if err := s.cache.Del(ctx, accessKeyPrefix+username).Err(); err != nil && s.logger != nil {
		s.logger.Warn("access cache invalidate failed",
			slog.String("username", username),
			slog.Any("error", err))
	}
}

// Warm preloads snapshots for the given accounts, reporting how many
// loaded cleanly. Individual failures are logged and skipped.
func (s *Service) Warm(ctx context.Context, usernames []string) int {
	warmed := 0
	for _, name := range usernames {
		if _, err := s.Load(ctx, name); err != nil {
			if s.logger != nil {
				s.logger.Debug("access warmup skip",
					slog.String("username", name),
					slog.Any("error", err))
			}
			continue
		}
		warmed++
	}
	return warmed
}

// RecentUsernames lists accounts active since the given time, newest
// first. Used by the warmup job to decide what to preload.
func (s *Service) RecentUsernames(ctx context.Context, since time.Time, limit int) ([]string, error) {
	return s.repo.RecentUsernames(ctx, since, limit)
}

func (s *Service) loadAndCache(ctx context.Context, username string) (*UserAccess, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	access, err := s.repo.GetUserAccess(ctx, username)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, access)
	return access, nil
}

func (s *Service) fromCache(ctx context.Context, username string) (*UserAccess, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, accessKeyPrefix+username).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Debug("access cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	var access UserAccess
	if err := json.Unmarshal(raw, &access); err != nil {
		if s.logger != nil {
			s.logger.Warn("access cache entry corrupt",
				slog.String("username", username),
				slog.Any("error", err))
		}
		return nil, false
	}
	return &access, true
}

func (s *Service) toCache(ctx context.Context, access *UserAccess) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(access)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, accessKeyPrefix+access.Username, raw, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Debug("access cache write failed", slog.Any("error", err))
	}
}
