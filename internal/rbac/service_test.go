package rbac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccessRepo struct {
	mu     sync.Mutex
	access map[string]*UserAccess
	recent []string
	delay  time.Duration
	calls  int
}

func (s *stubAccessRepo) GetUserAccess(_ context.Context, username string) (*UserAccess, error) {
	s.mu.Lock()
	s.calls++
	delay := s.delay
	access, ok := s.access[username]
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return access, nil
}

func (s *stubAccessRepo) RecentUsernames(_ context.Context, _ time.Time, limit int) ([]string, error) {
	if limit < len(s.recent) {
		return s.recent[:limit], nil
	}
	return s.recent, nil
}

func (s *stubAccessRepo) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newAccessRepo() *stubAccessRepo {
	return &stubAccessRepo{access: map[string]*UserAccess{
		"alice": {
			UserID: 1, Username: "alice",
			Roles: []RoleType{RolePlant}, PrimaryRole: RolePlant,
			Plants: []string{"1001", "1003"}, PrimaryPlant: "1001",
		},
		"jan": {
			UserID: 2, Username: "jan",
			Roles: []RoleType{RoleJVC}, PrimaryRole: RoleJVC,
		},
	}}
}

func newCacheClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestServiceLoadCachesSnapshot(t *testing.T) {
	mr, client := newCacheClient(t)
	repo := newAccessRepo()
	svc := NewService(repo, client, 30*time.Second, discardLogger())

	first, err := svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1003"}, first.Plants)
	assert.Equal(t, 1, repo.callCount())

	second, err := svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, first.Username, second.Username)
	assert.Equal(t, 1, repo.callCount(), "second load must come from cache")

	mr.FastForward(31 * time.Second)
	_, err = svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.callCount(), "expired entry reloads from the store")
}

func TestServiceLoadCollapsesConcurrentCalls(t *testing.T) {
	_, client := newCacheClient(t)
	repo := newAccessRepo()
	repo.delay = 30 * time.Millisecond
	svc := NewService(repo, client, time.Minute, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Load(context.Background(), "alice"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, repo.callCount(), "concurrent loads share one store round trip")
}

func TestServiceInvalidate(t *testing.T) {
	_, client := newCacheClient(t)
	repo := newAccessRepo()
	svc := NewService(repo, client, time.Minute, discardLogger())

	_, err := svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	svc.Invalidate(context.Background(), "alice")
	_, err = svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.callCount())
}

func TestServiceLoadUnknownUser(t *testing.T) {
	_, client := newCacheClient(t)
	svc := NewService(newAccessRepo(), client, time.Minute, discardLogger())

	_, err := svc.Load(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Load(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceLoadWithoutCache(t *testing.T) {
	repo := newAccessRepo()
	svc := NewService(repo, nil, time.Minute, discardLogger())

	_, err := svc.Load(context.Background(), "jan")
	require.NoError(t, err)
	_, err = svc.Load(context.Background(), "jan")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.callCount(), "no cache means every load hits the store")
}

func TestServiceWarm(t *testing.T) {
	_, client := newCacheClient(t)
	repo := newAccessRepo()
	svc := NewService(repo, client, time.Minute, discardLogger())

	warmed := svc.Warm(context.Background(), []string{"alice", "nobody", "jan"})
	assert.Equal(t, 2, warmed)

	// Both valid snapshots are now cache hits.
	before := repo.callCount()
	_, err := svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	_, err = svc.Load(context.Background(), "jan")
	require.NoError(t, err)
	assert.Equal(t, before, repo.callCount())
}

func TestServiceCorruptCacheEntryFallsBack(t *testing.T) {
	mr, client := newCacheClient(t)
	repo := newAccessRepo()
	svc := NewService(repo, client, time.Minute, discardLogger())

	require.NoError(t, mr.Set(accessKeyPrefix+"alice", "{not json"))
	access, err := svc.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", access.Username)
	assert.Equal(t, 1, repo.callCount())
}

func TestServiceLoadRepositoryFailure(t *testing.T) {
	repoErr := errors.New("connection refused")
	svc := NewService(&failingRepo{err: repoErr}, nil, time.Minute, discardLogger())

	_, err := svc.Load(context.Background(), "alice")
	require.ErrorIs(t, err, repoErr)
}

type failingRepo struct{ err error }

func (f *failingRepo) GetUserAccess(context.Context, string) (*UserAccess, error) {
	return nil, f.err
}

func (f *failingRepo) RecentUsernames(context.Context, time.Time, int) ([]string, error) {
	return nil, f.err
}
