package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticLister struct {
	orgs []uuid.UUID
	err  error
}

func (l staticLister) ListOrganizations(context.Context) ([]uuid.UUID, error) {
	return l.orgs, l.err
}

func TestCacheWarmer_WarmsEveryOrganization(t *testing.T) {
	orgs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	runner := &recordingRunner{}
	s, err := NewPool(testPoolConfig(), runner, zaptest.NewLogger(t))
	require.NoError(t, err)

	w := NewCacheWarmer(time.Hour, staticLister{orgs: orgs}, s, zaptest.NewLogger(t))
	require.NoError(t, w.Start(context.Background()))
	defer func() { require.NoError(t, w.Stop(context.Background())) }()

	assert.Eventually(t, func() bool { return len(runner.done()) == 3 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, orgs, runner.done())
}

func TestCacheWarmer_RepeatsOnInterval(t *testing.T) {
	runner := &recordingRunner{}
	s, err := NewPool(testPoolConfig(), runner, nil)
	require.NoError(t, err)

	w := NewCacheWarmer(20*time.Millisecond, staticLister{orgs: []uuid.UUID{uuid.New()}}, s, nil)
	require.NoError(t, w.Start(context.Background()))
	defer func() { _ = w.Stop(context.Background()) }()

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestCacheWarmer_ListFailure(t *testing.T) {
	s, err := NewPool(testPoolConfig(), &recordingRunner{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	w := NewCacheWarmer(time.Hour, staticLister{err: errors.New("db down")}, s, nil)
	assert.Zero(t, w.WarmAll(context.Background()))
}

func TestCacheWarmer_StopsAtFullQueue(t *testing.T) {
	cfg := testPoolConfig()
	cfg.Workers = 1
	cfg.QueueSize = 2

	release := make(chan struct{})
	s, err := NewPool(cfg, blockingRunner(release), nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	defer close(release)

	orgs := make([]uuid.UUID, 10)
	for i := range orgs {
		orgs[i] = uuid.New()
	}
	w := NewCacheWarmer(time.Hour, staticLister{orgs: orgs}, s, nil)
	queued := w.WarmAll(context.Background())
	assert.Less(t, queued, len(orgs))
	assert.GreaterOrEqual(t, queued, 2)
}

func TestCacheWarmer_SkipsPendingOrganizations(t *testing.T) {
	release := make(chan struct{})
	s, err := NewPool(testPoolConfig(), blockingRunner(release), nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	defer close(release)

	orgs := []uuid.UUID{uuid.New(), uuid.New()}
	w := NewCacheWarmer(time.Hour, staticLister{orgs: orgs}, s, nil)
	assert.Equal(t, 2, w.WarmAll(context.Background()))
	assert.Zero(t, w.WarmAll(context.Background()), "previous round still running")
}

func TestCacheWarmer_StopWithoutStart(t *testing.T) {
	s, err := NewPool(testPoolConfig(), &recordingRunner{}, nil)
	require.NoError(t, err)
	w := NewCacheWarmer(time.Minute, staticLister{}, s, nil)
	assert.NoError(t, w.Stop(context.Background()))
}
