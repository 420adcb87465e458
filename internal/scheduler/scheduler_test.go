package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/rtspscout/internal/config"
	"github.com/anstrom/rtspscout/internal/discovery"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/report"
)

type fakeDiscoverer struct {
	calls   atomic.Int32
	err     error
	block   chan struct{}
	started chan struct{}
	once    sync.Once
	runID   atomic.Value
}

func (f *fakeDiscoverer) Discover(ctx context.Context) (*report.ScanReport, error) {
	f.calls.Add(1)
	if id, ok := discovery.RunIDFromContext(ctx); ok {
		f.runID.Store(id)
	}
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return report.New(), nil
}

func newTestScheduler(t *testing.T, d Discoverer, cfg config.WatchConfig) *Scheduler {
	t.Helper()
	s, err := NewScheduler(d, cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	return s
}

func TestNewSchedulerValidatesSchedule(t *testing.T) {
	_, err := NewScheduler(&fakeDiscoverer{}, config.WatchConfig{Schedule: "every so often"})
	assert.Error(t, err)

	for _, schedule := range []string{"@every 15m", "@hourly", "*/5 * * * *"} {
		_, err := NewScheduler(&fakeDiscoverer{}, config.WatchConfig{Schedule: schedule})
		assert.NoError(t, err, schedule)
	}
}

func TestRunNowKeepsLatestResults(t *testing.T) {
	d := &fakeDiscoverer{}
	s := newTestScheduler(t, d, config.WatchConfig{Schedule: "@every 1h"})

	_, ok := s.Latest()
	assert.False(t, ok)

	run, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.True(t, run.Succeeded())
	assert.Equal(t, TriggerManual, run.Trigger)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	good, ok := s.LatestReport()
	require.True(t, ok)
	assert.Equal(t, run.ID, good.ID)

	d.err = stderrors.New("capture error: boom")
	failed, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.False(t, failed.Succeeded())

	latest, _ := s.Latest()
	assert.Equal(t, failed.ID, latest.ID)
	good, _ = s.LatestReport()
	assert.Equal(t, run.ID, good.ID, "failed runs do not replace the last report")
}

func TestRunIDReachesDiscoverer(t *testing.T) {
	d := &fakeDiscoverer{}
	s := newTestScheduler(t, d, config.WatchConfig{Schedule: "@every 1h"})

	run, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.ID.String(), d.runID.Load())
}

func TestSubscribe(t *testing.T) {
	s := newTestScheduler(t, &fakeDiscoverer{}, config.WatchConfig{Schedule: "@every 1h"})

	var got []*Run
	unsubscribe := s.Subscribe(func(run *Run) { got = append(got, run) })

	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	unsubscribe()
	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRunsDoNotOverlap(t *testing.T) {
	d := &fakeDiscoverer{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(t, d, config.WatchConfig{Schedule: "@every 1h"})
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	require.NoError(t, s.Trigger())
	<-d.started

	assert.ErrorIs(t, s.Trigger(), ErrRunInProgress)
	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(d.block)
	assert.Eventually(t, func() bool {
		_, ok := s.Latest()
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestStartAndStop(t *testing.T) {
	d := &fakeDiscoverer{}
	s := newTestScheduler(t, d, config.WatchConfig{Schedule: "@every 1h", RunOnStart: true})

	assert.ErrorIs(t, s.Trigger(), ErrNotRunning)
	assert.True(t, s.NextRun().IsZero())

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	assert.Eventually(t, func() bool {
		run, ok := s.Latest()
		return ok && run.Trigger == TriggerStartup
	}, time.Second, 10*time.Millisecond)
	assert.False(t, s.NextRun().IsZero())

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, s.NextRun().IsZero())
	require.NoError(t, s.Stop(context.Background()))
}

func TestStopCancelsActiveRun(t *testing.T) {
	d := &fakeDiscoverer{block: make(chan struct{}), started: make(chan struct{})}
	s := newTestScheduler(t, d, config.WatchConfig{Schedule: "@every 1h", RunOnStart: true})
	require.NoError(t, s.Start())
	<-d.started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	run, ok := s.Latest()
	require.True(t, ok)
	assert.ErrorIs(t, run.Err, context.Canceled)
}

func TestTriggerRacingStop(t *testing.T) {
	for n := 0; n < 20; n++ {
		d := &fakeDiscoverer{}
		s := newTestScheduler(t, d, config.WatchConfig{Schedule: "@every 1h"})
		require.NoError(t, s.Start())

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 50; k++ {
					err := s.Trigger()
					if err != nil && !stderrors.Is(err, ErrRunInProgress) && !stderrors.Is(err, ErrNotRunning) {
						t.Errorf("unexpected trigger error: %v", err)
					}
				}
			}()
		}

		require.NoError(t, s.Stop(context.Background()))
		wg.Wait()

		// Every accepted trigger finished before Stop returned.
		require.True(t, s.runMu.TryLock())
		s.runMu.Unlock()
		assert.ErrorIs(t, s.Trigger(), ErrNotRunning)
	}
}
