package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics/mocks"
)

// MockJob implements the Job interface for testing
type MockJob struct {
	id       string
	jobType  string
	duration time.Duration
	err      error
	executed int32
}

func NewMockJob(id, jobType string, duration time.Duration, err error) *MockJob {
	return &MockJob{
		id:       id,
		jobType:  jobType,
		duration: duration,
		err:      err,
	}
}

func (m *MockJob) Execute(ctx context.Context) error {
	atomic.AddInt32(&m.executed, 1)
	if m.duration > 0 {
		select {
		case <-time.After(m.duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *MockJob) ID() string {
	return m.id
}

func (m *MockJob) Type() string {
	return m.jobType
}

func (m *MockJob) ExecutedCount() int32 {
	return atomic.LoadInt32(&m.executed)
}

func newTestPool(size int, opts ...Option) *Pool {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(Config{Size: size}, opts...)
}

func TestNewPool(t *testing.T) {
	t.Run("creates pool with configured size", func(t *testing.T) {
		assert.Equal(t, 5, newTestPool(5).Size())
	})

	t.Run("falls back to default size", func(t *testing.T) {
		assert.Equal(t, DefaultConfig().Size, newTestPool(0).Size())
	})
}

func TestRunExecutesAllJobs(t *testing.T) {
	pool := newTestPool(3)

	jobs := make([]Job, 10)
	mocksByIndex := make([]*MockJob, 10)
	for i := range jobs {
		mocksByIndex[i] = NewMockJob("job", "test", time.Millisecond, nil)
		jobs[i] = mocksByIndex[i]
	}

	require.NoError(t, pool.Run(context.Background(), jobs))
	for _, job := range mocksByIndex {
		assert.Equal(t, int32(1), job.ExecutedCount())
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	const limit = 4
	pool := newTestPool(limit)

	var running, peak int32
	jobs := make([]Job, 20)
	for i := range jobs {
		jobs[i] = NewJob("job", "test", func(ctx context.Context) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
	}

	require.NoError(t, pool.Run(context.Background(), jobs))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestRunFailsFast(t *testing.T) {
	pool := newTestPool(2)
	boom := errors.New("boom")

	slow := NewMockJob("slow", "test", 5*time.Second, nil)
	failing := NewMockJob("failing", "test", 0, boom)

	start := time.Now()
	err := pool.Run(context.Background(), []Job{slow, failing})

	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 2*time.Second, "failure cancels the other jobs")
}

func TestRunRecoversPanics(t *testing.T) {
	pool := newTestPool(2)

	err := pool.Run(context.Background(), []Job{
		NewJob("ok", "test", func(context.Context) error { return nil }),
		NewJob("bad", "path-test", func(context.Context) error { panic("index out of range") }),
	})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "bad", panicErr.JobID)
	assert.Equal(t, "path-test", panicErr.JobType)
	assert.Equal(t, "index out of range", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, "path-test job bad panicked: index out of range", panicErr.Error())
}

func TestRunEmpty(t *testing.T) {
	assert.NoError(t, newTestPool(1).Run(context.Background(), nil))
}

func TestRunRecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	recorder := mocks.NewMockRecorder(ctrl)

	recorder.EXPECT().RecordJob("probe", StatusSuccess, gomock.Any()).Times(2)
	recorder.EXPECT().RecordJob("probe", StatusFailure, gomock.Any()).Times(1)

	pool := newTestPool(1, WithMetrics(recorder))
	err := pool.Run(context.Background(), []Job{
		NewMockJob("a", "probe", 0, nil),
		NewMockJob("b", "probe", 0, nil),
		NewMockJob("c", "probe", 0, errors.New("refused")),
	})
	assert.Error(t, err)
}

func TestMapPreservesOrder(t *testing.T) {
	pool := newTestPool(8)
	items := []int{5, 1, 4, 2, 3}

	results, err := Map(context.Background(), pool, "square", items, func(_ context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * n, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{25, 1, 16, 4, 9}, results)
}

func TestMapReturnsFirstError(t *testing.T) {
	pool := newTestPool(2)
	bad := errors.New("bad item")

	results, err := Map(context.Background(), pool, "check", []string{"a", "b", "c"},
		func(_ context.Context, s string) (bool, error) {
			if s == "b" {
				return false, bad
			}
			return true, nil
		})

	assert.ErrorIs(t, err, bad)
	assert.Nil(t, results)
}
