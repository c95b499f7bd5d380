package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/config"
)

type blockingJob struct {
	started chan struct{}
	release chan struct{}
}

func (j *blockingJob) Name() string { return "blocking" }

func (j *blockingJob) Run(_ context.Context, _ time.Time) error {
	close(j.started)
	<-j.release
	return nil
}

func TestSchedulerStop_IdleReturnsNil(t *testing.T) {
	s := New(config.SchedulerConfig{}, nil, nil, nil, nil, nil)
	s.Start()

	assert.NoError(t, s.Stop(context.Background()))
}

func TestSchedulerStop_ReturnsContextErrorWhileJobRunning(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	defer close(job.release)

	cfg := config.SchedulerConfig{RiverRefreshSpec: "@every 10ms"}
	s := New(cfg, job, nil, nil, nil, nil)
	s.Start()

	select {
	case <-job.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Stop(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchedulerRegister_InvalidSpecSkipped(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
	defer close(job.release)

	cfg := config.SchedulerConfig{RiverRefreshSpec: "not a cron spec"}
	s := New(cfg, job, nil, nil, nil, nil)
	s.Start()

	select {
	case <-job.started:
		t.Fatal("job with invalid spec should not run")
	case <-time.After(50 * time.Millisecond):
	}

	assert.NoError(t, s.Stop(context.Background()))
}
