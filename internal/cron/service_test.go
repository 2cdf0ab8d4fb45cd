package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonaskin/storefront-backend/pkg/logger"
	"github.com/sonaskin/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquired++
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type testJob struct {
	name  string
	err   error
	every time.Duration
	runs  int
}

func (t *testJob) Name() string         { return t.name }
func (t *testJob) Every() time.Duration { return t.every }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type clock struct{ at time.Time }

func (c *clock) now() time.Time { return c.at }

func newTestService(t *testing.T, lock Lock, c *clock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		Now:      c.now,
	})
	require.NoError(t, err)
	return svc
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "success"}
	failing := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, &clock{at: time.Now()}, ok, failing)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail: boom")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, lock.released)
}

func TestServiceRunOnceSkipsWhenLocked(t *testing.T) {
	job := &testJob{name: "contact-refresh"}
	svc := newTestService(t, &fakeLock{held: true}, &clock{at: time.Now()}, job)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestServiceRunsJobsOnTheirOwnCadence(t *testing.T) {
	c := &clock{at: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	frequent := &testJob{name: "contact-refresh", every: 6 * time.Hour}
	daily := &testJob{name: "outbox-retention"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, c, frequent, daily)

	require.NoError(t, svc.RunOnce(context.Background()))
	c.at = c.at.Add(time.Hour)
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, lock.acquired, "nothing due should not touch the lock")

	c.at = c.at.Add(5 * time.Hour)
	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 2, frequent.runs)
	assert.Equal(t, 1, daily.runs)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
