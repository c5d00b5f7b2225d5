package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nim65s/dynamic-graph/metric"
)

// waitFor polls cond until it returns true or the timeout expires
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func TestService_Creation(t *testing.T) {
	service := NewBaseService("test-service",
		WithMetrics(metric.NewMetricsRegistry()))

	assert.NotNil(t, service)
	assert.Equal(t, "test-service", service.Name())
	assert.NotEmpty(t, service.ID())
	assert.Equal(t, StatusStopped, service.Status())
	assert.False(t, service.IsHealthy())

	// Each instance gets its own id
	other := NewBaseService("test-service")
	assert.NotEqual(t, service.ID(), other.ID())
}

func TestService_Lifecycle(t *testing.T) {
	service := NewBaseService("test-service",
		WithMetrics(metric.NewMetricsRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := service.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, service.Status())

	// Starting again is a no-op
	err = service.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, service.Status())

	err = service.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, service.Status())

	// Stopping again is a no-op
	err = service.Stop(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, service.Status())
}

func TestService_CustomHealthCheck(t *testing.T) {
	var checkCalls atomic.Int64
	var failing atomic.Bool

	service := NewBaseService("test-service",
		WithHealthInterval(20*time.Millisecond),
		WithHealthCheck(func() error {
			checkCalls.Add(1)
			if failing.Load() {
				return errors.New("check failed")
			}
			return nil
		}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, service.Start(ctx))
	defer func() { _ = service.Stop(time.Second) }()

	require.True(t, waitFor(service.IsHealthy, 2*time.Second),
		"service should become healthy after a passing check")

	failing.Store(true)
	require.True(t, waitFor(func() bool { return !service.IsHealthy() }, 2*time.Second),
		"service should become unhealthy after a failing check")

	info := service.GetStatus()
	assert.Positive(t, info.HealthChecks)
	assert.Positive(t, info.FailedHealthChecks)
}

func TestService_OnHealthChange(t *testing.T) {
	var transitions atomic.Int64

	service := NewBaseService("test-service",
		WithHealthInterval(20*time.Millisecond),
		WithHealthCheck(func() error { return nil }),
		OnHealthChange(func(healthy bool) {
			if healthy {
				transitions.Add(1)
			}
		}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, service.Start(ctx))
	defer func() { _ = service.Stop(time.Second) }()

	require.True(t, waitFor(func() bool { return transitions.Load() > 0 }, 2*time.Second),
		"health change callback should fire on the unhealthy->healthy transition")
}

func TestService_ContextCancellation(t *testing.T) {
	service := NewBaseService("test-service")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, service.Start(ctx))
	assert.Equal(t, StatusRunning, service.Status())

	cancel()

	require.True(t, waitFor(func() bool { return service.Status() == StatusStopped }, 2*time.Second),
		"service should stop when the parent context is canceled")
	assert.False(t, service.IsHealthy())
}

func TestService_MarkFailed(t *testing.T) {
	service := NewBaseService("test-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, service.Start(ctx))

	service.MarkFailed("evaluation loop stopped on error")

	assert.Equal(t, StatusFailed, service.Status())
	assert.False(t, service.IsHealthy())

	status := service.Health()
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "evaluation loop stopped on error", status.Message)
}

func TestService_HealthStates(t *testing.T) {
	service := NewBaseService("test-service")

	// Stopped service reports unhealthy
	status := service.Health()
	assert.True(t, status.IsUnhealthy())
	assert.Equal(t, "test-service", status.Component)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))

	require.True(t, waitFor(service.IsHealthy, 2*time.Second))
	status = service.Health()
	assert.True(t, status.IsHealthy())

	require.NoError(t, service.Stop(time.Second))
	status = service.Health()
	assert.True(t, status.IsUnhealthy())
}

func TestService_GetStatus(t *testing.T) {
	service := NewBaseService("test-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, service.Start(ctx))
	defer func() { _ = service.Stop(time.Second) }()

	before := time.Now()
	service.RecordActivity()

	info := service.GetStatus()
	assert.Equal(t, "test-service", info.Name)
	assert.Equal(t, service.ID(), info.ID)
	assert.Equal(t, StatusRunning, info.Status)
	assert.False(t, info.StartTime.IsZero())
	assert.False(t, info.LastActivity.Before(before.Truncate(time.Millisecond)))
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusStopped, "stopped"},
		{StatusStarting, "starting"},
		{StatusRunning, "running"},
		{StatusStopping, "stopping"},
		{StatusFailed, "failed"},
		{Status(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}
