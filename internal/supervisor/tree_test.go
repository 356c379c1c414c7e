// ChaseWhiteRabbit - Tabletop Dice Rolling Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chasewhiterabbit

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/chasewhiterabbit/internal/logging"
)

// testService counts starts and optionally fails a number of times first.
type testService struct {
	name     string
	starts   atomic.Int32
	failures int32
}

func (s *testService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *testService) String() string { return s.name }

func TestNewSupervisorTree_Defaults(t *testing.T) {
	t.Parallel()

	tree := NewSupervisorTree(logging.NewSlogLogger("supervisor"), TreeConfig{})
	assert.Equal(t, DefaultTreeConfig(), tree.config)

	tree = NewSupervisorTree(logging.NewSlogLogger("supervisor"), TreeConfig{FailureBackoff: time.Second})
	assert.Equal(t, time.Second, tree.config.FailureBackoff)
	assert.Equal(t, 5.0, tree.config.FailureThreshold)
}

func TestSupervisorTree_RunsBothLayers(t *testing.T) {
	t.Parallel()

	tree := NewSupervisorTree(logging.NewSlogLogger("supervisor"), TreeConfig{ShutdownTimeout: time.Second})
	storage := &testService{name: "storage"}
	api := &testService{name: "api"}
	tree.AddStorageService(storage)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	assert.Eventually(t, func() bool {
		return storage.starts.Load() == 1 && api.starts.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop")
	}

	report, err := tree.UnstoppedServiceReport()
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestSupervisorTree_RestartsFailedService(t *testing.T) {
	t.Parallel()

	tree := NewSupervisorTree(logging.NewSlogLogger("supervisor"), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := &testService{name: "flaky", failures: 2}
	tree.AddStorageService(flaky)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	assert.Eventually(t, func() bool { return flaky.starts.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-errCh
}
