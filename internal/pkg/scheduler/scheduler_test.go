package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/payments"
)

type countingReconciler struct {
	calls     int32
	olderThan atomic.Value
}

func (r *countingReconciler) ReconcilePending(_ context.Context, olderThan time.Duration) (*payments.ReconcileResult, error) {
	atomic.AddInt32(&r.calls, 1)
	r.olderThan.Store(olderThan)
	return &payments.ReconcileResult{}, nil
}

func TestStart_RunsReconciliation(t *testing.T) {
	r := &countingReconciler{}
	s, err := Start(r, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, s)
	defer func() { assert.NoError(t, s.Stop()) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&r.calls) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, reconcileGrace, r.olderThan.Load())
}

func TestStart_Disabled(t *testing.T) {
	s, err := Start(&countingReconciler{}, 0)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, s.Stop())
}
