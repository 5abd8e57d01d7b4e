package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bom/internal/core/domain"
)

func TestScanLifecycle_Advance(t *testing.T) {
	l := domain.NewScanLifecycle(nil)
	assert.Equal(t, domain.StateInitialized, l.State())

	require.NoError(t, l.Advance(domain.StateDispatching))

	err := l.Advance(domain.StateMerging)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, domain.StateDispatching, l.State())

	err = l.Advance(domain.StateInitialized)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestScanLifecycle_ReachAtLeastStepsThroughEveryStage(t *testing.T) {
	var seen []string
	l := domain.NewScanLifecycle(func(from, to domain.ScanState) {
		seen = append(seen, from.String()+">"+to.String())
	})

	l.ReachAtLeast(domain.StateMerging)
	l.ReachAtLeast(domain.StateSynthesizing)

	assert.Equal(t, []string{
		"initialized>dispatching",
		"dispatching>synthesizing",
		"synthesizing>merging",
	}, seen)
	assert.Equal(t, domain.StateMerging, l.State())
}

func TestScanLifecycle_Fail(t *testing.T) {
	l := domain.NewScanLifecycle(nil)
	require.NoError(t, l.Advance(domain.StateDispatching))

	cause := errors.New("boom")
	l.Fail(cause)
	assert.Equal(t, domain.StateFinalized, l.State())
	assert.Equal(t, cause, l.Err())

	err := l.Advance(domain.StateSynthesizing)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	l.Fail(errors.New("second"))
	assert.Equal(t, cause, l.Err())
}
