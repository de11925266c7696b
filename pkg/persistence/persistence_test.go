package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/convoy-tracker/pkg/domain"
)

func TestNoopStoreAlwaysSucceeds(t *testing.T) {
	s := NoopStore{}
	assert.NoError(t, s.RegisterDrone(context.Background(), domain.NewDrone("R1", "Reaper")))
	assert.True(t, s.HealthCheck(context.Background()))
}

func TestRecorderCapturesCalls(t *testing.T) {
	r := &Recorder{}
	err := r.RegisterDrone(context.Background(), domain.NewDrone("R1", "Reaper"))
	require.NoError(t, err)
	require.Len(t, r.Calls, 1)
	assert.Equal(t, "RegisterDrone", r.Calls[0].Method)
}

func TestRecorderFailureMode(t *testing.T) {
	r := &Recorder{Fail: true}
	err := r.RegisterDrone(context.Background(), domain.NewDrone("R1", "Reaper"))
	assert.Error(t, err)
	assert.False(t, r.HealthCheck(context.Background()))
}
