package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrchestrator(ctx OrchestrationContext) (interface{}, error) { return nil, nil }
func sampleActivity(ctx ActivityContext) (interface{}, error)         { return nil, nil }

func TestRegistry_AddOrchestrator_DerivesNameFromFunction(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddOrchestrator(sampleOrchestrator))

	fn, ok := r.GetOrchestrator("sampleOrchestrator")
	assert.True(t, ok)
	assert.NotNil(t, fn)
}

func TestRegistry_AddOrchestratorN_RejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddOrchestratorN("Greet", sampleOrchestrator))
	err := r.AddOrchestratorN("Greet", sampleOrchestrator)
	assert.Error(t, err)
}

func TestRegistry_AddOrchestratorN_RejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	err := r.AddOrchestratorN("", sampleOrchestrator)
	assert.Error(t, err)
}

func TestRegistry_AddActivity_DerivesNameFromFunction(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddActivity(sampleActivity))

	fn, ok := r.GetActivity("sampleActivity")
	assert.True(t, ok)
	assert.NotNil(t, fn)
}

func TestRegistry_GetOrchestrator_UnknownNameReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.GetOrchestrator("DoesNotExist")
	assert.False(t, ok)
}

func TestRegistry_AddActivityN_RejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddActivityN("DoWork", sampleActivity))
	err := r.AddActivityN("DoWork", sampleActivity)
	assert.Error(t, err)
}
