package grpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

func TestToStatus_MapsSentinelErrorsToCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"nil", nil, codes.OK},
		{"not found", backend.ErrInstanceNotFound, codes.NotFound},
		{"already started", backend.ErrAlreadyStarted, codes.AlreadyExists},
		{"unsupported", backend.ErrUnsupported, codes.Unimplemented},
		{"already completed", backend.ErrAlreadyCompleted, codes.FailedPrecondition},
		{"duplicate event", backend.ErrDuplicateEvent, codes.FailedPrecondition},
		{"unrecognized", assert.AnError, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := toStatus(tc.err)
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			st, ok := status.FromError(err)
			if !assert.True(t, ok) {
				return
			}
			assert.Equal(t, tc.code, st.Code())
		})
	}
}

func TestToOrchestrationState_OmitsIOUnlessRequested(t *testing.T) {
	now := time.Now()
	meta := &api.OrchestrationMetadata{
		InstanceID:             api.InstanceID("inst-1"),
		Name:                   "MyOrchestration",
		RuntimeStatus:          protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED,
		CreatedAt:              now,
		LastUpdatedAt:          now,
		SerializedInput:        `{"x":1}`,
		SerializedOutput:       `{"y":2}`,
		SerializedCustomStatus: `"custom"`,
	}

	withoutIO := toOrchestrationState(meta, false)
	assert.Equal(t, "inst-1", withoutIO.InstanceId)
	assert.Nil(t, withoutIO.Input)
	assert.Nil(t, withoutIO.Output)
	assert.Equal(t, `"custom"`, withoutIO.CustomStatus.GetValue())

	withIO := toOrchestrationState(meta, true)
	assert.Equal(t, `{"x":1}`, withIO.Input.GetValue())
	assert.Equal(t, `{"y":2}`, withIO.Output.GetValue())
}
