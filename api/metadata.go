package api

import (
	"time"

	"github.com/shubham1172/durabletask-go/internal/protos"
)

// OrchestrationMetadata is the read model returned by
// TaskHubClient.FetchOrchestrationMetadata and friends.
type OrchestrationMetadata struct {
	InstanceID     InstanceID
	Name           string
	RuntimeStatus  protos.OrchestrationStatus
	CreatedAt      time.Time
	LastUpdatedAt  time.Time
	SerializedInput  string
	SerializedOutput string
	SerializedCustomStatus string
	FailureDetails *protos.TaskFailureDetails
}

// IsComplete reports whether the orchestration has reached any terminal
// status, used by client.go's waitForOrchestrationCondition.
func (m *OrchestrationMetadata) IsComplete() bool {
	if m == nil {
		return false
	}
	return m.RuntimeStatus.IsTerminal()
}

// IsRunning reports whether the orchestration is actively executing (i.e.
// has moved out of Pending but not yet reached a terminal status).
func (m *OrchestrationMetadata) IsRunning() bool {
	if m == nil {
		return false
	}
	return m.RuntimeStatus == protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING
}
