package api

import "github.com/shubham1172/durabletask-go/internal/protos"

// RuntimeStatus is the client-facing mirror of protos.OrchestrationStatus:
// Pending, Running, Suspended, Completed, Failed, Terminated, Canceled, or
// ContinuedAsNew.
type RuntimeStatus = protos.OrchestrationStatus

const (
	RUNTIME_STATUS_RUNNING          = protos.OrchestrationStatus_ORCHESTRATION_STATUS_RUNNING
	RUNTIME_STATUS_COMPLETED        = protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED
	RUNTIME_STATUS_CONTINUED_AS_NEW = protos.OrchestrationStatus_ORCHESTRATION_STATUS_CONTINUED_AS_NEW
	RUNTIME_STATUS_FAILED           = protos.OrchestrationStatus_ORCHESTRATION_STATUS_FAILED
	RUNTIME_STATUS_CANCELED         = protos.OrchestrationStatus_ORCHESTRATION_STATUS_CANCELED
	RUNTIME_STATUS_TERMINATED       = protos.OrchestrationStatus_ORCHESTRATION_STATUS_TERMINATED
	RUNTIME_STATUS_PENDING          = protos.OrchestrationStatus_ORCHESTRATION_STATUS_PENDING
	RUNTIME_STATUS_SUSPENDED        = protos.OrchestrationStatus_ORCHESTRATION_STATUS_SUSPENDED
)
