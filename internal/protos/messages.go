package protos

import "google.golang.org/protobuf/types/known/wrapperspb"

// CreateInstanceRequest is the wire form api.NewOrchestrationOptions mutate
// before backend.Backend.CreateOrchestrationInstance is called.
type CreateInstanceRequest struct {
	InstanceId string
	Name       string
	Version    *wrapperspb.StringValue
	Input      string
	ScheduledStartTimestamp *wrapperspb.StringValue // RFC3339, optional
	OrchestrationIdReusePolicy *OrchestrationIdReusePolicy
	Tags       map[string]string
}

// OrchestrationIdReusePolicy controls createInstance's dedupe behavior:
// which statuses count as "already active" for a given instance ID.
type OrchestrationIdReusePolicy struct {
	OperationStatus []OrchestrationStatus
}

// CreateInstanceResponse echoes the instance id assigned to a newly created
// orchestration.
type CreateInstanceResponse struct {
	InstanceId string
}

// GetInstanceRequest / GetInstanceResponse back backend.TaskHubClient.FetchOrchestrationMetadata.
type GetInstanceRequest struct {
	InstanceId         string
	GetInputsAndOutputs bool
}

type GetInstanceResponse struct {
	Exists bool
	OrchestrationState *OrchestrationState
}

// OrchestrationState is the durable snapshot returned to clients.
type OrchestrationState struct {
	InstanceId     string
	Name           string
	OrchestrationStatus OrchestrationStatus
	CreatedTimestamp   *wrapperspb.StringValue
	LastUpdatedTimestamp *wrapperspb.StringValue
	Input          *wrapperspb.StringValue
	Output         *wrapperspb.StringValue
	CustomStatus   *wrapperspb.StringValue
	FailureDetails *TaskFailureDetails
}

// RaiseEventRequest backs TaskHubClient.RaiseEvent.
type RaiseEventRequest struct {
	InstanceId string
	Name       string
	Input      *wrapperspb.StringValue
}

// TerminateRequest backs TaskHubClient.TerminateOrchestration.
type TerminateRequest struct {
	InstanceId string
	Output     *wrapperspb.StringValue
	Recursive  bool
}

// SuspendRequest / ResumeRequest back the admin suspend/resume surface.
type SuspendRequest struct {
	InstanceId string
	Reason     *wrapperspb.StringValue
}

type ResumeRequest struct {
	InstanceId string
	Reason     *wrapperspb.StringValue
}

// PurgeInstancesRequest backs backend.Backend.PurgeOrchestrationState.
type PurgeInstancesRequest struct {
	InstanceId string
	Filter     *PurgeInstanceFilter
}

type PurgeInstanceFilter struct {
	CreatedTimeFrom *wrapperspb.StringValue
	CreatedTimeTo   *wrapperspb.StringValue
	Statuses        []OrchestrationStatus
}

type PurgeInstancesResponse struct {
	DeletedInstanceCount int32
}

// QueryInstancesRequest / Response back backend.Backend.QueryOrchestrationStates.
type QueryInstancesRequest struct {
	Filter        *InstanceQuery
	PageSize      int32
	ContinuationToken string
}

type InstanceQuery struct {
	Statuses        []OrchestrationStatus
	CreatedTimeFrom *wrapperspb.StringValue
	CreatedTimeTo   *wrapperspb.StringValue
	TaskHubNames    []string
	InstanceIdPrefix *wrapperspb.StringValue
	FetchInputsAndOutputs bool
}

type QueryInstancesResponse struct {
	OrchestrationState []*OrchestrationState
	ContinuationToken  string
}

// ActivityRequest / ActivityResponse are the payloads exchanged over the
// workItemStream for ActivityWorkItem.
type ActivityRequest struct {
	Name             string
	Version          *wrapperspb.StringValue
	Input            *wrapperspb.StringValue
	OrchestrationInstance *OrchestrationInstance
	TaskId           int32
}

type ActivityResponse struct {
	InstanceId string
	TaskId     int32
	Result     *wrapperspb.StringValue
	FailureDetails *TaskFailureDetails
}

// OrchestratorRequest / OrchestratorResponse are the payloads exchanged over
// the workItemStream for OrchestratorWorkItem.
type OrchestratorRequest struct {
	InstanceId      string
	ExecutionId     *wrapperspb.StringValue
	PastEvents      []*HistoryEvent
	NewEvents       []*HistoryEvent
	EntityParameters *OrchestratorEntityParameters
	RequiresHistoryStreaming bool
}

type OrchestratorEntityParameters struct{}

type OrchestratorResponse struct {
	InstanceId   string
	Actions      []*OrchestratorAction
	CustomStatus *wrapperspb.StringValue
	CompletionToken string
}

// WorkItem is the tagged envelope a worker reads off workItemStream: exactly
// one of OrchestratorRequest, ActivityRequest, or HealthPing is set.
type WorkItem struct {
	OrchestratorRequest *OrchestratorRequest
	ActivityRequest     *ActivityRequest
	HealthPing          *HealthPing
}

// HealthPing keeps the bidirectional stream alive and lets the worker detect
// a severed connection quickly; it carries no orchestration semantics.
type HealthPing struct{}
