package protos

import (
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// OrchestratorAction is a tagged variant over everything a worker turn may
// emit. The Id field always equals the eventId of the history event the hub
// will produce when it applies the action.
type OrchestratorAction struct {
	Id int32

	ScheduleTask           *ScheduleTaskAction
	CreateTimer            *CreateTimerAction
	CreateSubOrchestration *CreateSubOrchestrationAction
	SendEvent              *SendEventAction
	CompleteOrchestration  *CompleteOrchestrationAction
}

func (a *OrchestratorAction) GetScheduleTask() *ScheduleTaskAction { if a == nil { return nil }; return a.ScheduleTask }
func (a *OrchestratorAction) GetCreateTimer() *CreateTimerAction { if a == nil { return nil }; return a.CreateTimer }
func (a *OrchestratorAction) GetCreateSubOrchestration() *CreateSubOrchestrationAction { if a == nil { return nil }; return a.CreateSubOrchestration }
func (a *OrchestratorAction) GetSendEvent() *SendEventAction { if a == nil { return nil }; return a.SendEvent }
func (a *OrchestratorAction) GetCompleteOrchestration() *CompleteOrchestrationAction { if a == nil { return nil }; return a.CompleteOrchestration }

type ScheduleTaskAction struct {
	Name    string
	Version *wrapperspb.StringValue
	Input   *wrapperspb.StringValue
}

type CreateTimerAction struct {
	FireAt *timestamppb.Timestamp
}

type CreateSubOrchestrationAction struct {
	InstanceId string
	Name       string
	Version    *wrapperspb.StringValue
	Input      *wrapperspb.StringValue
	Tags       map[string]string
}

type SendEventAction struct {
	InstanceId string
	Name       string
	Input      *wrapperspb.StringValue
}

type CompleteOrchestrationAction struct {
	OrchestrationStatus OrchestrationStatus
	Result              *wrapperspb.StringValue
	FailureDetails      *TaskFailureDetails
	CarryoverEvents     []*HistoryEvent
	NewVersion          *wrapperspb.StringValue
}
