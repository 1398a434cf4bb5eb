package backend

import (
	"strconv"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

// WorkItem is the common interface TaskWorker's generic loop dispatches on;
// the two variants below are orchestration and activity work.
type WorkItem interface {
	Description() string
}

// OrchestrationWorkItem is what a worker consumes to run one orchestration
// turn.
type OrchestrationWorkItem struct {
	InstanceID api.InstanceID
	NewEvents  []*protos.HistoryEvent
	State      *RuntimeState
	Parent     *ParentPointer
	LockedBy   string
	PopReceipt string
	Properties map[string]interface{}

	// Outbound accumulates the messages ApplyActions produced across every
	// continue-as-new iteration of the current turn, for
	// CompleteOrchestrationWorkItem to persist atomically.
	Outbound *OutboundMessages
	// ContinuedAsNew records whether the final ApplyActions call in this
	// turn replaced State with a fresh execution.
	ContinuedAsNew bool
}

func (wi *OrchestrationWorkItem) Description() string {
	return "orchestration:" + string(wi.InstanceID)
}

// ActivityWorkItem is what a worker consumes to run one activity invocation.
type ActivityWorkItem struct {
	InstanceID api.InstanceID
	Parent     *protos.OrchestrationInstance
	NewEvent   *protos.HistoryEvent // TaskScheduled
	TaskID     int32
	Result     *protos.HistoryEvent // TaskCompleted/TaskFailed once processed
	LockedBy   string
	PopReceipt string
}

func (wi *ActivityWorkItem) Description() string {
	return "activity:" + string(wi.InstanceID) + "#" + strconv.Itoa(int(wi.TaskID))
}
