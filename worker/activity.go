package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
	"github.com/shubham1172/durabletask-go/task"
)

// ActivityRunner adapts a task.Registry into backend.ActivityExecutor (spec
// §4.6): look up the named activity, invoke it once, and translate its
// return value or error into the TaskCompleted/TaskFailed event the caller
// will attach to the ActivityWorkItem.
type ActivityRunner struct {
	Registry *task.Registry
}

// NewActivityRunner builds the worker-side ActivityExecutor.
func NewActivityRunner(registry *task.Registry) *ActivityRunner {
	return &ActivityRunner{Registry: registry}
}

func (r *ActivityRunner) ExecuteActivity(ctx context.Context, iid string, wi *backend.ActivityWorkItem) (*protos.HistoryEvent, error) {
	ts := wi.NewEvent.GetTaskScheduled()
	if ts == nil {
		return nil, fmt.Errorf("worker: activity work item has no TaskScheduled event")
	}

	fn, ok := r.Registry.GetActivity(ts.Name)
	if !ok {
		details := &protos.TaskFailureDetails{
			ErrorType:      "Activity.NotRegistered",
			ErrorMessage:   fmt.Sprintf("no activity registered for %q", ts.Name),
			IsNonRetriable: true,
		}
		return helpers.NewTaskFailedEvent(-1, wi.TaskID, details), nil
	}

	actx := &activityContext{Context: ctx, instanceID: iid, taskID: wi.TaskID, input: []byte(ts.Input.GetValue())}
	output, err := fn(actx)
	if err != nil {
		details := &protos.TaskFailureDetails{
			ErrorType:    "Activity.Error",
			ErrorMessage: err.Error(),
		}
		return helpers.NewTaskFailedEvent(-1, wi.TaskID, details), nil
	}

	result, err := marshalOrNil(output)
	if err != nil {
		details := &protos.TaskFailureDetails{
			ErrorType:    "Activity.ResultMarshalError",
			ErrorMessage: err.Error(),
		}
		return helpers.NewTaskFailedEvent(-1, wi.TaskID, details), nil
	}
	return helpers.NewTaskCompletedEvent(-1, wi.TaskID, result), nil
}

// activityContext is the task.ActivityContext a running activity sees.
type activityContext struct {
	context.Context
	instanceID string
	taskID     int32
	input      []byte
}

func (a *activityContext) InstanceID() string { return a.instanceID }
func (a *activityContext) TaskID() int32      { return a.taskID }

func (a *activityContext) GetInput(v interface{}) error {
	if v == nil || len(a.input) == 0 {
		return nil
	}
	return json.Unmarshal(a.input, v)
}
