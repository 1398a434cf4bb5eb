package backend

import (
	"context"
	"fmt"

	"github.com/shubham1172/durabletask-go/internal/helpers"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

// ActivityExecutor is the worker-side entry point for running one activity
// invocation.
type ActivityExecutor interface {
	ExecuteActivity(ctx context.Context, iid string, wi *ActivityWorkItem) (*protos.HistoryEvent, error)
}

type activityProcessor struct {
	be       Backend
	executor ActivityExecutor
	logger   Logger
}

// NewActivityWorker builds the generalized TaskWorker loop around an
// ActivityExecutor, mirroring NewOrchestrationWorker's structure.
func NewActivityWorker(be Backend, executor ActivityExecutor, logger Logger, opts ...NewTaskWorkerOptions) TaskWorker {
	processor := &activityProcessor{be: be, executor: executor, logger: logger}
	return NewTaskWorker(be, processor, logger, opts...)
}

func (*activityProcessor) Name() string { return "activity-processor" }

func (p *activityProcessor) FetchWorkItem(ctx context.Context) (WorkItem, error) {
	return p.be.GetActivityWorkItem(ctx)
}

// ProcessWorkItem runs the named activity and captures the outcome as a
// TaskCompleted/TaskFailed event ready for CompleteWorkItem to persist.
// Activities are at-least-once: a crash between ProcessWorkItem and
// CompleteWorkItem simply re-delivers the same ActivityWorkItem on
// AbandonWorkItem.
func (p *activityProcessor) ProcessWorkItem(ctx context.Context, cwi WorkItem) error {
	wi := cwi.(*ActivityWorkItem)
	ts := wi.NewEvent.GetTaskScheduled()
	if ts == nil {
		return fmt.Errorf("activity work item %s has no TaskScheduled event", wi.Description())
	}
	p.logger.Debugf("%v: running activity '%s' (task %d)", wi.InstanceID, ts.Name, wi.TaskID)

	result, err := p.executor.ExecuteActivity(ctx, string(wi.InstanceID), wi)
	if err != nil {
		details := &protos.TaskFailureDetails{
			ErrorType:    "Activity.ExecutionError",
			ErrorMessage: err.Error(),
		}
		wi.Result = helpers.NewTaskFailedEvent(-1, wi.TaskID, details)
		p.logger.Warnf("%v: activity '%s' (task %d) failed: %v", wi.InstanceID, ts.Name, wi.TaskID, err)
		return nil
	}
	wi.Result = result
	return nil
}

func (p *activityProcessor) CompleteWorkItem(ctx context.Context, cwi WorkItem) error {
	wi := cwi.(*ActivityWorkItem)
	return p.be.CompleteActivityWorkItem(ctx, wi)
}

func (p *activityProcessor) AbandonWorkItem(ctx context.Context, cwi WorkItem) error {
	wi := cwi.(*ActivityWorkItem)
	return p.be.AbandonActivityWorkItem(ctx, wi)
}
