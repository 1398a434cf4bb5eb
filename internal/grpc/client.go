package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/protos"
)

// TaskHubGrpcWorker is the worker-side counterpart of TaskHubGrpcServer: it
// opens workItemStream against a sidecar, hands each received WorkItem to
// the registered OrchestratorExecutor/ActivityExecutor, and reports the
// result back over CompleteOrchestratorTask/CompleteActivityTask.
//
// Unlike the in-process backend.TaskWorker loops in backend/worker.go, there
// is exactly one of these per stream: the sidecar, not this worker, decides
// how many work items are in flight at once.
type TaskHubGrpcWorker struct {
	client     TaskHubSidecarClient
	orch       backend.OrchestratorExecutor
	activities backend.ActivityExecutor
	logger     backend.Logger
}

// NewTaskHubGrpcWorker builds a worker that drives cc's workItemStream.
func NewTaskHubGrpcWorker(cc grpc.ClientConnInterface, orch backend.OrchestratorExecutor, activities backend.ActivityExecutor, logger backend.Logger) *TaskHubGrpcWorker {
	if logger == nil {
		logger = backend.DefaultLogger()
	}
	return &TaskHubGrpcWorker{
		client:     NewTaskHubSidecarClient(cc),
		orch:       orch,
		activities: activities,
		logger:     logger,
	}
}

// Run opens workItemStream and processes work items until ctx is canceled
// or the stream ends. Each received item is handled inline; a sidecar that
// wants concurrency opens multiple streams, since how many items are
// offered concurrently is enforced sidecar-side.
func (w *TaskHubGrpcWorker) Run(ctx context.Context) error {
	stream, err := w.client.GetWorkItems(ctx, &GetWorkItemsRequest{})
	if err != nil {
		return fmt.Errorf("grpc worker: failed to open work item stream: %w", err)
	}

	for {
		wi, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("grpc worker: stream recv failed: %w", err)
		}
		w.dispatch(ctx, wi)
	}
}

func (w *TaskHubGrpcWorker) dispatch(ctx context.Context, wi *protos.WorkItem) {
	switch {
	case wi.OrchestratorRequest != nil:
		w.runOrchestration(ctx, wi.OrchestratorRequest)
	case wi.ActivityRequest != nil:
		w.runActivity(ctx, wi.ActivityRequest)
	case wi.HealthPing != nil:
		// no-op: keeps the stream alive.
	default:
		w.logger.Warnf("grpc worker: received empty work item")
	}
}

func (w *TaskHubGrpcWorker) runOrchestration(ctx context.Context, req *protos.OrchestratorRequest) {
	results, err := w.orch.ExecuteOrchestrator(ctx, api.InstanceID(req.InstanceId), req.PastEvents, req.NewEvents)
	if err != nil {
		w.logger.Errorf("grpc worker: orchestrator execution failed for %s: %v", req.InstanceId, err)
		if _, completeErr := w.client.AbandonOrchestratorTask(ctx, req); completeErr != nil {
			w.logger.Errorf("grpc worker: failed to abandon orchestration %s: %v", req.InstanceId, completeErr)
		}
		return
	}
	if _, err := w.client.CompleteOrchestratorTask(ctx, results.Response); err != nil {
		w.logger.Errorf("grpc worker: failed to complete orchestration %s: %v", req.InstanceId, err)
	}
}

func (w *TaskHubGrpcWorker) runActivity(ctx context.Context, req *protos.ActivityRequest) {
	var instanceID string
	if req.OrchestrationInstance != nil {
		instanceID = req.OrchestrationInstance.InstanceId
	}
	awi := &backend.ActivityWorkItem{
		InstanceID: api.InstanceID(instanceID),
		Parent:     req.OrchestrationInstance,
		NewEvent: &protos.HistoryEvent{
			EventId: req.TaskId,
			TaskScheduled: &protos.TaskScheduledEvent{
				Name:    req.Name,
				Version: req.Version,
				Input:   req.Input,
			},
		},
		TaskID: req.TaskId,
	}

	result, err := w.activities.ExecuteActivity(ctx, instanceID, awi)
	if err != nil {
		w.logger.Errorf("grpc worker: activity execution failed for %s#%d: %v", instanceID, req.TaskId, err)
		if _, completeErr := w.client.AbandonActivityTask(ctx, req); completeErr != nil {
			w.logger.Errorf("grpc worker: failed to abandon activity %s#%d: %v", instanceID, req.TaskId, completeErr)
		}
		return
	}

	resp := &protos.ActivityResponse{InstanceId: instanceID, TaskId: req.TaskId}
	if tf := result.GetTaskFailed(); tf != nil {
		resp.FailureDetails = tf.FailureDetails
	} else if tc := result.GetTaskCompleted(); tc != nil {
		resp.Result = tc.Result
	}
	if _, err := w.client.CompleteActivityTask(ctx, resp); err != nil {
		w.logger.Errorf("grpc worker: failed to complete activity %s#%d: %v", instanceID, req.TaskId, err)
	}
}
