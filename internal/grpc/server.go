package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/internal/protos"
	"github.com/shubham1172/durabletask-go/router"
)

// toStatus maps the sentinel errors Backend/TaskHubClient operations return
// to the grpc status codes workItemStream/client-service callers expect,
// falling back to Internal for anything unrecognized.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrInstanceNotFound), errors.Is(err, backend.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, backend.ErrAlreadyStarted):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, backend.ErrUnsupported):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, backend.ErrAlreadyCompleted), errors.Is(err, backend.ErrDuplicateEvent):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// TaskHubGrpcServer adapts a Backend/HubDispatcher pair to
// TaskHubSidecarServer, the wire boundary remote workers and clients speak.
// It holds no state of its own beyond what it wraps, aside from the
// bookkeeping needed to register/release each claimed orchestration with
// its MessageRouter.
type TaskHubGrpcServer struct {
	client backend.TaskHubClient
	be     backend.Backend
	hub    *backend.HubDispatcher
	logger backend.Logger

	router *router.MessageRouter

	readersMu sync.Mutex
	readers   map[string]router.Reader
}

// NewTaskHubGrpcServer builds the server-side adapter. hub must already be
// wired to be (i.e. constructed via backend.NewHubDispatcher(be, logger)).
//
// mr is optional: when non-nil, every orchestration claim handed out by
// GetWorkItems registers a Dispatcher with mr for the life of that claim (see
// registerFastPath), and hub is told to use mr for its own best-effort
// outbound delivery. Messages routed to such a claim are not forwarded to
// the remote worker; the Backend remains their delivery path.
func NewTaskHubGrpcServer(be backend.Backend, hub *backend.HubDispatcher, logger backend.Logger, mr *router.MessageRouter) *TaskHubGrpcServer {
	if logger == nil {
		logger = backend.DefaultLogger()
	}
	if mr != nil {
		hub.SetFastPathRouter(mr)
	}
	return &TaskHubGrpcServer{
		client:  backend.NewTaskHubClient(be),
		be:      be,
		hub:     hub,
		logger:  logger,
		router:  mr,
		readers: make(map[string]router.Reader),
	}
}

var _ TaskHubSidecarServer = (*TaskHubGrpcServer)(nil)

func (s *TaskHubGrpcServer) StartInstance(ctx context.Context, req *protos.CreateInstanceRequest) (*protos.CreateInstanceResponse, error) {
	var opts []api.NewOrchestrationOptions
	if req.InstanceId != "" {
		opts = append(opts, api.WithInstanceID(api.InstanceID(req.InstanceId)))
	}
	if req.Input != "" {
		opts = append(opts, api.WithRawInput(req.Input))
	}
	if req.OrchestrationIdReusePolicy != nil {
		opts = append(opts, api.WithOrchestrationIDReusePolicy(req.OrchestrationIdReusePolicy.OperationStatus...))
	}
	if len(req.Tags) > 0 {
		opts = append(opts, api.WithTags(req.Tags))
	}

	id, err := s.client.ScheduleNewOrchestration(ctx, req.Name, opts...)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protos.CreateInstanceResponse{InstanceId: string(id)}, nil
}

func (s *TaskHubGrpcServer) GetInstance(ctx context.Context, req *protos.GetInstanceRequest) (*protos.GetInstanceResponse, error) {
	meta, err := s.client.FetchOrchestrationMetadata(ctx, api.InstanceID(req.InstanceId))
	if err != nil {
		if errors.Is(err, backend.ErrInstanceNotFound) {
			return &protos.GetInstanceResponse{Exists: false}, nil
		}
		return nil, toStatus(err)
	}
	return &protos.GetInstanceResponse{Exists: true, OrchestrationState: toOrchestrationState(meta, req.GetInputsAndOutputs)}, nil
}

func (s *TaskHubGrpcServer) RaiseEvent(ctx context.Context, req *protos.RaiseEventRequest) (*emptypb.Empty, error) {
	var input interface{}
	if req.Input != nil {
		input = req.Input.GetValue()
	}
	if err := s.client.RaiseEvent(ctx, api.InstanceID(req.InstanceId), req.Name, input); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) TerminateInstance(ctx context.Context, req *protos.TerminateRequest) (*emptypb.Empty, error) {
	if err := s.client.TerminateOrchestration(ctx, api.InstanceID(req.InstanceId), req.Output.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) SuspendInstance(ctx context.Context, req *protos.SuspendRequest) (*emptypb.Empty, error) {
	if err := s.client.SuspendOrchestration(ctx, api.InstanceID(req.InstanceId), req.Reason.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) ResumeInstance(ctx context.Context, req *protos.ResumeRequest) (*emptypb.Empty, error) {
	if err := s.client.ResumeOrchestration(ctx, api.InstanceID(req.InstanceId), req.Reason.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) PurgeInstances(ctx context.Context, req *protos.PurgeInstancesRequest) (*protos.PurgeInstancesResponse, error) {
	if req.InstanceId == "" {
		return nil, toStatus(fmt.Errorf("%w: bulk purge by filter", backend.ErrUnsupported))
	}
	if err := s.client.PurgeOrchestrationState(ctx, api.InstanceID(req.InstanceId)); err != nil {
		return nil, toStatus(err)
	}
	return &protos.PurgeInstancesResponse{DeletedInstanceCount: 1}, nil
}

func (s *TaskHubGrpcServer) QueryInstances(ctx context.Context, req *protos.QueryInstancesRequest) (*protos.QueryInstancesResponse, error) {
	filter := backend.InstanceQuery{PageSize: int(req.PageSize), ContinuationToken: req.ContinuationToken}
	if f := req.Filter; f != nil {
		filter.Statuses = f.Statuses
		filter.InstanceIDPrefix = f.InstanceIdPrefix.GetValue()
		if f.CreatedTimeFrom != nil {
			t, err := time.Parse(time.RFC3339, f.CreatedTimeFrom.GetValue())
			if err == nil {
				filter.CreatedTimeFrom = &t
			}
		}
		if f.CreatedTimeTo != nil {
			t, err := time.Parse(time.RFC3339, f.CreatedTimeTo.GetValue())
			if err == nil {
				filter.CreatedTimeTo = &t
			}
		}
	}

	result, err := s.client.QueryOrchestrationStates(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &protos.QueryInstancesResponse{ContinuationToken: result.ContinuationToken}
	for _, meta := range result.Instances {
		includeIO := req.Filter != nil && req.Filter.FetchInputsAndOutputs
		resp.OrchestrationState = append(resp.OrchestrationState, toOrchestrationState(meta, includeIO))
	}
	return resp, nil
}

func (s *TaskHubGrpcServer) CompleteActivityTask(ctx context.Context, resp *protos.ActivityResponse) (*emptypb.Empty, error) {
	if err := s.hub.CompleteActivityTask(ctx, resp); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) CompleteOrchestratorTask(ctx context.Context, resp *protos.OrchestratorResponse) (*emptypb.Empty, error) {
	defer s.releaseFastPath(resp.InstanceId)
	if err := s.hub.CompleteOrchestratorTask(ctx, resp); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) AbandonActivityTask(ctx context.Context, req *protos.ActivityRequest) (*emptypb.Empty, error) {
	if req.OrchestrationInstance == nil {
		return nil, status.Error(codes.InvalidArgument, "grpc: AbandonActivityTask requires an orchestration instance")
	}
	taskID := req.TaskId
	if err := s.hub.AbandonWorkItem(ctx, req.OrchestrationInstance.InstanceId, &taskID); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TaskHubGrpcServer) AbandonOrchestratorTask(ctx context.Context, req *protos.OrchestratorRequest) (*emptypb.Empty, error) {
	defer s.releaseFastPath(req.InstanceId)
	if err := s.hub.AbandonWorkItem(ctx, req.InstanceId, nil); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// registerFastPath registers instanceID with the MessageRouter for the
// duration of the claim the caller is about to stream out. Messages the
// router delivers for it are buffered in that Dispatcher; nothing in this
// server reads them, and they are discarded when releaseFastPath closes the
// reader, so the instance still receives them through the Backend. It is a
// no-op with no router configured.
func (s *TaskHubGrpcServer) registerFastPath(instanceID string) {
	if s.router == nil {
		return
	}
	reader, err := s.router.Initialize(instanceID, nil)
	if err != nil {
		// Already registered (e.g. a stale claim from a prior stream that
		// hasn't released yet); leave the existing registration alone.
		s.logger.Warnf("grpc: could not register %q with the message router: %v", instanceID, err)
		return
	}
	s.readersMu.Lock()
	s.readers[instanceID] = reader
	s.readersMu.Unlock()
}

// releaseFastPath unregisters instanceID from the MessageRouter once its
// claim has been completed or abandoned. It is a no-op if the instance was
// never registered.
func (s *TaskHubGrpcServer) releaseFastPath(instanceID string) {
	s.readersMu.Lock()
	reader, ok := s.readers[instanceID]
	if ok {
		delete(s.readers, instanceID)
	}
	s.readersMu.Unlock()
	if ok {
		reader.Close()
	}
}

// Shutdown releases every orchestration still registered with the message
// router. Callers that also call hub.Stop should call this alongside it, so
// a shutdown with in-flight claims doesn't leave their Dispatchers
// registered past the point the Backend has already abandoned the claims
// themselves.
func (s *TaskHubGrpcServer) Shutdown() {
	s.readersMu.Lock()
	readers := s.readers
	s.readers = make(map[string]router.Reader)
	s.readersMu.Unlock()
	for _, r := range readers {
		r.Close()
	}
}

// GetWorkItems streams claimed work items to whichever worker opened the
// call, registering/unregistering it with the HubDispatcher's
// workersConnected latch for the life of the stream.
func (s *TaskHubGrpcServer) GetWorkItems(req *GetWorkItemsRequest, stream TaskHubSidecar_GetWorkItemsServer) error {
	s.hub.WorkerConnected()
	defer s.hub.WorkerDisconnected()

	ctx := stream.Context()
	for {
		wi, err := s.hub.NextWorkItem(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := s.toWireWorkItem(ctx, wi)
		if err != nil {
			s.logger.Warnf("grpc: failed to marshal work item %s: %v", wi.Description(), err)
			continue
		}
		if err := stream.Send(msg); err != nil {
			return err
		}
	}
}

func (s *TaskHubGrpcServer) toWireWorkItem(ctx context.Context, wi backend.WorkItem) (*protos.WorkItem, error) {
	switch w := wi.(type) {
	case *backend.OrchestrationWorkItem:
		state, err := s.be.GetOrchestrationRuntimeState(ctx, w)
		if err != nil {
			return nil, err
		}
		// CompleteOrchestratorTask later calls w.State.ApplyActions, so the
		// claim recorded in the HubDispatcher must carry the loaded state.
		w.State = state
		// The dequeued events become this turn's new events, so the worker
		// sees them and the commit persists them.
		for _, e := range w.NewEvents {
			_ = state.AddEvent(e)
		}
		s.registerFastPath(string(w.InstanceID))
		return &protos.WorkItem{
			OrchestratorRequest: &protos.OrchestratorRequest{
				InstanceId: string(w.InstanceID),
				PastEvents: state.OldEvents(),
				NewEvents:  state.NewEvents(),
			},
		}, nil
	case *backend.ActivityWorkItem:
		ts := w.NewEvent.GetTaskScheduled()
		if ts == nil {
			return nil, fmt.Errorf("grpc: activity work item %s has no TaskScheduled event", wi.Description())
		}
		return &protos.WorkItem{
			ActivityRequest: &protos.ActivityRequest{
				Name:                  ts.Name,
				Version:               ts.Version,
				Input:                 ts.Input,
				OrchestrationInstance: &protos.OrchestrationInstance{InstanceId: string(w.InstanceID)},
				TaskId:                w.TaskID,
			},
		}, nil
	default:
		return nil, fmt.Errorf("grpc: unrecognized work item type %T", wi)
	}
}

func toOrchestrationState(meta *api.OrchestrationMetadata, includeIO bool) *protos.OrchestrationState {
	state := &protos.OrchestrationState{
		InstanceId:           string(meta.InstanceID),
		Name:                 meta.Name,
		OrchestrationStatus:  meta.RuntimeStatus,
		CreatedTimestamp:     wrapperspb.String(meta.CreatedAt.Format(time.RFC3339)),
		LastUpdatedTimestamp: wrapperspb.String(meta.LastUpdatedAt.Format(time.RFC3339)),
		FailureDetails:       meta.FailureDetails,
	}
	if meta.SerializedCustomStatus != "" {
		state.CustomStatus = wrapperspb.String(meta.SerializedCustomStatus)
	}
	if includeIO {
		if meta.SerializedInput != "" {
			state.Input = wrapperspb.String(meta.SerializedInput)
		}
		if meta.SerializedOutput != "" {
			state.Output = wrapperspb.String(meta.SerializedOutput)
		}
	}
	return state
}
