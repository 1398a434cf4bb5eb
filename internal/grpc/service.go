package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/shubham1172/durabletask-go/internal/protos"
)

const serviceName = "durabletask.TaskHubSidecarService"

// GetWorkItemsRequest opens the worker's half of workItemStream. The two
// concurrency knobs mirror NewTaskWorkerOptions' WithMaxConcurrentWorkItems
// on the client side of the wire.
type GetWorkItemsRequest struct {
	MaxConcurrentOrchestrationWorkItems int32
	MaxConcurrentActivityWorkItems      int32
}

// TaskHubSidecarServer is the interface a HubDispatcher-backed process
// implements; TaskHubGrpcServer (server.go) is the concrete adapter.
type TaskHubSidecarServer interface {
	StartInstance(context.Context, *protos.CreateInstanceRequest) (*protos.CreateInstanceResponse, error)
	GetInstance(context.Context, *protos.GetInstanceRequest) (*protos.GetInstanceResponse, error)
	RaiseEvent(context.Context, *protos.RaiseEventRequest) (*emptypb.Empty, error)
	TerminateInstance(context.Context, *protos.TerminateRequest) (*emptypb.Empty, error)
	SuspendInstance(context.Context, *protos.SuspendRequest) (*emptypb.Empty, error)
	ResumeInstance(context.Context, *protos.ResumeRequest) (*emptypb.Empty, error)
	PurgeInstances(context.Context, *protos.PurgeInstancesRequest) (*protos.PurgeInstancesResponse, error)
	QueryInstances(context.Context, *protos.QueryInstancesRequest) (*protos.QueryInstancesResponse, error)
	CompleteActivityTask(context.Context, *protos.ActivityResponse) (*emptypb.Empty, error)
	CompleteOrchestratorTask(context.Context, *protos.OrchestratorResponse) (*emptypb.Empty, error)
	AbandonActivityTask(context.Context, *protos.ActivityRequest) (*emptypb.Empty, error)
	AbandonOrchestratorTask(context.Context, *protos.OrchestratorRequest) (*emptypb.Empty, error)
	GetWorkItems(*GetWorkItemsRequest, TaskHubSidecar_GetWorkItemsServer) error
}

// TaskHubSidecar_GetWorkItemsServer is the server-streaming half of
// workItemStream: the hub Sends every claimed WorkItem as it becomes
// available, never Recvs again after the initial request.
type TaskHubSidecar_GetWorkItemsServer interface {
	Send(*protos.WorkItem) error
	grpc.ServerStream
}

type taskHubSidecarGetWorkItemsServer struct {
	grpc.ServerStream
}

func (x *taskHubSidecarGetWorkItemsServer) Send(m *protos.WorkItem) error {
	return x.ServerStream.SendMsg(m)
}

func _TaskHubSidecar_GetWorkItems_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(GetWorkItemsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TaskHubSidecarServer).GetWorkItems(m, &taskHubSidecarGetWorkItemsServer{stream})
}

func _TaskHubSidecar_StartInstance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.CreateInstanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).StartInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/StartInstance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).StartInstance(ctx, req.(*protos.CreateInstanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_GetInstance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.GetInstanceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).GetInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetInstance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).GetInstance(ctx, req.(*protos.GetInstanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_RaiseEvent_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.RaiseEventRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).RaiseEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RaiseEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).RaiseEvent(ctx, req.(*protos.RaiseEventRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_TerminateInstance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.TerminateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).TerminateInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/TerminateInstance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).TerminateInstance(ctx, req.(*protos.TerminateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_SuspendInstance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.SuspendRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).SuspendInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/SuspendInstance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).SuspendInstance(ctx, req.(*protos.SuspendRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_ResumeInstance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.ResumeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).ResumeInstance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ResumeInstance"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).ResumeInstance(ctx, req.(*protos.ResumeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_PurgeInstances_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.PurgeInstancesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).PurgeInstances(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/PurgeInstances"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).PurgeInstances(ctx, req.(*protos.PurgeInstancesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_QueryInstances_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.QueryInstancesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).QueryInstances(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/QueryInstances"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).QueryInstances(ctx, req.(*protos.QueryInstancesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_CompleteActivityTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.ActivityResponse)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).CompleteActivityTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CompleteActivityTask"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).CompleteActivityTask(ctx, req.(*protos.ActivityResponse))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_CompleteOrchestratorTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.OrchestratorResponse)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).CompleteOrchestratorTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/CompleteOrchestratorTask"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).CompleteOrchestratorTask(ctx, req.(*protos.OrchestratorResponse))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_AbandonActivityTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.ActivityRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).AbandonActivityTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AbandonActivityTask"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).AbandonActivityTask(ctx, req.(*protos.ActivityRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _TaskHubSidecar_AbandonOrchestratorTask_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(protos.OrchestratorRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TaskHubSidecarServer).AbandonOrchestratorTask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AbandonOrchestratorTask"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TaskHubSidecarServer).AbandonOrchestratorTask(ctx, req.(*protos.OrchestratorRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// _TaskHubSidecar_serviceDesc is the hand-authored equivalent of what
// protoc-gen-go-grpc emits from a .proto service block.
var _TaskHubSidecar_serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TaskHubSidecarServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartInstance", Handler: _TaskHubSidecar_StartInstance_Handler},
		{MethodName: "GetInstance", Handler: _TaskHubSidecar_GetInstance_Handler},
		{MethodName: "RaiseEvent", Handler: _TaskHubSidecar_RaiseEvent_Handler},
		{MethodName: "TerminateInstance", Handler: _TaskHubSidecar_TerminateInstance_Handler},
		{MethodName: "SuspendInstance", Handler: _TaskHubSidecar_SuspendInstance_Handler},
		{MethodName: "ResumeInstance", Handler: _TaskHubSidecar_ResumeInstance_Handler},
		{MethodName: "PurgeInstances", Handler: _TaskHubSidecar_PurgeInstances_Handler},
		{MethodName: "QueryInstances", Handler: _TaskHubSidecar_QueryInstances_Handler},
		{MethodName: "CompleteActivityTask", Handler: _TaskHubSidecar_CompleteActivityTask_Handler},
		{MethodName: "CompleteOrchestratorTask", Handler: _TaskHubSidecar_CompleteOrchestratorTask_Handler},
		{MethodName: "AbandonActivityTask", Handler: _TaskHubSidecar_AbandonActivityTask_Handler},
		{MethodName: "AbandonOrchestratorTask", Handler: _TaskHubSidecar_AbandonOrchestratorTask_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "GetWorkItems", Handler: _TaskHubSidecar_GetWorkItems_Handler, ServerStreams: true},
	},
	Metadata: "durabletask.proto",
}

// RegisterTaskHubSidecarServer registers srv's handlers on s, the way a
// generated RegisterXxxServer function would.
func RegisterTaskHubSidecarServer(s *grpc.Server, srv TaskHubSidecarServer) {
	s.RegisterService(&_TaskHubSidecar_serviceDesc, srv)
}

// TaskHubSidecarClient is the client stub TaskHubGrpcWorker (client.go)
// drives.
type TaskHubSidecarClient interface {
	StartInstance(ctx context.Context, in *protos.CreateInstanceRequest, opts ...grpc.CallOption) (*protos.CreateInstanceResponse, error)
	GetInstance(ctx context.Context, in *protos.GetInstanceRequest, opts ...grpc.CallOption) (*protos.GetInstanceResponse, error)
	RaiseEvent(ctx context.Context, in *protos.RaiseEventRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	TerminateInstance(ctx context.Context, in *protos.TerminateRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SuspendInstance(ctx context.Context, in *protos.SuspendRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ResumeInstance(ctx context.Context, in *protos.ResumeRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	PurgeInstances(ctx context.Context, in *protos.PurgeInstancesRequest, opts ...grpc.CallOption) (*protos.PurgeInstancesResponse, error)
	QueryInstances(ctx context.Context, in *protos.QueryInstancesRequest, opts ...grpc.CallOption) (*protos.QueryInstancesResponse, error)
	CompleteActivityTask(ctx context.Context, in *protos.ActivityResponse, opts ...grpc.CallOption) (*emptypb.Empty, error)
	CompleteOrchestratorTask(ctx context.Context, in *protos.OrchestratorResponse, opts ...grpc.CallOption) (*emptypb.Empty, error)
	AbandonActivityTask(ctx context.Context, in *protos.ActivityRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	AbandonOrchestratorTask(ctx context.Context, in *protos.OrchestratorRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetWorkItems(ctx context.Context, in *GetWorkItemsRequest, opts ...grpc.CallOption) (TaskHubSidecar_GetWorkItemsClient, error)
}

type taskHubSidecarClient struct {
	cc grpc.ClientConnInterface
}

// NewTaskHubSidecarClient wraps an established *grpc.ClientConn (or any
// grpc.ClientConnInterface) as a TaskHubSidecarClient.
func NewTaskHubSidecarClient(cc grpc.ClientConnInterface) TaskHubSidecarClient {
	return &taskHubSidecarClient{cc: cc}
}

func (c *taskHubSidecarClient) StartInstance(ctx context.Context, in *protos.CreateInstanceRequest, opts ...grpc.CallOption) (*protos.CreateInstanceResponse, error) {
	out := new(protos.CreateInstanceResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/StartInstance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) GetInstance(ctx context.Context, in *protos.GetInstanceRequest, opts ...grpc.CallOption) (*protos.GetInstanceResponse, error) {
	out := new(protos.GetInstanceResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetInstance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) RaiseEvent(ctx context.Context, in *protos.RaiseEventRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/RaiseEvent", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) TerminateInstance(ctx context.Context, in *protos.TerminateRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/TerminateInstance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) SuspendInstance(ctx context.Context, in *protos.SuspendRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/SuspendInstance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) ResumeInstance(ctx context.Context, in *protos.ResumeRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ResumeInstance", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) PurgeInstances(ctx context.Context, in *protos.PurgeInstancesRequest, opts ...grpc.CallOption) (*protos.PurgeInstancesResponse, error) {
	out := new(protos.PurgeInstancesResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/PurgeInstances", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) QueryInstances(ctx context.Context, in *protos.QueryInstancesRequest, opts ...grpc.CallOption) (*protos.QueryInstancesResponse, error) {
	out := new(protos.QueryInstancesResponse)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/QueryInstances", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) CompleteActivityTask(ctx context.Context, in *protos.ActivityResponse, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CompleteActivityTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) CompleteOrchestratorTask(ctx context.Context, in *protos.OrchestratorResponse, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CompleteOrchestratorTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) AbandonActivityTask(ctx context.Context, in *protos.ActivityRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AbandonActivityTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) AbandonOrchestratorTask(ctx context.Context, in *protos.OrchestratorRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/AbandonOrchestratorTask", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *taskHubSidecarClient) GetWorkItems(ctx context.Context, in *GetWorkItemsRequest, opts ...grpc.CallOption) (TaskHubSidecar_GetWorkItemsClient, error) {
	stream, err := c.cc.NewStream(ctx, &_TaskHubSidecar_serviceDesc.Streams[0], "/"+serviceName+"/GetWorkItems", opts...)
	if err != nil {
		return nil, err
	}
	x := &taskHubSidecarGetWorkItemsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// TaskHubSidecar_GetWorkItemsClient is the worker's read side of
// workItemStream.
type TaskHubSidecar_GetWorkItemsClient interface {
	Recv() (*protos.WorkItem, error)
	grpc.ClientStream
}

type taskHubSidecarGetWorkItemsClient struct {
	grpc.ClientStream
}

func (x *taskHubSidecarGetWorkItemsClient) Recv() (*protos.WorkItem, error) {
	m := new(protos.WorkItem)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// DialOption pins every call made over the resulting connection to the JSON
// codec registered in codec.go. Callers dialing a TaskHubSidecarClient
// should pass this alongside their transport credentials.
func DialOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName))
}
