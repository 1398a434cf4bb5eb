package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shubham1172/durabletask-go/api"
	"github.com/shubham1172/durabletask-go/backend"
	"github.com/shubham1172/durabletask-go/backend/memory"
	"github.com/shubham1172/durabletask-go/internal/protos"
	"github.com/shubham1172/durabletask-go/router"
)

// stubOrchestrator completes the instance immediately on its first turn,
// echoing the input back as the result.
type stubOrchestrator struct{}

func (stubOrchestrator) ExecuteOrchestrator(ctx context.Context, iid api.InstanceID, oldEvents, newEvents []*protos.HistoryEvent) (*backend.ExecutionResults, error) {
	var input *wrapperspb.StringValue
	for _, e := range newEvents {
		if es := e.GetExecutionStarted(); es != nil {
			input = es.Input
		}
	}
	return &backend.ExecutionResults{
		Response: &protos.OrchestratorResponse{
			InstanceId: string(iid),
			Actions: []*protos.OrchestratorAction{
				{
					Id: 0,
					CompleteOrchestration: &protos.CompleteOrchestrationAction{
						OrchestrationStatus: protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED,
						Result:              input,
					},
				},
			},
		},
	}, nil
}

type stubActivities struct{}

func (stubActivities) ExecuteActivity(ctx context.Context, iid string, wi *backend.ActivityWorkItem) (*protos.HistoryEvent, error) {
	return nil, nil
}

func dialBufconn(t *testing.T, lis *bufconn.Listener) *grpc.ClientConn {
	t.Helper()
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		DialOption(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}

// TestGrpcRoundTrip_StartInstanceThroughCompletion drives the full wire path
// this package exists for: a client starts an orchestration over
// TaskHubSidecarClient, a TaskHubGrpcWorker pulls it off workItemStream and
// completes it, and the client observes the terminal state.
func TestGrpcRoundTrip_StartInstanceThroughCompletion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	be := memory.NewBackend(nil)
	require.NoError(t, be.Start(ctx))
	t.Cleanup(func() { _ = be.Stop(context.Background()) })

	hub := backend.NewHubDispatcher(be, nil)
	require.NoError(t, hub.Start(ctx))
	t.Cleanup(func() { _ = hub.Stop(context.Background()) })

	server := NewTaskHubGrpcServer(be, hub, nil, router.NewMessageRouter())
	grpcServer := grpc.NewServer()
	RegisterTaskHubSidecarServer(grpcServer, server)

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)
	t.Cleanup(server.Shutdown)

	cc := dialBufconn(t, lis)
	client := NewTaskHubSidecarClient(cc)

	worker := NewTaskHubGrpcWorker(cc, stubOrchestrator{}, stubActivities{}, nil)
	workerCtx, stopWorker := context.WithCancel(ctx)
	t.Cleanup(stopWorker)
	go func() { _ = worker.Run(workerCtx) }()

	resp, err := client.StartInstance(ctx, &protos.CreateInstanceRequest{
		Name:       "Echo",
		InstanceId: "grpc-roundtrip-1",
		Input:      `"hello"`,
	})
	require.NoError(t, err)
	require.Equal(t, "grpc-roundtrip-1", resp.InstanceId)

	require.Eventually(t, func() bool {
		out, err := client.GetInstance(ctx, &protos.GetInstanceRequest{InstanceId: "grpc-roundtrip-1", GetInputsAndOutputs: true})
		if err != nil || !out.Exists {
			return false
		}
		return out.OrchestrationState.OrchestrationStatus == protos.OrchestrationStatus_ORCHESTRATION_STATUS_COMPLETED
	}, 5*time.Second, 20*time.Millisecond)

	out, err := client.GetInstance(ctx, &protos.GetInstanceRequest{InstanceId: "grpc-roundtrip-1", GetInputsAndOutputs: true})
	require.NoError(t, err)
	require.Equal(t, `"hello"`, out.OrchestrationState.Output.GetValue())
}
