package simd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

func newBufconnClient(t *testing.T, svc *Service) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterQueueSimServer(srv, NewQueueSimGRPCServer(svc))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, req map[string]any) (*structpb.Struct, error) {
	t.Helper()
	in, err := structpb.NewStruct(req)
	require.NoError(t, err)
	out := &structpb.Struct{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = conn.Invoke(ctx, "/"+QueueSimServiceName+"/"+method, in, out)
	return out, err
}

func goldenScenarioMap() map[string]any {
	return map[string]any{
		"name":              "golden",
		"model":             "mm1",
		"mean_interarrival": 2,
		"mean_service":      1,
		"duration":          1000,
	}
}

func TestGRPCSimulate(t *testing.T) {
	conn := newBufconnClient(t, newTestService(t))

	out, err := invoke(t, conn, "Simulate", map[string]any{"scenario": goldenScenarioMap()})
	require.NoError(t, err)

	result := out.GetFields()["result"].GetStructValue().GetFields()
	assert.Equal(t, float64(523), result["customers_served"].GetNumberValue())
	assert.Equal(t, "mm1", result["model"].GetStringValue())
	assert.InEpsilon(t, 0.5222865026990202, result["throughput"].GetNumberValue(), 1e-9)
	assert.True(t, result["sojourn_defined"].GetBoolValue())
}

func TestGRPCRunLifecycle(t *testing.T) {
	svc := newTestService(t)
	conn := newBufconnClient(t, svc)

	created, err := invoke(t, conn, "CreateRun", map[string]any{
		"run_id":   "grpc-1",
		"scenario": goldenScenarioMap(),
	})
	require.NoError(t, err)
	run := created.GetFields()["run"].GetStructValue().GetFields()
	assert.Equal(t, "grpc-1", run["id"].GetStringValue())
	assert.Equal(t, string(models.RunStatusPending), run["status"].GetStringValue())

	_, err = invoke(t, conn, "GetRunResult", map[string]any{"run_id": "grpc-1"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = invoke(t, conn, "StartRun", map[string]any{"run_id": "grpc-1"})
	require.NoError(t, err)
	svc.Executor.Wait()
	waitForStatus(t, svc.Store, "grpc-1", models.RunStatusCompleted)

	got, err := invoke(t, conn, "GetRun", map[string]any{"run_id": "grpc-1"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RunStatusCompleted),
		got.GetFields()["run"].GetStructValue().GetFields()["status"].GetStringValue())

	res, err := invoke(t, conn, "GetRunResult", map[string]any{"run_id": "grpc-1"})
	require.NoError(t, err)
	served := res.GetFields()["result"].GetStructValue().GetFields()["customers_served"].GetNumberValue()
	assert.Equal(t, float64(523), served)

	list, err := invoke(t, conn, "ListRuns", map[string]any{"status": "completed"})
	require.NoError(t, err)
	runs := list.GetFields()["runs"].GetListValue().GetValues()
	require.Len(t, runs, 1)
	assert.Equal(t, "grpc-1", runs[0].GetStructValue().GetFields()["id"].GetStringValue())

	_, err = invoke(t, conn, "StopRun", map[string]any{"run_id": "grpc-1"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPCErrorCodes(t *testing.T) {
	conn := newBufconnClient(t, newTestService(t))

	_, err := invoke(t, conn, "CreateRun", map[string]any{"run_id": "dup", "scenario": map[string]any{"model": "mm1"}})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		req    map[string]any
		want   codes.Code
	}{
		{"missing scenario", "CreateRun", map[string]any{}, codes.InvalidArgument},
		{"invalid scenario", "CreateRun", map[string]any{"scenario": map[string]any{"model": "mmc", "servers": 0}}, codes.InvalidArgument},
		{"duplicate", "CreateRun", map[string]any{"run_id": "dup", "scenario": map[string]any{"model": "mm1"}}, codes.AlreadyExists},
		{"get missing id", "GetRun", map[string]any{}, codes.InvalidArgument},
		{"get unknown", "GetRun", map[string]any{"run_id": "nope"}, codes.NotFound},
		{"start unknown", "StartRun", map[string]any{"run_id": "nope"}, codes.NotFound},
		{"stop missing id", "StopRun", map[string]any{}, codes.InvalidArgument},
		{"result unknown", "GetRunResult", map[string]any{"run_id": "nope"}, codes.NotFound},
		{"bad status filter", "ListRuns", map[string]any{"status": "sleeping"}, codes.InvalidArgument},
		{"simulate invalid", "Simulate", map[string]any{"scenario_yaml": "model: mm1\nmean_service: -1\n"}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, conn, tt.method, tt.req)
			assert.Equal(t, tt.want, status.Code(err), "error: %v", err)
		})
	}
}

func TestGRPCUnknownMethod(t *testing.T) {
	conn := newBufconnClient(t, newTestService(t))

	_, err := invoke(t, conn, "DeleteRun", map[string]any{"run_id": "x"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestGRPCInterceptorSeesFullMethod(t *testing.T) {
	svc := newTestService(t)
	lis := bufconn.Listen(1 << 20)
	seen := make(chan string, 1)
	srv := grpc.NewServer(grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen <- info.FullMethod
		return handler(ctx, req)
	}))
	RegisterQueueSimServer(srv, NewQueueSimGRPCServer(svc))
	go func() {
		_ = srv.Serve(lis)
	}()
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	_, err = invoke(t, conn, "ListRuns", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "/queuesim.v1.QueueSimService/ListRuns", <-seen)
}
