package simd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/config"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

// QueueSimServiceName is the fully-qualified gRPC service name
const QueueSimServiceName = "queuesim.v1.QueueSimService"

// QueueSimServer is the gRPC surface of the run daemon. Messages are
// google.protobuf.Struct documents with the same shape as the HTTP JSON bodies.
type QueueSimServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRunResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type queueSimCall func(QueueSimServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call queueSimCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(QueueSimServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + QueueSimServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(QueueSimServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// QueueSimServiceDesc describes the service for grpc.Server registration
var QueueSimServiceDesc = grpc.ServiceDesc{
	ServiceName: QueueSimServiceName,
	HandlerType: (*QueueSimServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: unaryHandler("Simulate", QueueSimServer.Simulate)},
		{MethodName: "CreateRun", Handler: unaryHandler("CreateRun", QueueSimServer.CreateRun)},
		{MethodName: "StartRun", Handler: unaryHandler("StartRun", QueueSimServer.StartRun)},
		{MethodName: "StopRun", Handler: unaryHandler("StopRun", QueueSimServer.StopRun)},
		{MethodName: "GetRun", Handler: unaryHandler("GetRun", QueueSimServer.GetRun)},
		{MethodName: "ListRuns", Handler: unaryHandler("ListRuns", QueueSimServer.ListRuns)},
		{MethodName: "GetRunResult", Handler: unaryHandler("GetRunResult", QueueSimServer.GetRunResult)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "queuesim/v1/queuesim.proto",
}

// RegisterQueueSimServer registers srv on s
func RegisterQueueSimServer(s grpc.ServiceRegistrar, srv QueueSimServer) {
	s.RegisterService(&QueueSimServiceDesc, srv)
}

// QueueSimGRPCServer implements QueueSimServer on top of a Service.
type QueueSimGRPCServer struct {
	service *Service
}

// NewQueueSimGRPCServer creates a new QueueSimGRPCServer
func NewQueueSimGRPCServer(service *Service) *QueueSimGRPCServer {
	return &QueueSimGRPCServer{service: service}
}

func (s *QueueSimGRPCServer) Simulate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeStruct[CreateRunRequest](in)
	if err != nil {
		return nil, err
	}
	scenario, err := req.ParseScenario()
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := s.service.Executor.Simulate(ctx, scenario)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(map[string]any{"result": out.Result})
}

func (s *QueueSimGRPCServer) CreateRun(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := decodeStruct[CreateRunRequest](in)
	if err != nil {
		return nil, err
	}
	rec, err := s.service.CreateRun(req)
	if err != nil {
		return nil, toStatus(err)
	}
	logger.Info("run created", "run_id", rec.Run.ID, "model", rec.Run.Model)
	return encodeStruct(map[string]any{"run": rec.Run})
}

func (s *QueueSimGRPCServer) StartRun(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	updated, err := s.service.Executor.Start(runIDOf(in))
	if err != nil {
		return nil, toStatus(err)
	}
	logger.Info("run started", "run_id", updated.Run.ID)
	return encodeStruct(map[string]any{"run": updated.Run})
}

func (s *QueueSimGRPCServer) StopRun(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	updated, err := s.service.Executor.Stop(runIDOf(in))
	if err != nil {
		return nil, toStatus(err)
	}
	logger.Info("run cancelled", "run_id", updated.Run.ID)
	return encodeStruct(map[string]any{"run": updated.Run})
}

func (s *QueueSimGRPCServer) GetRun(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID := runIDOf(in)
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, ErrRunIDMissing.Error())
	}
	rec, ok := s.service.Store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	return encodeStruct(map[string]any{"run": rec.Run})
}

func (s *QueueSimGRPCServer) ListRuns(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
		Status string `json:"status"`
	}
	if err := decodeInto(in, &req); err != nil {
		return nil, err
	}
	runStatus, err := ParseRunStatus(req.Status)
	if err != nil {
		return nil, toStatus(err)
	}
	recs := s.service.Store.List(req.Limit, max(req.Offset, 0), runStatus)
	runs := make([]*models.Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}
	return encodeStruct(map[string]any{"runs": runs})
}

func (s *QueueSimGRPCServer) GetRunResult(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	result, err := s.service.GetResult(runIDOf(in))
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeStruct(map[string]any{"result": result})
}

func runIDOf(in *structpb.Struct) string {
	if in == nil {
		return ""
	}
	return in.GetFields()["run_id"].GetStringValue()
}

// decodeStruct converts a Struct into T through its JSON form
func decodeStruct[T any](in *structpb.Struct) (*T, error) {
	var out T
	if err := decodeInto(in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeInto(in *structpb.Struct, out any) error {
	if in == nil {
		return nil
	}
	raw, err := in.MarshalJSON()
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

// encodeStruct converts any JSON-serialisable value into a Struct
func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, config.ErrInvalidScenario), errors.Is(err, ErrRunIDMissing):
		code = codes.InvalidArgument
	case errors.Is(err, ErrRunNotFound):
		code = codes.NotFound
	case errors.Is(err, ErrRunExists):
		code = codes.AlreadyExists
	case errors.Is(err, ErrRunTerminal), errors.Is(err, ErrResultUnavailable):
		code = codes.FailedPrecondition
	case errors.Is(err, ErrStoreFull):
		code = codes.ResourceExhausted
	case errors.Is(err, ErrShuttingDown):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, fmt.Sprint(err))
}
