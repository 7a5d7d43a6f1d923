package imagegen

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName      = "mirror.v1.StageRunner"
	runStageMethod   = "/" + ServiceName + "/RunStage"
	healthMethod     = "/" + ServiceName + "/Health"
	healthStatusOkay = "ok"
)

// StageRunnerServer is implemented by the sampler. Messages travel as
// structpb.Struct so no generated code is needed on either side.
type StageRunnerServer interface {
	RunStage(ctx context.Context, req *StageRequest) (*StageResult, error)
	Health(ctx context.Context) error
}

func RegisterStageRunnerServer(s grpc.ServiceRegistrar, srv StageRunnerServer) {
	s.RegisterService(&stageRunnerServiceDesc, srv)
}

var stageRunnerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StageRunnerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunStage", Handler: runStageHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func runStageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		stageReq, err := stageRequestFromStruct(req.(*structpb.Struct))
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		res, err := srv.(StageRunnerServer).RunStage(ctx, stageReq)
		if err != nil {
			return nil, err
		}
		return res.toStruct()
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runStageMethod}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, _ any) (any, error) {
		if err := srv.(StageRunnerServer).Health(ctx); err != nil {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return structpb.NewStruct(map[string]any{"status": healthStatusOkay})
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: healthMethod}
	return interceptor(ctx, in, info, handler)
}
