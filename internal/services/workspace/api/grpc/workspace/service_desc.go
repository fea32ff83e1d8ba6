package workspace

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "workspace.v1.BindableService"

const (
	dispatchMethod      = "/" + ServiceName + "/Dispatch"
	listBindablesMethod = "/" + ServiceName + "/ListBindables"
	countsMethod        = "/" + ServiceName + "/Counts"
)

// BindableServiceServer is the server API for workspace.v1.BindableService.
// Messages are google.protobuf.Struct so bindable payloads and values travel
// without a per-bindable schema.
type BindableServiceServer interface {
	Dispatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBindables(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Counts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedBindableServiceServer returns Unimplemented for every method.
type UnimplementedBindableServiceServer struct{}

func (UnimplementedBindableServiceServer) Dispatch(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Dispatch not implemented")
}

func (UnimplementedBindableServiceServer) ListBindables(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBindables not implemented")
}

func (UnimplementedBindableServiceServer) Counts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Counts not implemented")
}

// RegisterBindableServiceServer registers srv on s.
func RegisterBindableServiceServer(s grpc.ServiceRegistrar, srv BindableServiceServer) {
	s.RegisterService(&BindableServiceDesc, srv)
}

func unaryHandler(method string, call func(BindableServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BindableServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BindableServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// BindableServiceDesc describes workspace.v1.BindableService. It is declared
// by hand and every message is a structpb.Struct, so no .proto file backs it.
var BindableServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BindableServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Dispatch",
			Handler:    unaryHandler(dispatchMethod, BindableServiceServer.Dispatch),
		},
		{
			MethodName: "ListBindables",
			Handler:    unaryHandler(listBindablesMethod, BindableServiceServer.ListBindables),
		},
		{
			MethodName: "Counts",
			Handler:    unaryHandler(countsMethod, BindableServiceServer.Counts),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// BindableServiceClient is the client API for workspace.v1.BindableService.
type BindableServiceClient interface {
	Dispatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListBindables(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Counts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type bindableServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewBindableServiceClient creates a client over cc.
func NewBindableServiceClient(cc grpc.ClientConnInterface) BindableServiceClient {
	return &bindableServiceClient{cc: cc}
}

func (c *bindableServiceClient) Dispatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, dispatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bindableServiceClient) ListBindables(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listBindablesMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *bindableServiceClient) Counts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, countsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
