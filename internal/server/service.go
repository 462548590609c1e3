package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ehr.gateway.v1.DisclosureGateway"

const (
	methodListSubjects = "/" + ServiceName + "/ListSubjects"
	methodGetRecord    = "/" + ServiceName + "/GetRecord"
	methodAsk          = "/" + ServiceName + "/Ask"
)

// DisclosureGatewayServer is the server API. Bodies are google.protobuf.Struct.
type DisclosureGatewayServer interface {
	ListSubjects(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Ask(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv DisclosureGatewayServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DisclosureGatewayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DisclosureGatewayServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes DisclosureGateway for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DisclosureGatewayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListSubjects",
			Handler: unaryHandler(methodListSubjects, func(srv DisclosureGatewayServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.ListSubjects(ctx, req)
			}),
		},
		{
			MethodName: "GetRecord",
			Handler: unaryHandler(methodGetRecord, func(srv DisclosureGatewayServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetRecord(ctx, req)
			}),
		},
		{
			MethodName: "Ask",
			Handler: unaryHandler(methodAsk, func(srv DisclosureGatewayServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.Ask(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ehr/gateway/v1/gateway.proto",
}

// RegisterDisclosureGatewayServer registers srv on s.
func RegisterDisclosureGatewayServer(s grpc.ServiceRegistrar, srv DisclosureGatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client is a DisclosureGateway client.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListSubjects(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodListSubjects, &structpb.Struct{}, opts...)
}

func (c *Client) GetRecord(ctx context.Context, subjectID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"subject_id": structpb.NewStringValue(subjectID),
	}}
	return c.invoke(ctx, methodGetRecord, in, opts...)
}

func (c *Client) Ask(ctx context.Context, subjectID, question string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"subject_id": structpb.NewStringValue(subjectID),
		"question":   structpb.NewStringValue(question),
	}}
	return c.invoke(ctx, methodAsk, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
