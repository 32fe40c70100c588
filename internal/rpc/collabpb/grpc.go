package collabpb

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "collaboration.CollaborationService"

// CollaborationServer is implemented by the stream adapter and registered
// with RegisterCollaborationServer.
type CollaborationServer interface {
	Collaborate(CollaborationCollaborateServer) error
	GetDocumentState(context.Context, *GetDocumentStateRequest) (*GetDocumentStateResponse, error)
	GetActiveUsers(context.Context, *GetActiveUsersRequest) (*GetActiveUsersResponse, error)
}

// CollaborationCollaborateServer is the server half of the bidi stream.
type CollaborationCollaborateServer interface {
	Send(*ServerMessage) error
	Recv() (*ClientMessage, error)
	grpc.ServerStream
}

type collaborateServerStream struct {
	grpc.ServerStream
}

func (s *collaborateServerStream) Send(m *ServerMessage) error { return s.ServerStream.SendMsg(m) }

func (s *collaborateServerStream) Recv() (*ClientMessage, error) {
	m := &ClientMessage{}
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func collaborateHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(CollaborationServer).Collaborate(&collaborateServerStream{stream})
}

func getDocumentStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &GetDocumentStateRequest{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CollaborationServer).GetDocumentState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetDocumentState",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CollaborationServer).GetDocumentState(ctx, req.(*GetDocumentStateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getActiveUsersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := &GetActiveUsersRequest{}
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CollaborationServer).GetActiveUsers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetActiveUsers",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CollaborationServer).GetActiveUsers(ctx, req.(*GetActiveUsersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc mirrors what protoc-gen-go-grpc would emit for
// collaboration.proto.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CollaborationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDocumentState", Handler: getDocumentStateHandler},
		{MethodName: "GetActiveUsers", Handler: getActiveUsersHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Collaborate",
			Handler:       collaborateHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "collaboration.proto",
}

func RegisterCollaborationServer(s grpc.ServiceRegistrar, srv CollaborationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// CollaborationClient is the hand-written client side, used by tests and
// by anything embedding the server.
type CollaborationClient interface {
	Collaborate(ctx context.Context, opts ...grpc.CallOption) (CollaborationCollaborateClient, error)
	GetDocumentState(ctx context.Context, in *GetDocumentStateRequest, opts ...grpc.CallOption) (*GetDocumentStateResponse, error)
	GetActiveUsers(ctx context.Context, in *GetActiveUsersRequest, opts ...grpc.CallOption) (*GetActiveUsersResponse, error)
}

// CollaborationCollaborateClient is the client half of the bidi stream.
type CollaborationCollaborateClient interface {
	Send(*ClientMessage) error
	Recv() (*ServerMessage, error)
	grpc.ClientStream
}

type collaborationClient struct {
	cc grpc.ClientConnInterface
}

// NewCollaborationClient builds a client on cc. Dial the connection with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})) so the
// hand-maintained marshalling is used on both legs.
func NewCollaborationClient(cc grpc.ClientConnInterface) CollaborationClient {
	return &collaborationClient{cc: cc}
}

func (c *collaborationClient) Collaborate(ctx context.Context, opts ...grpc.CallOption) (CollaborationCollaborateClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/Collaborate", opts...)
	if err != nil {
		return nil, err
	}
	return &collaborateClientStream{stream}, nil
}

type collaborateClientStream struct {
	grpc.ClientStream
}

func (s *collaborateClientStream) Send(m *ClientMessage) error { return s.ClientStream.SendMsg(m) }

func (s *collaborateClientStream) Recv() (*ServerMessage, error) {
	m := &ServerMessage{}
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *collaborationClient) GetDocumentState(ctx context.Context, in *GetDocumentStateRequest, opts ...grpc.CallOption) (*GetDocumentStateResponse, error) {
	out := &GetDocumentStateResponse{}
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetDocumentState", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *collaborationClient) GetActiveUsers(ctx context.Context, in *GetActiveUsersRequest, opts ...grpc.CallOption) (*GetActiveUsersResponse, error) {
	out := &GetActiveUsersResponse{}
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetActiveUsers", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
