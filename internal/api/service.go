package api

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "gophauth.UserService"

const (
	UserService_Register_FullMethodName    = "/gophauth.UserService/Register"
	UserService_Confirm_FullMethodName     = "/gophauth.UserService/Confirm"
	UserService_Token_FullMethodName       = "/gophauth.UserService/Token"
	UserService_CurrentUser_FullMethodName = "/gophauth.UserService/CurrentUser"
	UserService_Status_FullMethodName      = "/gophauth.UserService/Status"
)

// UserServiceServer is implemented by the gRPC façade.
type UserServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Confirm(context.Context, *ConfirmRequest) (*ConfirmResponse, error)
	Token(context.Context, *TokenRequest) (*TokenResponse, error)
	CurrentUser(context.Context, *CurrentUserRequest) (*CurrentUserResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}

// unaryHandler adapts a typed method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](fullMethod string, call func(UserServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(UserServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(UserServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler:    unaryHandler(UserService_Register_FullMethodName, UserServiceServer.Register),
		},
		{
			MethodName: "Confirm",
			Handler:    unaryHandler(UserService_Confirm_FullMethodName, UserServiceServer.Confirm),
		},
		{
			MethodName: "Token",
			Handler:    unaryHandler(UserService_Token_FullMethodName, UserServiceServer.Token),
		},
		{
			MethodName: "CurrentUser",
			Handler:    unaryHandler(UserService_CurrentUser_FullMethodName, UserServiceServer.CurrentUser),
		},
		{
			MethodName: "Status",
			Handler:    unaryHandler(UserService_Status_FullMethodName, UserServiceServer.Status),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/user_service",
}
