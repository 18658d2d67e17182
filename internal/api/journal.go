package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name of the journal API.
const ServiceName = "moodtrack.v1.Journal"

// Journal RPC method names.
const (
	MethodAddEntry     = "AddEntry"
	MethodUpdateEntry  = "UpdateEntry"
	MethodDeleteEntry  = "DeleteEntry"
	MethodGetEntry     = "GetEntry"
	MethodListEntries  = "ListEntries"
	MethodMonthSummary = "MonthSummary"
	MethodStatus       = "Status"
)

// JournalServer is the server API for the moodtrack.v1.Journal service.
// Every request and response is a google.protobuf.Struct.
type JournalServer interface {
	AddEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MonthSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Status(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type journalCall func(JournalServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call journalCall) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(JournalServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(JournalServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// JournalServiceDesc describes moodtrack.v1.Journal for grpc.Server.
var JournalServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JournalServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodAddEntry, JournalServer.AddEntry),
		unary(MethodUpdateEntry, JournalServer.UpdateEntry),
		unary(MethodDeleteEntry, JournalServer.DeleteEntry),
		unary(MethodGetEntry, JournalServer.GetEntry),
		unary(MethodListEntries, JournalServer.ListEntries),
		unary(MethodMonthSummary, JournalServer.MonthSummary),
		unary(MethodStatus, JournalServer.Status),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moodtrack/v1/journal.proto",
}

// RegisterJournalServer registers srv on s.
func RegisterJournalServer(s grpc.ServiceRegistrar, srv JournalServer) {
	s.RegisterService(&JournalServiceDesc, srv)
}
