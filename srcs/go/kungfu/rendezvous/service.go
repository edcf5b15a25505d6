// Package rendezvous is the group formation service. Every rank of a group
// joins with its endpoint address; the call returns once all ranks have
// joined, with the endpoints ordered by rank.
package rendezvous

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "kungfu.ccl.Rendezvous"
	joinMethod  = "/" + serviceName + "/Join"
	leaveMethod = "/" + serviceName + "/Leave"
)

// NewGroupID returns a fresh group id for bootstrap.
func NewGroupID() string {
	return uuid.NewString()
}

// JoinRequest announces one rank of a group.
type JoinRequest struct {
	Group  string
	Ring   int
	NRanks int
	Rank   int
	Addr   string
}

func (r JoinRequest) key() groupKey {
	return groupKey{group: r.Group, ring: r.Ring}
}

func (r JoinRequest) toProto() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"group":  r.Group,
		"ring":   r.Ring,
		"nranks": r.NRanks,
		"rank":   r.Rank,
		"addr":   r.Addr,
	})
}

func joinRequestFromProto(s *structpb.Struct) (JoinRequest, error) {
	f := s.GetFields()
	for _, k := range []string{"group", "ring", "nranks", "rank"} {
		if _, ok := f[k]; !ok {
			return JoinRequest{}, status.Errorf(codes.InvalidArgument, "missing field %q", k)
		}
	}
	return JoinRequest{
		Group:  f["group"].GetStringValue(),
		Ring:   int(f["ring"].GetNumberValue()),
		NRanks: int(f["nranks"].GetNumberValue()),
		Rank:   int(f["rank"].GetNumberValue()),
		Addr:   f["addr"].GetStringValue(),
	}, nil
}

func peersToProto(addrs []string) (*structpb.Struct, error) {
	vs := make([]interface{}, len(addrs))
	for i, a := range addrs {
		vs[i] = a
	}
	return structpb.NewStruct(map[string]interface{}{"peers": vs})
}

func peersFromProto(s *structpb.Struct) []string {
	var addrs []string
	for _, v := range s.GetFields()["peers"].GetListValue().GetValues() {
		addrs = append(addrs, v.GetStringValue())
	}
	return addrs
}

// RendezvousServer is the server API of the service.
type RendezvousServer interface {
	Join(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Leave(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

func joinHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RendezvousServer).Join(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: joinMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RendezvousServer).Join(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func leaveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RendezvousServer).Leave(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: leaveMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RendezvousServer).Leave(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc registers a RendezvousServer on a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RendezvousServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Join", Handler: joinHandler},
		{MethodName: "Leave", Handler: leaveHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kungfu/rendezvous.proto",
}
