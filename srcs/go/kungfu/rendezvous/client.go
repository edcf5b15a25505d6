package rendezvous

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a rendezvous Server.
type Client struct {
	conn *grpc.ClientConn
}

func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "dial rendezvous %s", addr)
	}
	return &Client{conn: conn}, nil
}

// Join blocks until the group is complete and returns the rank ordered addresses.
func (c *Client) Join(ctx context.Context, req JoinRequest) ([]string, error) {
	in, err := req.toProto()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, joinMethod, in, out, grpc.WaitForReady(true)); err != nil {
		return nil, err
	}
	addrs := peersFromProto(out)
	if len(addrs) != req.NRanks {
		return nil, errors.Errorf("rendezvous %s returned %d peers, want %d", req.key(), len(addrs), req.NRanks)
	}
	return addrs, nil
}

func (c *Client) Leave(ctx context.Context, req JoinRequest) error {
	in, err := req.toProto()
	if err != nil {
		return errors.WithStack(err)
	}
	return c.conn.Invoke(ctx, leaveMethod, in, new(emptypb.Empty))
}

func (c *Client) Close() error {
	return c.conn.Close()
}
