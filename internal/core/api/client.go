package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a PromotionAPI client over any gRPC connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListPromotions(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("ListPromotions"), &emptypb.Empty{}, out, opts...)
}

func (c *Client) GetPromotion(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("GetPromotion"), wrapperspb.String(id), out, opts...)
}

func (c *Client) CreatePromotion(ctx context.Context, form *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("CreatePromotion"), form, out, opts...)
}

func (c *Client) UpdatePromotion(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("UpdatePromotion"), req, out, opts...)
}

func (c *Client) DeletePromotion(ctx context.Context, id string, opts ...grpc.CallOption) (bool, error) {
	out := new(wrapperspb.BoolValue)
	err := c.cc.Invoke(ctx, FullMethod("DeletePromotion"), wrapperspb.String(id), out, opts...)
	return out.GetValue(), err
}

func (c *Client) ValidatePromotion(ctx context.Context, form *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("ValidatePromotion"), form, out, opts...)
}

func (c *Client) ListAttributeCategories(ctx context.Context, entityType string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("ListAttributeCategories"), wrapperspb.String(entityType), out, opts...)
}

func (c *Client) CompilePromotion(ctx context.Context, id string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("CompilePromotion"), wrapperspb.String(id), out, opts...)
}

func (c *Client) GetSummary(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	return out, c.cc.Invoke(ctx, FullMethod("GetSummary"), &emptypb.Empty{}, out, opts...)
}
