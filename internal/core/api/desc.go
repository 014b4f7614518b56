package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

/*
 * PromotionAPI wire contract.
 *
 * Messages are protobuf well-known types so no generated code is needed:
 * promotions, forms and results travel as google.protobuf.Struct holding
 * the same JSON documents the CLI reads and writes. Ids travel as
 * google.protobuf.StringValue.
 *
 *   ListPromotions          Empty        -> Struct{promotions, etag}
 *   GetPromotion            StringValue  -> Struct(promotion)
 *   CreatePromotion         Struct(form) -> Struct(promotion)
 *   UpdatePromotion         Struct{id, form} -> Struct(promotion)
 *   DeletePromotion         StringValue  -> BoolValue
 *   ValidatePromotion       Struct(form) -> Struct{valid, errors}
 *   ListAttributeCategories StringValue(entity type, "" = all) -> Struct{categories}
 *   CompilePromotion        StringValue  -> Struct{qualifier, target, rules}
 *   GetSummary              Empty        -> Struct{total, active, withOrConditions}
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "promokeeper.promotion.v1.PromotionAPI"

// PromotionAPIServer is the server side of PromotionAPI.
type PromotionAPIServer interface {
	ListPromotions(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPromotion(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CreatePromotion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePromotion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeletePromotion(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	ValidatePromotion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAttributeCategories(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CompilePromotion(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc registers a PromotionAPIServer on a grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PromotionAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPromotions", Handler: unary[emptypb.Empty]("ListPromotions", PromotionAPIServer.ListPromotions)},
		{MethodName: "GetPromotion", Handler: unary[wrapperspb.StringValue]("GetPromotion", PromotionAPIServer.GetPromotion)},
		{MethodName: "CreatePromotion", Handler: unary[structpb.Struct]("CreatePromotion", PromotionAPIServer.CreatePromotion)},
		{MethodName: "UpdatePromotion", Handler: unary[structpb.Struct]("UpdatePromotion", PromotionAPIServer.UpdatePromotion)},
		{MethodName: "DeletePromotion", Handler: unary[wrapperspb.StringValue]("DeletePromotion", PromotionAPIServer.DeletePromotion)},
		{MethodName: "ValidatePromotion", Handler: unary[structpb.Struct]("ValidatePromotion", PromotionAPIServer.ValidatePromotion)},
		{MethodName: "ListAttributeCategories", Handler: unary[wrapperspb.StringValue]("ListAttributeCategories", PromotionAPIServer.ListAttributeCategories)},
		{MethodName: "CompilePromotion", Handler: unary[wrapperspb.StringValue]("CompilePromotion", PromotionAPIServer.CompilePromotion)},
		{MethodName: "GetSummary", Handler: unary[emptypb.Empty]("GetSummary", PromotionAPIServer.GetSummary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "promokeeper/promotion/v1/promotion_api.proto",
}

// RegisterPromotionAPIServer registers srv with s.
func RegisterPromotionAPIServer(s grpc.ServiceRegistrar, srv PromotionAPIServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FullMethod returns the "/service/method" path of a PromotionAPI method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a typed method to grpc.MethodHandler, decoding into a fresh
// Req and routing through the server's interceptor chain.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](method string, call func(PromotionAPIServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(PromotionAPIServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}
