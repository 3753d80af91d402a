package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/solatis/querykeeper/internal/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * RuleTreeService exposes Validate and Annotate over gRPC.
 *
 * Trees travel as google.protobuf.Struct holding the same JSON document the
 * HTTP service accepts, so no generated message types are needed. The
 * service descriptor is declared here in the shape protoc-gen-go-grpc emits.
 */

// RuleTreeServiceName is the fully qualified gRPC service name.
const RuleTreeServiceName = "querykeeper.ruletree.v1.RuleTreeService"

// Full method names, also the signed path for request signatures.
const (
	RuleTreeValidateMethod = "/" + RuleTreeServiceName + "/Validate"
	RuleTreeAnnotateMethod = "/" + RuleTreeServiceName + "/Annotate"
)

// RuleTreeServer is the server API for RuleTreeService.
type RuleTreeServer interface {
	Validate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Annotate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RuleTreeServiceDesc describes RuleTreeService for grpc.Server.RegisterService.
var RuleTreeServiceDesc = grpc.ServiceDesc{
	ServiceName: RuleTreeServiceName,
	HandlerType: (*RuleTreeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: ruleTreeValidateHandler},
		{MethodName: "Annotate", Handler: ruleTreeAnnotateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "querykeeper/ruletree/v1/ruletree.proto",
}

// RegisterRuleTreeServer registers srv on s.
func RegisterRuleTreeServer(s grpc.ServiceRegistrar, srv RuleTreeServer) {
	s.RegisterService(&RuleTreeServiceDesc, srv)
}

func ruleTreeValidateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RuleTreeServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RuleTreeValidateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RuleTreeServer).Validate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func ruleTreeAnnotateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RuleTreeServer).Annotate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RuleTreeAnnotateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RuleTreeServer).Annotate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RuleTreeClient is the client API for RuleTreeService.
type RuleTreeClient struct {
	cc grpc.ClientConnInterface
}

// NewRuleTreeClient wraps a connection.
func NewRuleTreeClient(cc grpc.ClientConnInterface) *RuleTreeClient {
	return &RuleTreeClient{cc: cc}
}

// Validate calls RuleTreeService.Validate.
func (c *RuleTreeClient) Validate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RuleTreeValidateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Annotate calls RuleTreeService.Annotate.
func (c *RuleTreeClient) Annotate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, RuleTreeAnnotateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RuleTreeGRPC adapts Service to RuleTreeServer.
type RuleTreeGRPC struct {
	svc *Service
}

// NewRuleTreeGRPC creates the gRPC facade over svc.
func NewRuleTreeGRPC(svc *Service) *RuleTreeGRPC {
	return &RuleTreeGRPC{svc: svc}
}

// Validate returns {complete, empty, issues, annotated} for the tree in req.
func (g *RuleTreeGRPC) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tree, err := TreeFromStruct(req)
	if err != nil {
		return nil, treeStatus(err)
	}
	return toStruct(g.svc.Validate(tree))
}

// Annotate returns the annotated tree.
func (g *RuleTreeGRPC) Annotate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tree, err := TreeFromStruct(req)
	if err != nil {
		return nil, treeStatus(err)
	}
	return toStruct(g.svc.engine.Annotate(tree))
}

// TreeFromStruct decodes a rule tree carried in a Struct.
func TreeFromStruct(s *structpb.Struct) (*types.RuleGroup, error) {
	if s == nil {
		return nil, types.ErrInvalidTree
	}
	body, err := s.MarshalJSON()
	if err != nil {
		return nil, errors.Join(types.ErrInvalidTree, err)
	}
	return types.DecodeTree(body)
}

// TreeToStruct encodes tree as a Struct.
func TreeToStruct(tree *types.RuleGroup) (*structpb.Struct, error) {
	return toStruct(tree)
}

func toStruct(v any) (*structpb.Struct, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := out.UnmarshalJSON(body); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func treeStatus(err error) error {
	if errors.Is(err, types.ErrTreeTooDeep) {
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.InvalidArgument, err.Error())
}
