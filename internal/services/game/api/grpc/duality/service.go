// Package duality serves duality.v1.DualityService. Messages are
// google.protobuf.Struct values so the service needs no generated stubs.
package duality

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/command"
	"github.com/louisbranch/dualitydice/internal/duality/service"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	grpcmeta "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/dualitydice/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names.
const (
	ServiceName             = "duality.v1.DualityService"
	Execute_FullMethodName  = "/" + ServiceName + "/Execute"
	SetValue_FullMethodName = "/" + ServiceName + "/SetValue"
	GetCard_FullMethodName  = "/" + ServiceName + "/GetCard"
)

const (
	maxRequestMentions        = 16
	defaultErrorMessageLocale = "en"
)

// Backend runs commands and sheet edits. *service.Service implements it.
type Backend interface {
	Execute(ctx context.Context, req service.Request) (command.Reply, error)
	SetValue(ctx context.Context, actor storage.Actor, name string, value int) (attribute.Key, service.Card, error)
	Card(ctx context.Context, actor storage.Actor) (service.Card, error)
}

// DualityServiceServer is the server API for duality.v1.DualityService.
type DualityServiceServer interface {
	Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	SetValue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetCard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// DualityService implements DualityServiceServer on a Backend.
type DualityService struct {
	exec   Backend
	logger *log.Logger
}

// NewDualityService builds the service. A nil logger uses log.Default().
func NewDualityService(exec Backend, logger *log.Logger) *DualityService {
	if logger == nil {
		logger = log.Default()
	}
	return &DualityService{exec: exec, logger: logger}
}

// Execute runs the command line in the request struct:
//
//	{actor_id, actor_name, group_id, text, locale, mentions: [id...]}
//
// and answers {text, ok, show_help, code}. A reply with ok=false is still a
// successful call; only transport-level problems become gRPC errors.
func (s *DualityService) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "execute request is required")
	}
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, toStatus(err)
	}
	if req.Locale == "" {
		req.Locale = grpcmeta.LocaleFromContext(ctx)
	}

	reply, err := s.exec.Execute(ctx, req)
	if err != nil {
		return nil, s.fail(ctx, "execute", req.Actor.ID, err)
	}
	return replyToStruct(reply)
}

// SetValue writes one sheet value:
//
//	{actor_id, actor_name, group_id, name, value}
//
// and answers the card struct described on GetCard plus the resolved key.
func (s *DualityService) SetValue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "set value request is required")
	}
	fields := in.GetFields()
	actor := actorFromFields(fields)
	if actor.ID == "" {
		return nil, toStatus(apperrors.New(apperrors.CodeActorIDRequired, "actor_id is required"))
	}
	value, ok := fields["value"].GetKind().(*structpb.Value_NumberValue)
	if !ok || value.NumberValue != math.Trunc(value.NumberValue) || math.Abs(value.NumberValue) > math.MaxInt32 {
		return nil, toStatus(apperrors.New(apperrors.CodeCommandUsage, "value must be an integer"))
	}

	key, card, err := s.exec.SetValue(ctx, actor, stringField(fields, "name"), int(value.NumberValue))
	if err != nil {
		return nil, s.fail(ctx, "set value", actor.ID, err)
	}
	out, err := cardToStruct(card)
	if err != nil {
		return nil, err
	}
	out.Fields["key"] = structpb.NewStringValue(string(key))
	return out, nil
}

// GetCard answers an actor's stored values and card:
//
//	{actor: {actor_id, name, group_id}, values: {key: n}, card}
func (s *DualityService) GetCard(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get card request is required")
	}
	actor := actorFromFields(in.GetFields())
	card, err := s.exec.Card(ctx, actor)
	if err != nil {
		return nil, s.fail(ctx, "get card", actor.ID, err)
	}
	return cardToStruct(card)
}

func (s *DualityService) fail(ctx context.Context, op, actorID string, err error) error {
	if code := apperrors.CodeOf(err); code == apperrors.CodeUnknown || code.Retryable() {
		s.logger.Printf("%s request_id=%s actor=%q: %v", op, grpcmeta.RequestIDFromContext(ctx), actorID, err)
	}
	return toStatus(err)
}

func actorFromFields(fields map[string]*structpb.Value) storage.Actor {
	return storage.Actor{
		ID:      stringField(fields, "actor_id"),
		Name:    stringField(fields, "actor_name"),
		GroupID: stringField(fields, "group_id"),
	}
}

func cardToStruct(card service.Card) (*structpb.Struct, error) {
	values := make(map[string]any, len(card.Values))
	for key, value := range card.Values {
		values[key] = value
	}
	out, err := structpb.NewStruct(map[string]any{
		"actor": map[string]any{
			"actor_id": card.Actor.ID,
			"name":     card.Actor.Name,
			"group_id": card.Actor.GroupID,
		},
		"values": values,
		"card":   card.Text,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode card: %v", err)
	}
	return out, nil
}

func requestFromStruct(in *structpb.Struct) (service.Request, error) {
	fields := in.GetFields()
	req := service.Request{
		Actor:  actorFromFields(fields),
		Text:   stringField(fields, "text"),
		Locale: stringField(fields, "locale"),
	}
	if req.Text == "" {
		return service.Request{}, apperrors.New(apperrors.CodeCommandEmpty, "text is required")
	}
	// A missing actor is answered by the command layer; alias and help
	// lookups do not need one.
	if req.Actor.Name == "" {
		req.Actor.Name = req.Actor.ID
	}

	mentions := fields["mentions"].GetListValue().GetValues()
	if len(mentions) > maxRequestMentions {
		return service.Request{}, apperrors.New(apperrors.CodeCommandUsage, "too many mentions")
	}
	for _, value := range mentions {
		if id := strings.TrimSpace(value.GetStringValue()); id != "" {
			req.Mentions = append(req.Mentions, id)
		}
	}
	return req, nil
}

func stringField(fields map[string]*structpb.Value, key string) string {
	return strings.TrimSpace(fields[key].GetStringValue())
}

func replyToStruct(reply command.Reply) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{
		"text":      reply.Text,
		"ok":        reply.OK,
		"show_help": reply.ShowHelp,
		"code":      string(reply.Code),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.ToGRPCStatus(defaultErrorMessageLocale, domainErr.Message)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, "execute timed out")
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, "execute canceled")
	}
	return status.Error(codes.Internal, "execute failed")
}

// RegisterDualityServiceServer registers srv on s.
func RegisterDualityServiceServer(s grpc.ServiceRegistrar, srv DualityServiceServer) {
	s.RegisterService(&DualityService_ServiceDesc, srv)
}

type structMethod func(DualityServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DualityServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DualityServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// DualityService_ServiceDesc describes duality.v1.DualityService.
var DualityService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DualityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: unaryHandler(Execute_FullMethodName, DualityServiceServer.Execute)},
		{MethodName: "SetValue", Handler: unaryHandler(SetValue_FullMethodName, DualityServiceServer.SetValue)},
		{MethodName: "GetCard", Handler: unaryHandler(GetCard_FullMethodName, DualityServiceServer.GetCard)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "duality/v1/duality.proto",
}

// Client calls duality.v1.DualityService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Execute sends a command request struct.
func (c *Client) Execute(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, Execute_FullMethodName, in, opts...)
}

// SetValue sends a sheet write.
func (c *Client) SetValue(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, SetValue_FullMethodName, in, opts...)
}

// GetCard reads an actor's card.
func (c *Client) GetCard(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, GetCard_FullMethodName, in, opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
