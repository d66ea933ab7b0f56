package dualityctl

import (
	"context"
	"fmt"
	"math"

	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/command"
	"github.com/louisbranch/dualitydice/internal/duality/service"
	apperrors "github.com/louisbranch/dualitydice/internal/platform/errors"
	platformgrpc "github.com/louisbranch/dualitydice/internal/platform/grpc"
	"github.com/louisbranch/dualitydice/internal/platform/timeouts"
	dualitygrpc "github.com/louisbranch/dualitydice/internal/services/game/api/grpc/duality"
	"github.com/louisbranch/dualitydice/internal/storage"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// remoteBackend runs commands on a game service over gRPC.
type remoteBackend struct {
	conn   *grpc.ClientConn
	client *dualitygrpc.Client
}

func dialRemote(ctx context.Context, addr string) (*remoteBackend, error) {
	conn, err := platformgrpc.Dial(ctx, platformgrpc.DialConfig{
		Addr:          addr,
		HealthService: dualitygrpc.ServiceName,
		Timeout:       timeouts.GRPCDial,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to game server at %s: %w", addr, err)
	}
	return newRemoteBackend(conn), nil
}

func newRemoteBackend(conn *grpc.ClientConn) *remoteBackend {
	return &remoteBackend{conn: conn, client: dualitygrpc.NewClient(conn)}
}

func (r *remoteBackend) Close() error {
	return r.conn.Close()
}

func (r *remoteBackend) Execute(ctx context.Context, req service.Request) (command.Reply, error) {
	mentions := make([]any, 0, len(req.Mentions))
	for _, m := range req.Mentions {
		mentions = append(mentions, m)
	}
	in, err := structpb.NewStruct(map[string]any{
		"actor_id":   req.Actor.ID,
		"actor_name": req.Actor.Name,
		"group_id":   req.Actor.GroupID,
		"text":       req.Text,
		"locale":     req.Locale,
		"mentions":   mentions,
	})
	if err != nil {
		return command.Reply{}, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	out, err := r.client.Execute(callCtx, in)
	if err != nil {
		return command.Reply{}, fromStatus(err)
	}
	fields := out.GetFields()
	return command.Reply{
		Text:     fields["text"].GetStringValue(),
		OK:       fields["ok"].GetBoolValue(),
		ShowHelp: fields["show_help"].GetBoolValue(),
		Code:     apperrors.Code(fields["code"].GetStringValue()),
	}, nil
}

func (r *remoteBackend) SetValue(ctx context.Context, actor storage.Actor, name string, value int) (attribute.Key, service.Card, error) {
	in, err := structpb.NewStruct(map[string]any{
		"actor_id":   actor.ID,
		"actor_name": actor.Name,
		"group_id":   actor.GroupID,
		"name":       name,
		"value":      value,
	})
	if err != nil {
		return "", service.Card{}, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	out, err := r.client.SetValue(callCtx, in)
	if err != nil {
		return "", service.Card{}, fromStatus(err)
	}
	return attribute.Key(out.GetFields()["key"].GetStringValue()), cardFromStruct(out), nil
}

func (r *remoteBackend) Card(ctx context.Context, actor storage.Actor) (service.Card, error) {
	in, err := structpb.NewStruct(map[string]any{"actor_id": actor.ID})
	if err != nil {
		return service.Card{}, fmt.Errorf("encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeouts.GRPCRequest)
	defer cancel()
	out, err := r.client.GetCard(callCtx, in)
	if err != nil {
		return service.Card{}, fromStatus(err)
	}
	return cardFromStruct(out), nil
}

func cardFromStruct(out *structpb.Struct) service.Card {
	fields := out.GetFields()
	actor := fields["actor"].GetStructValue().GetFields()
	values := make(map[string]int)
	for key, value := range fields["values"].GetStructValue().GetFields() {
		values[key] = int(math.Round(value.GetNumberValue()))
	}
	return service.Card{
		Actor: storage.Actor{
			ID:      actor["actor_id"].GetStringValue(),
			Name:    actor["name"].GetStringValue(),
			GroupID: actor["group_id"].GetStringValue(),
		},
		Values: values,
		Text:   fields["card"].GetStringValue(),
	}
}

// fromStatus restores the domain code carried in a status's ErrorInfo.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == apperrors.Domain {
			return apperrors.Wrap(apperrors.Code(info.GetReason()), st.Message(), err)
		}
	}
	return err
}
