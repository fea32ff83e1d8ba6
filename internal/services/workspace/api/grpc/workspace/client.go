package workspace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a surface.Backend served by a remote BindableService.
type Client struct {
	rpc BindableServiceClient
}

// NewClient wraps a connection to a workspace gRPC server.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: NewBindableServiceClient(cc)}
}

// Dispatch calls the named bindable remotely. Failure statuses are turned
// back into failure results; an unknown bindable yields
// dispatch.ErrBindableNotFound.
func (c *Client) Dispatch(ctx context.Context, name string, action bindable.Action, payload bindable.Payload) (bindable.Result, error) {
	generic, err := normalize(payload)
	if err != nil {
		return bindable.Result{}, fmt.Errorf("encode payload: %w", err)
	}
	payloadStruct, err := structpb.NewStruct(generic)
	if err != nil {
		return bindable.Result{}, fmt.Errorf("encode payload: %w", err)
	}
	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldBindable: structpb.NewStringValue(name),
		FieldAction:   structpb.NewStringValue(string(action)),
		FieldPayload:  structpb.NewStructValue(payloadStruct),
	}}

	resp, err := c.rpc.Dispatch(ctx, req)
	if err != nil {
		return failureFromStatus(name, err)
	}
	return bindable.Success(resp.GetFields()[FieldValue].AsInterface()), nil
}

// Sections returns the remote module navigation.
func (c *Client) Sections(ctx context.Context) ([]surface.Section, error) {
	resp, err := c.rpc.ListBindables(ctx, &structpb.Struct{})
	if err != nil {
		return nil, fmt.Errorf("list bindables: %w", err)
	}
	var sections []surface.Section
	if err := decode(resp.GetFields()[FieldModules], &sections); err != nil {
		return nil, fmt.Errorf("decode bindables: %w", err)
	}
	return sections, nil
}

// Dashboard returns the remote dashboard counts.
func (c *Client) Dashboard(ctx context.Context) ([]surface.DashboardItem, error) {
	resp, err := c.rpc.Counts(ctx, &structpb.Struct{})
	if err != nil {
		return nil, fmt.Errorf("count bindables: %w", err)
	}
	var items []surface.DashboardItem
	if err := decode(resp.GetFields()[FieldCounts], &items); err != nil {
		return nil, fmt.Errorf("decode counts: %w", err)
	}
	return items, nil
}

func failureFromStatus(name string, err error) (bindable.Result, error) {
	st, ok := status.FromError(err)
	if !ok {
		return bindable.Result{}, err
	}
	code := apperrors.CodeUnknown
	message := st.Message()
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			if d.GetMetadata()[MetadataBindable] != "" {
				return bindable.Result{}, fmt.Errorf("%w: %q", dispatch.ErrBindableNotFound, name)
			}
			if candidate := apperrors.Code(d.GetReason()); candidate.Known() {
				code = candidate
			}
		case *errdetails.LocalizedMessage:
			if d.GetMessage() != "" {
				message = d.GetMessage()
			}
		}
	}
	if code == apperrors.CodeUnknown {
		// Transport failures without details never reached a binding.
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
			return bindable.FromError(apperrors.Wrap(apperrors.CodeUnavailable, st.Message(), err)), nil
		default:
			return bindable.Result{}, err
		}
	}
	return bindable.Fail(code, message), nil
}

// normalize round-trips payload through JSON so structpb accepts it.
func normalize(payload bindable.Payload) (map[string]any, error) {
	out := map[string]any{}
	if len(payload) == 0 {
		return out, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decode(value *structpb.Value, target any) error {
	if value == nil {
		return nil
	}
	data, err := json.Marshal(value.AsInterface())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
