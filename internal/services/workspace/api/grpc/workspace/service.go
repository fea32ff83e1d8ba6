// Package workspace exposes the bindable dispatcher as the
// workspace.v1.BindableService gRPC API.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/platform/errors/i18n"
	"github.com/louisbranch/workspace/internal/platform/requestctx"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request and response field names.
const (
	FieldBindable = "bindable"
	FieldAction   = "action"
	FieldPayload  = "payload"
	FieldValue    = "value"
	FieldModules  = "modules"
	FieldCounts   = "counts"
)

// MetadataBindable names the unresolved bindable in ErrorInfo metadata.
const MetadataBindable = "bindable"

// LocaleHeader is the incoming metadata key carrying the caller locale.
const LocaleHeader = "x-workspace-locale"

// Service implements BindableServiceServer over a local backend.
type Service struct {
	UnimplementedBindableServiceServer
	backend surface.Backend
	locale  string
}

// NewService creates the gRPC service.
func NewService(backend surface.Backend, locale string) *Service {
	if strings.TrimSpace(locale) == "" {
		locale = i18n.BaseLocale
	}
	return &Service{backend: backend, locale: locale}
}

// Dispatch runs one action. Binding failures are returned as gRPC statuses
// carrying ErrorInfo and LocalizedMessage details.
func (s *Service) Dispatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "dispatch request is required")
	}
	if s == nil || s.backend == nil {
		return nil, status.Error(codes.Internal, "bindable backend is not configured")
	}
	fields := in.GetFields()
	name := strings.TrimSpace(fields[FieldBindable].GetStringValue())
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "bindable is required")
	}
	action := bindable.Action(strings.TrimSpace(fields[FieldAction].GetStringValue()))
	payload := bindable.Payload(fields[FieldPayload].GetStructValue().AsMap())

	locale := s.callerLocale(ctx)
	ctx = requestctx.WithLocale(ctx, locale)
	result, err := s.backend.Dispatch(ctx, name, action, payload)
	if err != nil {
		if errors.Is(err, dispatch.ErrBindableNotFound) {
			meta := map[string]string{"Name": name}
			message := i18n.GetCatalog(locale).Format(i18n.KeyBindableNotFound, meta)
			return nil, apperrors.StatusWithDetails(apperrors.CodeNotFound, message, map[string]string{MetadataBindable: name}, locale, message)
		}
		return nil, status.Error(codes.Internal, "dispatch failed")
	}
	if f, failed := result.Failure(); failed {
		if f.Code == apperrors.CodeInternal {
			log.Printf("workspace grpc: %s %s failed internally", name, action)
		}
		return nil, apperrors.StatusWithDetails(f.Code, f.Message, nil, locale, f.Message)
	}

	value, err := toValue(result.Value())
	if err != nil {
		log.Printf("workspace grpc: encode %s %s value: %v", name, action, err)
		return nil, status.Error(codes.Internal, "encode result")
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{FieldValue: value}}, nil
}

// ListBindables returns the modules in scan order with their bindables.
func (s *Service) ListBindables(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.backend == nil {
		return nil, status.Error(codes.Internal, "bindable backend is not configured")
	}
	sections, err := s.backend.Sections(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "list bindables")
	}
	return wrap(FieldModules, sections)
}

// Counts returns the dashboard counts.
func (s *Service) Counts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.backend == nil {
		return nil, status.Error(codes.Internal, "bindable backend is not configured")
	}
	items, err := s.backend.Dashboard(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "count bindables")
	}
	return wrap(FieldCounts, items)
}

func (s *Service) callerLocale(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(LocaleHeader); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return i18n.GetCatalog(values[0]).Locale()
		}
	}
	return i18n.GetCatalog(s.locale).Locale()
}

func wrap(field string, value any) (*structpb.Struct, error) {
	v, err := toValue(value)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode %s", field))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{field: v}}, nil
}

// toValue converts any JSON-encodable value into a protobuf Value. Values go
// through encoding/json first so typed slices and structs are accepted.
func toValue(value any) (*structpb.Value, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
