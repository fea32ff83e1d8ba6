package workspace

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/dispatch"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	"github.com/louisbranch/workspace/internal/modules/demo"
	"github.com/louisbranch/workspace/internal/modules/scripting"
	apperrors "github.com/louisbranch/workspace/internal/platform/errors"
	"github.com/louisbranch/workspace/internal/services/workspace/surface"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	mods := []registry.Module{demo.New(), scripting.New()}
	catalog := registry.NewCatalog(func() []registry.Module { return mods }, registry.Options{Logf: func(string, ...any) {}})
	d := dispatch.New(catalog, dispatch.WithLogger(func(string, ...any) {}))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer()
	RegisterBindableServiceServer(server, NewService(surface.Local{Dispatcher: d, Navigator: catalog}, ""))
	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dispatchRequest(t *testing.T, name, action string, payload map[string]any) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{"bindable": name, "action": action, "payload": payload})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func TestDispatchRoundTrip(t *testing.T) {
	rpc := NewBindableServiceClient(startServer(t))
	ctx := context.Background()

	resp, err := rpc.Dispatch(ctx, dispatchRequest(t, "widget", "create", map[string]any{"name": "Foo"}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	value := resp.GetFields()[FieldValue].GetStructValue().AsMap()
	if value["id"] != float64(1) || value["name"] != "Foo" {
		t.Fatalf("created = %v", value)
	}

	list, err := rpc.Dispatch(ctx, dispatchRequest(t, "widget", "list", nil))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	records := list.GetFields()[FieldValue].GetStructValue().GetFields()["records"].GetListValue().GetValues()
	if len(records) != 1 {
		t.Fatalf("records = %v", records)
	}
}

func TestDispatchFailureCarriesDetails(t *testing.T) {
	rpc := NewBindableServiceClient(startServer(t))

	_, err := rpc.Dispatch(context.Background(), dispatchRequest(t, "widget", "read", map[string]any{"id": "9"}))
	st, _ := status.FromError(err)
	if st.Code() != codes.NotFound {
		t.Fatalf("code = %v, want NotFound", st.Code())
	}
	var reason string
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			reason = info.GetReason()
		}
	}
	if reason != string(apperrors.CodeNotFound) {
		t.Fatalf("reason = %q", reason)
	}

	_, err = rpc.Dispatch(context.Background(), dispatchRequest(t, "widget", "launch", nil))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("unsupported action code = %v", status.Code(err))
	}

	_, err = rpc.Dispatch(context.Background(), dispatchRequest(t, "", "list", nil))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing bindable code = %v", status.Code(err))
	}
}

func TestDispatchUnknownBindableIsLocalized(t *testing.T) {
	rpc := NewBindableServiceClient(startServer(t))
	ctx := metadata.AppendToOutgoingContext(context.Background(), LocaleHeader, "pt-BR")

	_, err := rpc.Dispatch(ctx, dispatchRequest(t, "gadget", "list", nil))
	st, _ := status.FromError(err)
	if st.Code() != codes.NotFound {
		t.Fatalf("code = %v", st.Code())
	}
	for _, detail := range st.Details() {
		if msg, ok := detail.(*errdetails.LocalizedMessage); ok {
			if msg.GetLocale() != "pt-BR" || msg.GetMessage() != "Nenhum recurso encontrado: gadget" {
				t.Fatalf("localized = %s %q", msg.GetLocale(), msg.GetMessage())
			}
			return
		}
	}
	t.Fatal("missing LocalizedMessage detail")
}

func TestClientImplementsBackend(t *testing.T) {
	var backend surface.Backend = NewClient(startServer(t))
	ctx := context.Background()

	created, err := backend.Dispatch(ctx, "macro", bindable.ActionCreate, bindable.Payload{"name": "add", "source": "return args.a + args.b"})
	if err != nil || !created.IsSuccess() {
		t.Fatalf("create macro: %v %+v", err, created)
	}
	id, _ := bindable.Payload(created.Value().(map[string]any)).ID()

	ran, err := backend.Dispatch(ctx, "macro", bindable.ActionExecute, bindable.Payload{"id": id, "a": 1, "b": 2})
	if err != nil || !ran.IsSuccess() {
		t.Fatalf("execute macro: %v %+v", err, ran)
	}
	if got := ran.Value().(map[string]any)["result"]; got != float64(3) {
		t.Fatalf("result = %v", got)
	}

	missing, err := backend.Dispatch(ctx, "macro", bindable.ActionRead, bindable.Payload{"id": "77"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if f, ok := missing.Failure(); !ok || f.Code != apperrors.CodeNotFound {
		t.Fatalf("missing = %+v", missing)
	}

	if _, err := backend.Dispatch(ctx, "gadget", bindable.ActionList, nil); !errors.Is(err, dispatch.ErrBindableNotFound) {
		t.Fatalf("unknown err = %v", err)
	}

	sections, err := backend.Sections(ctx)
	if err != nil || len(sections) != 2 || sections[0].Bindables[0].Href != "/widgets" {
		t.Fatalf("sections = %+v, %v", sections, err)
	}
	items, err := backend.Dashboard(ctx)
	if err != nil || len(items) != 2 {
		t.Fatalf("dashboard = %+v, %v", items, err)
	}
	for _, item := range items {
		if item.Name == "macro" && item.Count != 1 {
			t.Fatalf("macro count = %d", item.Count)
		}
	}
}

func TestServiceWithoutBackend(t *testing.T) {
	var s *Service
	if _, err := s.Counts(context.Background(), nil); status.Code(err) != codes.Internal {
		t.Fatalf("Counts on nil service = %v", err)
	}
	if _, err := NewService(nil, "").Dispatch(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("nil request = %v", err)
	}
}

func TestServiceDescMatchesClientMethods(t *testing.T) {
	invoked := map[string]bool{dispatchMethod: true, listBindablesMethod: true, countsMethod: true}
	if len(BindableServiceDesc.Methods) != len(invoked) {
		t.Fatalf("methods = %d, want %d", len(BindableServiceDesc.Methods), len(invoked))
	}
	for _, m := range BindableServiceDesc.Methods {
		if full := "/" + BindableServiceDesc.ServiceName + "/" + m.MethodName; !invoked[full] {
			t.Fatalf("method %s is not invoked by the client", full)
		}
	}
	if BindableServiceDesc.Metadata != nil {
		t.Fatalf("metadata = %v, want none for a hand-written descriptor", BindableServiceDesc.Metadata)
	}
}
