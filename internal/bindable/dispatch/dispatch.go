// Package dispatch resolves bindable names and invokes bindings, turning every
// fault into a failure Result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/louisbranch/workspace/internal/bindable"
	"github.com/louisbranch/workspace/internal/bindable/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/workspace/internal/bindable/dispatch"

// ErrBindableNotFound is returned before dispatch when a name does not resolve.
var ErrBindableNotFound = errors.New("bindable not found")

// Resolver looks up registered bindables. *registry.Catalog and
// *registry.Registry both satisfy it.
type Resolver interface {
	Lookup(name string) (registry.Descriptor, bool)
	Names() []string
}

// Dispatcher invokes bindings on the caller's goroutine. It never cancels,
// retries or propagates a fault.
type Dispatcher struct {
	resolver Resolver
	tracer   trace.Tracer
	metrics  *Metrics
	logf     func(string, ...any)
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTracer overrides the tracer used for dispatch spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithMetrics records dispatch counts and latency.
func WithMetrics(metrics *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = metrics }
}

// WithLogger overrides log.Printf for fault reports.
func WithLogger(logf func(string, ...any)) Option {
	return func(d *Dispatcher) {
		if logf != nil {
			d.logf = logf
		}
	}
}

// New creates a dispatcher over resolver.
func New(resolver Resolver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		tracer:   otel.Tracer(tracerName),
		logf:     log.Printf,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Names returns every resolvable bindable name.
func (d *Dispatcher) Names() []string {
	if d == nil || d.resolver == nil {
		return nil
	}
	return d.resolver.Names()
}

// Resolve returns the descriptor for name or ErrBindableNotFound.
func (d *Dispatcher) Resolve(name string) (registry.Descriptor, error) {
	name = strings.TrimSpace(name)
	if d == nil || d.resolver == nil || name == "" {
		return registry.Descriptor{}, fmt.Errorf("%w: %q", ErrBindableNotFound, name)
	}
	desc, ok := d.resolver.Lookup(name)
	if !ok {
		return registry.Descriptor{}, fmt.Errorf("%w: %q", ErrBindableNotFound, name)
	}
	return desc, nil
}

// Call resolves name and dispatches action. The error is non-nil only when
// the name does not resolve.
func (d *Dispatcher) Call(ctx context.Context, name string, action bindable.Action, payload bindable.Payload) (bindable.Result, error) {
	desc, err := d.Resolve(name)
	if err != nil {
		return bindable.Result{}, err
	}
	return d.Dispatch(ctx, desc, action, payload), nil
}

// Dispatch builds a fresh binding from desc and hands it one ActionContext.
//
// The payload is forwarded untouched and ID is lifted from payload["id"].
// Panics, a nil binding and unset results become an internal failure; the
// detail is logged, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, desc registry.Descriptor, action bindable.Action, payload bindable.Payload) (result bindable.Result) {
	if ctx == nil {
		ctx = context.Background()
	}
	if payload == nil {
		payload = bindable.Payload{}
	}

	ctx, span := d.spanTracer().Start(ctx, "bindable.dispatch", trace.WithAttributes(
		attribute.String("bindable.name", desc.Name),
		attribute.String("bindable.module", desc.Module),
		attribute.String("bindable.action", string(action)),
	))
	started := d.clock()
	defer func() {
		if recovered := recover(); recovered != nil {
			d.report("dispatch: bindable=%s action=%s panic=%v\n%s", desc.Name, action, recovered, debug.Stack())
			result = bindable.Internal()
		}
		outcome := Outcome(result)
		span.SetAttributes(attribute.String("bindable.outcome", outcome))
		if result.IsFailure() {
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		d.observer().observe(desc.Name, action, outcome, d.clock().Sub(started))
	}()

	if !action.Valid() {
		return bindable.Unsupported(action)
	}
	if desc.Factory == nil {
		d.report("dispatch: bindable=%s has no factory", desc.Name)
		return bindable.Internal()
	}
	binding := desc.Factory()
	if binding == nil {
		d.report("dispatch: bindable=%s factory yielded no binding", desc.Name)
		return bindable.Internal()
	}

	actx := bindable.ActionContext{
		Action:  action,
		Target:  binding.Target(),
		Payload: payload,
	}
	if id, ok := payload.ID(); ok {
		actx.ID = id
	}

	result = binding.Handle(ctx, actx)
	if !result.Valid() {
		d.report("dispatch: bindable=%s action=%s returned no result", desc.Name, action)
		return bindable.Internal()
	}
	return result
}

// The accessors below let a zero Dispatcher dispatch with the defaults New
// would have set.

func (d *Dispatcher) spanTracer() trace.Tracer {
	if d != nil && d.tracer != nil {
		return d.tracer
	}
	return otel.Tracer(tracerName)
}

func (d *Dispatcher) clock() time.Time {
	if d != nil && d.now != nil {
		return d.now()
	}
	return time.Now()
}

func (d *Dispatcher) observer() *Metrics {
	if d == nil {
		return nil
	}
	return d.metrics
}

func (d *Dispatcher) report(format string, args ...any) {
	if d != nil && d.logf != nil {
		d.logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Outcome labels a result for telemetry: "ok" or the failure code.
func Outcome(r bindable.Result) string {
	if f, ok := r.Failure(); ok {
		return string(f.Code)
	}
	if r.IsSuccess() {
		return "ok"
	}
	return "unset"
}
