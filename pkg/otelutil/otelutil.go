// Package otelutil provides small OpenTelemetry helpers shared by every
// repository and service method, following the same span-per-method
// discipline throughout the call chain.
package otelutil

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracerContextKey struct{}

// ContextWithTracer returns a context carrying tracer.
func ContextWithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerContextKey{}, tracer)
}

// TracerFromContext returns the tracer in ctx, or a no-op tracer if none was
// set. The otel global tracer provider is not consulted.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if tracer, ok := ctx.Value(tracerContextKey{}).(trace.Tracer); ok && tracer != nil {
		return tracer
	}

	return trace.NewNoopTracerProvider().Tracer("walletledger")
}

// SetSpanAttributesFromStruct marshals valueStruct to JSON and attaches it
// to span under key, so repository inputs/outputs show up in traces without
// hand-listing every field.
func SetSpanAttributesFromStruct(span trace.Span, key string, valueStruct any) error {
	raw, err := json.Marshal(valueStruct)
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.KeyValue{
		Key:   attribute.Key(key),
		Value: attribute.StringValue(string(raw)),
	})

	return nil
}

// HandleSpanError records err on span and marks it as failed.
func HandleSpanError(span trace.Span, message string, err error) {
	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}
