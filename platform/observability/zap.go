package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields - trace_id/span_id активного span'а; пусто, если span не записывается
func TraceFields(ctx context.Context) []zap.Field {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return nil
	}
	fields := []zap.Field{zap.Stringer("trace_id", spanCtx.TraceID())}
	if spanCtx.HasSpanID() {
		fields = append(fields, zap.Stringer("span_id", spanCtx.SpanID()))
	}
	return fields
}

// L выбирает logger для запроса: сначала тот, что положил HTTPMiddleware
// (в нём уже есть trace_id, method, path), иначе base с trace полями из ctx.
// base может быть nil, тогда используется zap.L().
func L(ctx context.Context, base *zap.Logger) *zap.Logger {
	if reqLogger := LoggerFromContext(ctx); reqLogger != nil {
		return reqLogger
	}
	if base == nil {
		base = zap.L()
	}
	if fields := TraceFields(ctx); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
