package dataprocessing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "sponsorama.ingestion"

// IngestionTracer instruments the pipeline with spans and metrics.
// When no SDK providers are installed the global no-op implementations are used.
type IngestionTracer struct {
	tracer trace.Tracer

	filesProcessed   metric.Int64Counter
	recordsExtracted metric.Int64Counter
	fileFailures     metric.Int64Counter
	batchDuration    metric.Float64Histogram
}

// NewIngestionTracer creates the pipeline instruments on meter, or on the global
// meter provider when meter is nil.
func NewIngestionTracer(meter metric.Meter) (*IngestionTracer, error) {
	if meter == nil {
		meter = otel.Meter(TracerName)
	}

	filesProcessed, err := meter.Int64Counter(
		"ingestion_files_processed_total",
		metric.WithDescription("Total number of input files processed"),
	)
	if err != nil {
		return nil, err
	}

	recordsExtracted, err := meter.Int64Counter(
		"ingestion_records_extracted_total",
		metric.WithDescription("Total number of campaign records extracted"),
	)
	if err != nil {
		return nil, err
	}

	fileFailures, err := meter.Int64Counter(
		"ingestion_file_failures_total",
		metric.WithDescription("Total number of input files that yielded no records"),
	)
	if err != nil {
		return nil, err
	}

	batchDuration, err := meter.Float64Histogram(
		"ingestion_batch_duration_seconds",
		metric.WithDescription("Batch ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &IngestionTracer{
		tracer:           otel.Tracer(TracerName),
		filesProcessed:   filesProcessed,
		recordsExtracted: recordsExtracted,
		fileFailures:     fileFailures,
		batchDuration:    batchDuration,
	}, nil
}

// TraceBatch starts the span covering one ProcessFiles call.
func (t *IngestionTracer) TraceBatch(ctx context.Context, files int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "ingestion.batch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("ingestion.files", files)),
	)
}

// TraceFile starts the span covering one input file.
func (t *IngestionTracer) TraceFile(ctx context.Context, src SourceFile) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "ingestion.file",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("file.name", src.Name),
			attribute.String("file.kind", Classify(src.Name, src.MediaType).String()),
			attribute.Int("file.size_bytes", len(src.Data)),
		),
	)
}

// RecordFile records the outcome of one input file on its span and counters.
func (t *IngestionTracer) RecordFile(ctx context.Context, span trace.Span, src SourceFile, records int, failure error) {
	kind := attribute.String("kind", Classify(src.Name, src.MediaType).String())
	span.SetAttributes(attribute.Int("file.records", records))

	status := "success"
	if failure != nil {
		status = "failure"
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		t.fileFailures.Add(ctx, 1, metric.WithAttributes(kind))
	}

	t.filesProcessed.Add(ctx, 1, metric.WithAttributes(kind, attribute.String("status", status)))
	if records > 0 {
		t.recordsExtracted.Add(ctx, int64(records), metric.WithAttributes(kind))
	}
}

// RecordBatch records the batch outcome and duration. The caller ends the span.
func (t *IngestionTracer) RecordBatch(ctx context.Context, span trace.Span, duration time.Duration, records int, success bool) {
	status := "success"
	if !success {
		status = "failure"
		span.SetStatus(codes.Error, ErrNoValidData.Error())
	}
	span.SetAttributes(
		attribute.Int("ingestion.records", records),
		attribute.String("ingestion.status", status),
	)
	t.batchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}
