package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"sponsorama/pkg/contracts/domain"
)

// Pipeline errors.
var (
	// ErrNoValidData is returned when a whole batch produced no record.
	ErrNoValidData = errors.New("no valid data found")
	// ErrNoRecords is the per-file reason when a workbook decoded but held no valid campaign.
	ErrNoRecords = errors.New("could not extract campaign data from workbook")
)

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	// Concurrency is the number of files decoded at once. Values below 2 process
	// files one after the other. Output order never depends on it.
	Concurrency int
	Reader      ReaderOptions
}

// Pipeline turns input files into validated campaign records. It holds no state
// between calls and never touches a dataset.
type Pipeline struct {
	reader      *Reader
	extractor   *Extractor
	tracer      *IngestionTracer
	logger      *slog.Logger
	concurrency int
}

// NewPipeline creates a pipeline. tracer may be nil.
func NewPipeline(logger *slog.Logger, tracer *IngestionTracer, opts PipelineOptions) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		// The global meter cannot fail to create instruments.
		tracer, _ = NewIngestionTracer(nil)
	}
	return &Pipeline{
		reader:      NewReader(logger, opts.Reader),
		extractor:   NewExtractor(logger),
		tracer:      tracer,
		logger:      logger.With(slog.String("component", "ingestion_pipeline")),
		concurrency: opts.Concurrency,
	}
}

type fileOutcome struct {
	records []domain.CampaignRecord
	failure *domain.FileFailure
}

// ProcessFiles runs every file through the reader and the extractor.
//
// The returned result is never nil. Records keep input order: per file, then per
// archive entry. A file that cannot be decoded or yields no record is listed in
// Failures without stopping the batch. When no file yields a record, the result is
// unsuccessful and the error is ErrNoValidData. A cancelled context aborts the
// batch and returns ctx.Err() with an empty result.
func (p *Pipeline) ProcessFiles(ctx context.Context, files []SourceFile) (*domain.IngestionResult, error) {
	start := time.Now()
	ctx, span := p.tracer.TraceBatch(ctx, len(files))
	defer span.End()

	outcomes, err := p.processAll(ctx, files)
	if err != nil {
		return &domain.IngestionResult{Records: []domain.CampaignRecord{}, Failures: []domain.FileFailure{}}, err
	}

	result := &domain.IngestionResult{
		Records:  []domain.CampaignRecord{},
		Failures: []domain.FileFailure{},
	}
	for _, out := range outcomes {
		result.Records = append(result.Records, out.records...)
		if out.failure != nil {
			result.Failures = append(result.Failures, *out.failure)
		}
	}

	result.Success = len(result.Records) > 0
	p.tracer.RecordBatch(ctx, span, time.Since(start), len(result.Records), result.Success)

	if !result.Success {
		result.Message = ErrNoValidData.Error()
		p.logger.WarnContext(ctx, "batch produced no campaign",
			slog.Int("files", len(files)),
			slog.Int("failures", len(result.Failures)))
		return result, ErrNoValidData
	}

	result.Message = fmt.Sprintf("%d campaign(s) imported", len(result.Records))
	p.logger.InfoContext(ctx, "batch processed",
		slog.Int("files", len(files)),
		slog.Int("records", len(result.Records)),
		slog.Int("failures", len(result.Failures)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

func (p *Pipeline) processAll(ctx context.Context, files []SourceFile) ([]fileOutcome, error) {
	outcomes := make([]fileOutcome, len(files))

	if p.concurrency < 2 {
		for i, f := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := p.processFile(ctx, f)
			if err != nil {
				return nil, err
			}
			outcomes[i] = out
		}
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, f := range files {
		g.Go(func() error {
			out, err := p.processFile(gctx, f)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup cancels gctx on return; only a parent cancellation matters here.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// processFile returns an error only when ctx is done. Every other fault becomes a failure.
func (p *Pipeline) processFile(ctx context.Context, src SourceFile) (fileOutcome, error) {
	ctx, span := p.tracer.TraceFile(ctx, src)
	defer span.End()

	var records []domain.CampaignRecord
	err := p.reader.Read(ctx, src, func(ws Worksheet, entryName string) {
		if rec, ok := p.extractor.Extract(ctx, ws, entryName); ok {
			records = append(records, rec)
		}
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fileOutcome{}, ctxErr
	}

	if err == nil && len(records) == 0 {
		err = ErrNoRecords
		if Classify(src.Name, src.MediaType) == SourceArchive {
			err = ErrNoWorkbooks
		}
	}
	p.tracer.RecordFile(ctx, span, src, len(records), err)

	if err != nil {
		p.logger.WarnContext(ctx, "file yielded no campaign",
			slog.String("file", src.Name),
			slog.String("reason", err.Error()))
		return fileOutcome{failure: &domain.FileFailure{File: src.Name, Reason: err.Error()}}, nil
	}
	return fileOutcome{records: records}, nil
}
