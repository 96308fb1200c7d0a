package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"sponsorama/internal/dataprocessing"
	"sponsorama/internal/exporter"
	"sponsorama/internal/session"
	"sponsorama/internal/websocket"
	"sponsorama/pkg/contracts/domain"
)

// Broadcaster pushes a typed message to every connected client.
type Broadcaster interface {
	Broadcast(msgType string, data any) error
}

// UploadResult is the outcome of one upload.
type UploadResult struct {
	Success  bool                 `json:"success"`
	Imported int                  `json:"imported"`
	Message  string               `json:"message"`
	Failures []domain.FileFailure `json:"failures"`
	View     *session.View        `json:"-"`
}

// CampaignService runs uploads through the ingestion pipeline into a session and
// exposes the session's filtered view.
type CampaignService struct {
	pipeline *dataprocessing.Pipeline
	session  *session.Session
	logger   *slog.Logger

	unsubscribe func()
}

// NewCampaignService creates a campaign service over sess.
func NewCampaignService(pipeline *dataprocessing.Pipeline, sess *session.Session, logger *slog.Logger) *CampaignService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CampaignService{
		pipeline: pipeline,
		session:  sess,
		logger:   logger.With(slog.String("component", "campaign_service")),
	}
}

// PublishTo broadcasts every view the session produces from now on. Calling it
// again replaces the previous broadcaster.
func (s *CampaignService) PublishTo(b Broadcaster) {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.unsubscribe = s.session.Subscribe(func(view session.View) {
		if err := b.Broadcast(websocket.TypeCampaignsUpdate, view); err != nil {
			s.logger.Warn("failed to broadcast campaign update",
				slog.Uint64("revision", view.Revision),
				slog.String("error", err.Error()))
		}
	})
}

// Close stops publishing views.
func (s *CampaignService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Greeting returns the message a client receives when it connects.
func (s *CampaignService) Greeting() (string, any) {
	return websocket.TypeCampaignsUpdate, s.session.View()
}

// Upload ingests files and imports the records into the session.
//
// When nothing could be imported the result is returned together with
// dataprocessing.ErrNoValidData and the session is left untouched.
func (s *CampaignService) Upload(ctx context.Context, files []dataprocessing.SourceFile) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	ingested, err := s.pipeline.ProcessFiles(ctx, files)
	result := &UploadResult{
		Success:  ingested.Success,
		Imported: len(ingested.Records),
		Message:  ingested.Message,
		Failures: ingested.Failures,
	}
	if err != nil {
		if errors.Is(err, dataprocessing.ErrNoValidData) {
			return result, err
		}
		return nil, fmt.Errorf("ingestion aborted: %w", err)
	}

	view := s.session.Import(ingested.Records)
	result.View = &view

	s.logger.InfoContext(ctx, "upload imported",
		slog.Int("files", len(files)),
		slog.Int("imported", result.Imported),
		slog.Int("failures", len(result.Failures)),
		slog.Int("total", view.Total))
	return result, nil
}

// View returns the current filtered view.
func (s *CampaignService) View() session.View {
	return s.session.View()
}

// Summary returns the indicators of the filtered records.
func (s *CampaignService) Summary() domain.SummaryIndicators {
	return s.session.View().Summary
}

// Facets lists the values available to each filter facet.
func (s *CampaignService) Facets() domain.FacetOptions {
	return s.session.Facets()
}

func (s *CampaignService) SetFilter(f domain.FilterState) session.View {
	return s.session.SetFilter(f)
}

func (s *CampaignService) UpdateFilter(p domain.FilterPatch) session.View {
	return s.session.UpdateFilter(p)
}

func (s *CampaignService) ResetFilter() session.View {
	return s.session.ResetFilter()
}

// Clear drops every imported record.
func (s *CampaignService) Clear() session.View {
	return s.session.Clear()
}

// Export writes the filtered records to w and returns how many were written.
func (s *CampaignService) Export(ctx context.Context, w io.Writer, format exporter.Format) (int, error) {
	exp, err := exporter.New(format, s.logger)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownExportFormat, err)
	}

	records := s.session.View().Records
	if err := exp.Write(w, records); err != nil {
		return 0, fmt.Errorf("failed to export %s: %w", exp.Format(), err)
	}

	s.logger.InfoContext(ctx, "campaigns exported",
		slog.String("format", string(exp.Format())),
		slog.Int("records", len(records)))
	return len(records), nil
}

// ExportFile writes the filtered records to filePath.
func (s *CampaignService) ExportFile(ctx context.Context, filePath string, format exporter.Format) (int, error) {
	exp, err := exporter.New(format, s.logger)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownExportFormat, err)
	}

	records := s.session.View().Records
	if err := exp.WriteFile(filePath, records); err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "campaigns exported to file",
		slog.String("format", string(exp.Format())),
		slog.String("path", filePath),
		slog.Int("records", len(records)))
	return len(records), nil
}
