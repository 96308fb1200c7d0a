package http

import (
	"context"
	"io"

	"sponsorama/internal/dataprocessing"
	"sponsorama/internal/exporter"
	"sponsorama/internal/services"
	"sponsorama/internal/session"
	"sponsorama/pkg/contracts/domain"
)

// CampaignServiceInterface defines the interface for the campaign service
type CampaignServiceInterface interface {
	Upload(ctx context.Context, files []dataprocessing.SourceFile) (*services.UploadResult, error)
	View() session.View
	Summary() domain.SummaryIndicators
	Facets() domain.FacetOptions
	SetFilter(f domain.FilterState) session.View
	UpdateFilter(p domain.FilterPatch) session.View
	ResetFilter() session.View
	Clear() session.View
	Export(ctx context.Context, w io.Writer, format exporter.Format) (int, error)
}

// Ensure the concrete service implements the interface
var _ CampaignServiceInterface = (*services.CampaignService)(nil)
