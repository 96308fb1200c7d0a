package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sponsorama/internal/dataprocessing"
	apierrors "sponsorama/internal/errors"
	"sponsorama/internal/exporter"
	"sponsorama/internal/services"
	"sponsorama/internal/session"
	"sponsorama/internal/shared/testutil"
	"sponsorama/internal/validation"
	"sponsorama/pkg/contracts/domain"
)

type uploadPart struct {
	name        string
	contentType string
	data        []byte
}

func newTestRouter(t *testing.T, service CampaignServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)

	validator, err := validation.NewRequestValidator(validation.UploadLimits{MaxFiles: 3, MaxFileBytes: 1 << 20})
	require.NoError(t, err)

	if service == nil {
		pipeline := dataprocessing.NewPipeline(logger, nil, dataprocessing.PipelineOptions{})
		service = services.NewCampaignService(pipeline, session.New(logger), logger)
	}

	errorHandler := apierrors.NewErrorHandler(logger, false)
	handler := NewCampaignHandler(service, validator, 4<<20, logger, errorHandler)

	r := chi.NewRouter()
	r.Mount("/api/campaigns", handler.Routes())
	return r
}

func multipartBody(t *testing.T, parts ...uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, UploadField, p.name))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func xlsxPart(t *testing.T, name string, overrides testutil.Cells) uploadPart {
	return uploadPart{
		name:        name,
		contentType: dataprocessing.MediaTypeXLSX,
		data:        testutil.Workbook(t, testutil.CampaignCells().With(overrides)),
	}
}

func upload(t *testing.T, router http.Handler, parts ...uploadPart) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sendJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) session.View {
	t.Helper()
	var view session.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	return view
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, apierrors.ContentTypeProblem, w.Header().Get("Content-Type"))
	var problem map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}

func TestCampaignHandler_Upload(t *testing.T) {
	t.Run("workbooks and archive", func(t *testing.T) {
		router := newTestRouter(t, nil)

		archive := testutil.Archive(t,
			testutil.ArchiveEntry{Name: "Gamma.xlsx", Data: testutil.Workbook(t, testutil.CampaignCells())},
		)
		w := upload(t, router,
			xlsxPart(t, "Alpha.xlsx", nil),
			uploadPart{name: "lot.zip", contentType: dataprocessing.MediaTypeZip, data: archive},
			uploadPart{name: "empty.xlsx", contentType: "application/octet-stream", data: []byte("garbage")},
		)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result services.UploadResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.Imported)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "empty.xlsx", result.Failures[0].File)

		req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		view := decodeView(t, rec)
		require.Len(t, view.Records, 2)
		assert.Equal(t, "Alpha", view.Records[0].Name)
		assert.Equal(t, "Gamma", view.Records[1].Name)
	})

	t.Run("nothing importable", func(t *testing.T) {
		router := newTestRouter(t, nil)
		w := upload(t, router, xlsxPart(t, "Zero.xlsx", testutil.Cells{"I8": 0}))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		problem := decodeProblem(t, w)
		assert.Equal(t, apierrors.CodeNoValidData, problem["error_code"])
		assert.Equal(t, apierrors.TypeNoValidData, problem["type"])
		details, ok := problem["details"].([]any)
		require.True(t, ok)
		require.Len(t, details, 1)
		assert.Equal(t, "Zero.xlsx", details[0].(map[string]any)["file"])
	})

	t.Run("unsupported and oversized parts are skipped", func(t *testing.T) {
		router := newTestRouter(t, nil)
		w := upload(t, router,
			xlsxPart(t, "Alpha.xlsx", nil),
			uploadPart{name: "notes.txt", contentType: "text/plain", data: []byte("hi")},
			uploadPart{name: "big.xlsx", contentType: dataprocessing.MediaTypeXLSX, data: make([]byte, 1<<20+1)},
		)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var result services.UploadResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.Imported)
		require.Len(t, result.Failures, 2)
		assert.Equal(t, "notes.txt", result.Failures[0].File)
		assert.Equal(t, validation.ErrUnsupportedFile.Error(), result.Failures[0].Reason)
		assert.Equal(t, "big.xlsx", result.Failures[1].File)
		assert.Contains(t, result.Failures[1].Reason, validation.ErrFileTooLarge.Error())
	})

	t.Run("skipped parts join the failures when nothing imports", func(t *testing.T) {
		router := newTestRouter(t, nil)
		w := upload(t, router,
			xlsxPart(t, "Zero.xlsx", testutil.Cells{"I8": 0}),
			uploadPart{name: "notes.txt", contentType: "text/plain", data: []byte("hi")},
		)

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		details, ok := decodeProblem(t, w)["details"].([]any)
		require.True(t, ok)
		require.Len(t, details, 2)
		assert.Equal(t, "Zero.xlsx", details[0].(map[string]any)["file"])
		assert.Equal(t, "notes.txt", details[1].(map[string]any)["file"])
	})

	tests := []struct {
		name       string
		parts      []uploadPart
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no files",
			parts:      nil,
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name: "too many files",
			parts: []uploadPart{
				{name: "a.xlsx", contentType: dataprocessing.MediaTypeXLSX},
				{name: "b.xlsx", contentType: dataprocessing.MediaTypeXLSX},
				{name: "c.xlsx", contentType: dataprocessing.MediaTypeXLSX},
				{name: "d.xlsx", contentType: dataprocessing.MediaTypeXLSX},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.CodeValidationFailed,
		},
		{
			name:       "only an unsupported file",
			parts:      []uploadPart{{name: "notes.txt", contentType: "text/plain", data: []byte("hi")}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apierrors.CodeNoValidData,
		},
		{
			name:       "only a file over the per-file limit",
			parts:      []uploadPart{{name: "big.xlsx", contentType: dataprocessing.MediaTypeXLSX, data: make([]byte, 1<<20+1)}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apierrors.CodeNoValidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, nil)
			w := upload(t, router, tt.parts...)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decodeProblem(t, w)["error_code"])
		})
	}

	t.Run("wrong content type", func(t *testing.T) {
		router := newTestRouter(t, nil)
		w := sendJSON(t, router, http.MethodPost, "/api/campaigns/upload", `{}`)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("body over the upload limit", func(t *testing.T) {
		router := newTestRouter(t, nil)
		body, contentType := multipartBody(t, uploadPart{
			name: "huge.xlsx", contentType: dataprocessing.MediaTypeXLSX, data: make([]byte, 5<<20),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/campaigns/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestCampaignHandler_Filters(t *testing.T) {
	router := newTestRouter(t, nil)
	w := upload(t, router,
		xlsxPart(t, "Alpha.xlsx", testutil.Cells{"G6": "Femmes 25-49"}),
		xlsxPart(t, "Beta.xlsx", testutil.Cells{"G6": "Hommes 15-34", "B8": "S2 2024"}),
	)
	require.Equal(t, http.StatusOK, w.Code)

	w = sendJSON(t, router, http.MethodPut, "/api/campaigns/filter", `{"target":"hommes"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeView(t, w)
	require.Len(t, view.Records, 1)
	assert.Equal(t, "Beta", view.Records[0].Name)

	w = sendJSON(t, router, http.MethodPatch, "/api/campaigns/filter", `{"period":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	view = decodeView(t, w)
	assert.Equal(t, domain.FilterState{Period: "s1", Target: "hommes"}, view.Filter)
	assert.Empty(t, view.Records)

	w = sendJSON(t, router, http.MethodGet, "/api/campaigns/filter", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"period":"s1","target":"hommes","search_term":""}`, w.Body.String())

	w = sendJSON(t, router, http.MethodDelete, "/api/campaigns/filter", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeView(t, w).Records, 2)

	t.Run("summary and facets", func(t *testing.T) {
		w := sendJSON(t, router, http.MethodGet, "/api/campaigns/summary", "")
		require.Equal(t, http.StatusOK, w.Code)
		var summary domain.SummaryIndicators
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 2, summary.TotalCampaigns)

		w = sendJSON(t, router, http.MethodGet, "/api/campaigns/facets", "")
		require.Equal(t, http.StatusOK, w.Code)
		var facets domain.FacetOptions
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &facets))
		assert.Equal(t, []string{"S1 2024", "S2 2024"}, facets.Periods)
	})

	t.Run("invalid filters", func(t *testing.T) {
		w := sendJSON(t, router, http.MethodPut, "/api/campaigns/filter", `{"search_term":"`+strings.Repeat("x", 201)+`"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		problem := decodeProblem(t, w)
		assert.Equal(t, apierrors.CodeValidationFailed, problem["error_code"])
		assert.Contains(t, w.Body.String(), `"search_term"`)

		w = sendJSON(t, router, http.MethodPatch, "/api/campaigns/filter", `{"period":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		req := httptest.NewRequest(http.MethodPut, "/api/campaigns/filter", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "missing content type")
	})

	t.Run("clear", func(t *testing.T) {
		w := sendJSON(t, router, http.MethodDelete, "/api/campaigns", "")
		require.Equal(t, http.StatusOK, w.Code)
		view := decodeView(t, w)
		assert.Equal(t, 0, view.Total)
	})
}

func TestCampaignHandler_Export(t *testing.T) {
	router := newTestRouter(t, nil)
	require.Equal(t, http.StatusOK, upload(t, router, xlsxPart(t, "Alpha.xlsx", nil)).Code)

	tests := []struct {
		query           string
		wantStatus      int
		wantContentType string
		wantFileName    string
	}{
		{query: "", wantStatus: http.StatusOK, wantContentType: "text/csv; charset=utf-8", wantFileName: exporter.DefaultCSVName},
		{query: "?format=CSV", wantStatus: http.StatusOK, wantContentType: "text/csv; charset=utf-8", wantFileName: exporter.DefaultCSVName},
		{query: "?format=xlsx", wantStatus: http.StatusOK, wantContentType: exporter.FormatXLSX.ContentType(), wantFileName: exporter.DefaultXLSXName},
		{query: "?format=pdf", wantStatus: http.StatusBadRequest, wantContentType: apierrors.ContentTypeProblem},
	}

	for _, tt := range tests {
		t.Run("format"+tt.query, func(t *testing.T) {
			w := sendJSON(t, router, http.MethodGet, "/api/campaigns/export"+tt.query, "")
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantContentType, w.Header().Get("Content-Type"))
			if tt.wantFileName != "" {
				assert.Contains(t, w.Header().Get("Content-Disposition"), tt.wantFileName)
				assert.Equal(t, "1", w.Header().Get("X-Record-Count"))
				assert.NotZero(t, w.Body.Len())
			}
		})
	}
}

// MockCampaignService is a mock implementation of CampaignServiceInterface
type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) Upload(ctx context.Context, files []dataprocessing.SourceFile) (*services.UploadResult, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.UploadResult), args.Error(1)
}

func (m *MockCampaignService) View() session.View { return m.Called().Get(0).(session.View) }

func (m *MockCampaignService) Summary() domain.SummaryIndicators {
	return m.Called().Get(0).(domain.SummaryIndicators)
}

func (m *MockCampaignService) Facets() domain.FacetOptions {
	return m.Called().Get(0).(domain.FacetOptions)
}

func (m *MockCampaignService) SetFilter(f domain.FilterState) session.View {
	return m.Called(f).Get(0).(session.View)
}

func (m *MockCampaignService) UpdateFilter(p domain.FilterPatch) session.View {
	return m.Called(p).Get(0).(session.View)
}

func (m *MockCampaignService) ResetFilter() session.View { return m.Called().Get(0).(session.View) }

func (m *MockCampaignService) Clear() session.View { return m.Called().Get(0).(session.View) }

func (m *MockCampaignService) Export(ctx context.Context, w io.Writer, format exporter.Format) (int, error) {
	args := m.Called(ctx, w, format)
	return args.Int(0), args.Error(1)
}

func TestCampaignHandler_ServiceFailures(t *testing.T) {
	t.Run("aborted upload", func(t *testing.T) {
		svc := &MockCampaignService{}
		svc.On("Upload", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("ingestion aborted: %w", context.DeadlineExceeded))

		w := upload(t, newTestRouter(t, svc), xlsxPart(t, "Alpha.xlsx", nil))
		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Equal(t, apierrors.CodeRequestTimeout, decodeProblem(t, w)["error_code"])
		svc.AssertExpectations(t)
	})

	t.Run("export failure", func(t *testing.T) {
		svc := &MockCampaignService{}
		svc.On("Export", mock.Anything, mock.Anything, exporter.FormatXLSX).Return(0, errors.New("disk full"))

		w := sendJSON(t, newTestRouter(t, svc), http.MethodGet, "/api/campaigns/export?format=xlsx", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		problem := decodeProblem(t, w)
		assert.Equal(t, apierrors.CodeInternal, problem["error_code"])
		assert.NotContains(t, problem["detail"], "disk full")
		svc.AssertExpectations(t)
	})
}
