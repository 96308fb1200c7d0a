package dataprocessing

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sponsorama/internal/shared/testutil"
	"sponsorama/pkg/contracts/domain"
)

func workbookFile(t *testing.T, name string, cells testutil.Cells) SourceFile {
	return SourceFile{Name: name, MediaType: MediaTypeXLSX, Data: testutil.Workbook(t, cells)}
}

func names(records []domain.CampaignRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		mediaType string
		want      SourceKind
	}{
		{"zip media type", "upload.bin", MediaTypeZip, SourceArchive},
		{"legacy zip media type", "upload", MediaTypeZipLegacy, SourceArchive},
		{"zip suffix", "Campagnes.ZIP", "", SourceArchive},
		{"xlsx", "a.xlsx", MediaTypeXLSX, SourceWorkbook},
		{"unknown defaults to workbook", "a.dat", "application/octet-stream", SourceWorkbook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.file, tt.mediaType))
		})
	}
}

func TestReader_Archive(t *testing.T) {
	ctx := context.Background()
	valid := testutil.Workbook(t, testutil.CampaignCells())

	t.Run("skips directories, foreign files and lock files", func(t *testing.T) {
		logger, _ := testutil.NewTestLogger(t)
		data := testutil.Archive(t,
			testutil.ArchiveEntry{Name: "campagnes/", Data: nil},
			testutil.ArchiveEntry{Name: "campagnes/A.xlsx", Data: valid},
			testutil.ArchiveEntry{Name: "readme.txt", Data: []byte("hello")},
			testutil.ArchiveEntry{Name: "__MACOSX/campagnes/._A.xlsx", Data: []byte("fork")},
			testutil.ArchiveEntry{Name: "campagnes/~$A.xlsx", Data: []byte("lock")},
			testutil.ArchiveEntry{Name: "B.XLSX", Data: valid},
		)

		var visited []string
		err := NewReader(logger, ReaderOptions{}).Read(ctx, SourceFile{Name: "c.zip", Data: data},
			func(_ Worksheet, entry string) { visited = append(visited, entry) })
		require.NoError(t, err)
		assert.Equal(t, []string{"campagnes/A.xlsx", "B.XLSX"}, visited)
	})

	t.Run("oversized entry is skipped", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)
		data := testutil.Archive(t, testutil.ArchiveEntry{Name: "A.xlsx", Data: valid})

		err := NewReader(logger, ReaderOptions{MaxEntryBytes: 16}).Read(ctx, SourceFile{Name: "c.zip", Data: data},
			func(Worksheet, string) {})
		assert.ErrorIs(t, err, ErrNoWorkbooks)
		testutil.AssertLogContains(t, handler, slog.LevelWarn, "skipping archive entry")
	})

	t.Run("container that is not a zip", func(t *testing.T) {
		err := NewReader(nil, ReaderOptions{}).Read(ctx, SourceFile{Name: "c.zip", Data: []byte("nope")},
			func(Worksheet, string) {})
		assert.ErrorIs(t, err, ErrArchiveDecode)
	})

	t.Run("cancelled context stops the scan", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		data := testutil.Archive(t, testutil.ArchiveEntry{Name: "A.xlsx", Data: valid})

		err := NewReader(nil, ReaderOptions{}).Read(cctx, SourceFile{Name: "c.zip", Data: data},
			func(Worksheet, string) {})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPipeline_ProcessFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("single workbook", func(t *testing.T) {
		p := NewPipeline(nil, nil, PipelineOptions{})

		res, err := p.ProcessFiles(ctx, []SourceFile{workbookFile(t, "CampagneX.xlsx", testutil.CampaignCells())})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.Failures)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "CampagneX", res.Records[0].Name)
		assert.Equal(t, "1 campaign(s) imported", res.Message)
	})

	t.Run("spaced percentage coverage", func(t *testing.T) {
		p := NewPipeline(nil, nil, PipelineOptions{})
		cells := testutil.CampaignCells().With(testutil.Cells{"J8": "35.5 %"})

		res, err := p.ProcessFiles(ctx, []SourceFile{workbookFile(t, "CampagneX.xlsx", cells)})
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, 35.5, res.Records[0].Coverage)
	})

	t.Run("legacy workbooks", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)
		p := NewPipeline(logger, nil, PipelineOptions{})
		legacy := legacyFixture(t)
		broken := bytes.Clone(legacy)
		binary.LittleEndian.PutUint32(broken[cfbHeaderSize+4*4:], 0x1000)
		archive := testutil.Archive(t,
			testutil.ArchiveEntry{Name: "Hiver.xls", Data: legacy},
			testutil.ArchiveEntry{Name: "Abime.xls", Data: broken},
		)
		files := []SourceFile{
			{Name: "CampagneLegacy.xls", MediaType: MediaTypeXLS, Data: legacy},
			{Name: "lot.zip", MediaType: MediaTypeZip, Data: archive},
			// Office Open XML content under a legacy name is still read.
			{Name: "Renomme.xls", MediaType: MediaTypeXLS, Data: testutil.Workbook(t, testutil.CampaignCells())},
			{Name: "Abime.xls", MediaType: MediaTypeXLS, Data: broken},
		}

		res, err := p.ProcessFiles(ctx, files)
		require.NoError(t, err)
		assert.Equal(t, []string{"CampagneLegacy", "Hiver", "Renomme"}, names(res.Records))

		rec := res.Records[0]
		assert.Equal(t, "S1 2024", rec.Period)
		assert.Equal(t, "Femmes 25-49", rec.Target)
		assert.Equal(t, int64(250), rec.CountTotal)
		assert.Equal(t, 100.0, rec.GRPTotal)
		assert.Equal(t, 35.5, rec.Coverage)
		assert.Equal(t, 2.8, rec.Frequency)

		require.Len(t, res.Failures, 1)
		assert.Equal(t, "Abime.xls", res.Failures[0].File)
		assert.Contains(t, res.Failures[0].Reason, ErrWorkbookDecode.Error())
		assert.True(t, handler.ContainsAttr("entry", "Abime.xls"))
	})

	t.Run("archive with a corrupted entry", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)
		p := NewPipeline(logger, nil, PipelineOptions{})
		valid := testutil.Workbook(t, testutil.CampaignCells())
		archive := testutil.Archive(t,
			testutil.ArchiveEntry{Name: "A.xlsx", Data: valid},
			testutil.ArchiveEntry{Name: "B.xlsx", Data: valid},
			testutil.ArchiveEntry{Name: "Broken.xlsx", Data: []byte("definitely not a workbook")},
			testutil.ArchiveEntry{Name: "C.xlsx", Data: valid},
		)

		res, err := p.ProcessFiles(ctx, []SourceFile{{Name: "lot.zip", MediaType: MediaTypeZip, Data: archive}})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []string{"A", "B", "C"}, names(res.Records))
		assert.Empty(t, res.Failures)

		warnings := handler.GetRecordsByLevel(slog.LevelWarn)
		require.Len(t, warnings, 1)
		assert.Equal(t, "Broken.xlsx", warnings[0].Attrs["entry"])
	})

	t.Run("every file invalid", func(t *testing.T) {
		p := NewPipeline(nil, nil, PipelineOptions{})
		files := []SourceFile{
			{Name: "garbage.xlsx", MediaType: MediaTypeXLSX, Data: []byte("garbage")},
			workbookFile(t, "Blank.xlsx", testutil.CampaignCells().With(testutil.Cells{"I8": nil})),
		}

		res, err := p.ProcessFiles(ctx, files)
		assert.ErrorIs(t, err, ErrNoValidData)
		require.NotNil(t, res)
		assert.False(t, res.Success)
		assert.Empty(t, res.Records)
		assert.Equal(t, "no valid data found", res.Message)
		require.Len(t, res.Failures, 2)
		assert.Equal(t, "garbage.xlsx", res.Failures[0].File)
		assert.Contains(t, res.Failures[0].Reason, ErrWorkbookDecode.Error())
		assert.Equal(t, domain.FileFailure{File: "Blank.xlsx", Reason: ErrNoRecords.Error()}, res.Failures[1])
	})

	t.Run("archive without usable workbook", func(t *testing.T) {
		p := NewPipeline(nil, nil, PipelineOptions{})
		archive := testutil.Archive(t,
			testutil.ArchiveEntry{Name: "Blank.xlsx", Data: testutil.Workbook(t, testutil.Cells{"B8": "S1"})},
		)
		files := []SourceFile{
			{Name: "lot.zip", MediaType: MediaTypeZip, Data: archive},
			workbookFile(t, "Ok.xlsx", testutil.CampaignCells()),
		}

		res, err := p.ProcessFiles(ctx, files)
		require.NoError(t, err)
		assert.Equal(t, []string{"Ok"}, names(res.Records))
		assert.Equal(t, []domain.FileFailure{{File: "lot.zip", Reason: ErrNoWorkbooks.Error()}}, res.Failures)
	})

	t.Run("empty batch", func(t *testing.T) {
		res, err := NewPipeline(nil, nil, PipelineOptions{}).ProcessFiles(ctx, nil)
		assert.ErrorIs(t, err, ErrNoValidData)
		assert.False(t, res.Success)
		assert.Empty(t, res.Failures)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		res, err := NewPipeline(nil, nil, PipelineOptions{}).ProcessFiles(cctx,
			[]SourceFile{workbookFile(t, "A.xlsx", testutil.CampaignCells())})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, res.Records)
	})
}

func TestPipeline_ParallelKeepsOrder(t *testing.T) {
	ctx := context.Background()
	valid := testutil.Workbook(t, testutil.CampaignCells())

	var files []SourceFile
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		files = append(files, SourceFile{Name: name + ".xlsx", Data: valid})
	}
	files = append(files, SourceFile{
		Name: "lot.zip",
		Data: testutil.Archive(t,
			testutil.ArchiveEntry{Name: "Z1.xlsx", Data: valid},
			testutil.ArchiveEntry{Name: "Z2.xlsx", Data: valid},
		),
	})

	sequential, err := NewPipeline(nil, nil, PipelineOptions{}).ProcessFiles(ctx, files)
	require.NoError(t, err)
	parallel, err := NewPipeline(nil, nil, PipelineOptions{Concurrency: 4}).ProcessFiles(ctx, files)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "Z1", "Z2"}, names(sequential.Records))
	assert.Equal(t, names(sequential.Records), names(parallel.Records))
}
