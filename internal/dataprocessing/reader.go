package dataprocessing

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
)

// Reader errors. Per-entry archive faults are logged and never returned.
var (
	ErrWorkbookDecode = errors.New("workbook could not be decoded")
	ErrArchiveDecode  = errors.New("archive could not be opened")
	ErrNoWorkbooks    = errors.New("no valid workbook found in archive")
)

// SourceKind classifies an input file.
type SourceKind int

const (
	SourceWorkbook SourceKind = iota
	SourceArchive
)

func (k SourceKind) String() string {
	if k == SourceArchive {
		return "archive"
	}
	return "workbook"
}

// Accepted declared media types.
const (
	MediaTypeXLSX       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypeXLS        = "application/vnd.ms-excel"
	MediaTypeZip        = "application/zip"
	MediaTypeZipLegacy  = "application/x-zip-compressed"
	defaultMaxEntrySize = 32 << 20
)

// SourceFile is one input file as handed over by the caller.
type SourceFile struct {
	Name      string
	MediaType string
	Data      []byte
}

// Classify decides whether a file is an archive by declared media type or name suffix.
func Classify(name, mediaType string) SourceKind {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case MediaTypeZip, MediaTypeZipLegacy:
		return SourceArchive
	}
	if strings.HasSuffix(strings.ToLower(name), ".zip") {
		return SourceArchive
	}
	return SourceWorkbook
}

// IsWorkbookName reports whether a name carries a workbook extension.
func IsWorkbookName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// MaxEntryBytes bounds the uncompressed size of one archive entry. Zero means 32 MiB.
	MaxEntryBytes int64
}

// Reader decodes input files into worksheets.
type Reader struct {
	logger        *slog.Logger
	maxEntryBytes int64
}

// NewReader creates a reader.
func NewReader(logger *slog.Logger, opts ReaderOptions) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxEntryBytes <= 0 {
		opts.MaxEntryBytes = defaultMaxEntrySize
	}
	return &Reader{
		logger:        logger.With(slog.String("component", "source_reader")),
		maxEntryBytes: opts.MaxEntryBytes,
	}
}

// Read decodes src and calls visit with the first sheet of every workbook it holds,
// paired with the workbook's name (the file name, or the entry path inside an archive).
// Worksheets are only valid during the visit call.
func (r *Reader) Read(ctx context.Context, src SourceFile, visit func(ws Worksheet, entryName string)) error {
	if Classify(src.Name, src.MediaType) == SourceArchive {
		return r.readArchive(ctx, src, visit)
	}
	return r.readWorkbook(src, visit)
}

func (r *Reader) readWorkbook(src SourceFile, visit func(Worksheet, string)) error {
	sheet, release, err := openFirstSheet(src.Data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWorkbookDecode, err)
	}
	defer release()

	visit(sheet, src.Name)
	return nil
}

func (r *Reader) readArchive(ctx context.Context, src SourceFile, visit func(Worksheet, string)) error {
	zr, err := zip.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveDecode, err)
	}

	decoded := 0
	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !isWorkbookEntry(entry) {
			continue
		}

		data, err := r.readEntry(entry)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping archive entry",
				slog.String("archive", src.Name),
				slog.String("entry", entry.Name),
				slog.String("error", err.Error()))
			continue
		}

		sheet, release, err := openFirstSheet(data)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping undecodable workbook in archive",
				slog.String("archive", src.Name),
				slog.String("entry", entry.Name),
				slog.String("error", err.Error()))
			continue
		}
		decoded++
		visit(sheet, entry.Name)
		release()
	}

	r.logger.DebugContext(ctx, "archive scanned",
		slog.String("archive", src.Name),
		slog.Int("entries", len(zr.File)),
		slog.Int("workbooks", decoded))

	if decoded == 0 {
		return ErrNoWorkbooks
	}
	return nil
}

func (r *Reader) readEntry(entry *zip.File) ([]byte, error) {
	if entry.UncompressedSize64 > uint64(r.maxEntryBytes) {
		return nil, fmt.Errorf("entry exceeds %d bytes", r.maxEntryBytes)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, r.maxEntryBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.maxEntryBytes {
		return nil, fmt.Errorf("entry exceeds %d bytes", r.maxEntryBytes)
	}
	return data, nil
}

// isWorkbookEntry keeps regular workbook entries and drops directories,
// macOS resource forks and Office lock files.
func isWorkbookEntry(entry *zip.File) bool {
	if entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/") {
		return false
	}
	if strings.HasPrefix(entry.Name, "__MACOSX/") || strings.HasPrefix(path.Base(entry.Name), "~$") {
		return false
	}
	return IsWorkbookName(entry.Name)
}
