package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sponsorama/internal/dataprocessing"
)

// FileValidator checks local input and output paths for the command line tools.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file", slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateSourceFile checks that path is a readable workbook or archive.
func (v *FileValidator) ValidateSourceFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Skipping temporary Excel file", slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}
	if !IsAcceptedSource(base, "") {
		v.logger.Error("File is not a workbook or archive",
			slog.String("file", path),
			slog.String("extension", filepath.Ext(path)))
		return fmt.Errorf("file %s is not a workbook or zip archive (extension: %s)", path, filepath.Ext(path))
	}
	return nil
}

// ExpandInputs resolves command line arguments to source files. Directories
// contribute their accepted files (not recursively) in name order; plain files
// must be accepted sources themselves.
func (v *FileValidator) ExpandInputs(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}

		if !info.IsDir() {
			if err := v.ValidateSourceFile(path); err != nil {
				return nil, err
			}
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		var found []string
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, "~$") || !IsAcceptedSource(name, "") {
				continue
			}
			found = append(found, filepath.Join(path, name))
		}
		sort.Strings(found)

		v.logger.Info("Input directory scanned",
			slog.String("directory", path),
			slog.Int("files_found", len(found)))
		files = append(files, found...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no workbook or archive found in %s", strings.Join(paths, ", "))
	}
	return files, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// IsAcceptedSource reports whether a file is ingestible, judged by its
// extension or its declared media type.
func IsAcceptedSource(name, mediaType string) bool {
	if dataprocessing.IsWorkbookName(name) || dataprocessing.Classify(name, mediaType) == dataprocessing.SourceArchive {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case dataprocessing.MediaTypeXLSX, dataprocessing.MediaTypeXLS:
		return true
	}
	return false
}
