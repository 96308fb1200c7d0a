// Command ingest loads campaign workbooks and zip archives from disk, applies an
// optional filter and prints the resulting view as JSON.
//
//	ingest [flags] <file|dir>...
//
// Directories contribute their workbooks and archives, not recursively.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sponsorama/internal/dataprocessing"
	"sponsorama/internal/exporter"
	"sponsorama/internal/infrastructure"
	"sponsorama/internal/services"
	"sponsorama/internal/session"
	"sponsorama/internal/validation"
	"sponsorama/pkg/contracts"
	"sponsorama/pkg/contracts/domain"
)

type options struct {
	period      string
	target      string
	search      string
	export      string
	format      string
	summary     bool
	version     bool
	concurrency int
	logLevel    string
	inputs      []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "ingest:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.period, "period", "", "keep campaigns whose period contains this text")
	fs.StringVar(&opts.target, "target", "", "keep campaigns whose target contains this text")
	fs.StringVar(&opts.search, "search", "", "keep campaigns whose name, period or target contains this text")
	fs.StringVar(&opts.export, "export", "", "write the filtered campaigns to this file")
	fs.StringVar(&opts.format, "format", "", "export format: csv or xlsx (defaults to the -export extension)")
	fs.BoolVar(&opts.summary, "summary", false, "print only the summary indicators")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")
	fs.IntVar(&opts.concurrency, "concurrency", 1, "number of files decoded at once")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: ingest [flags] <file|dir>...")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.inputs = fs.Args()
	if opts.version {
		return opts, nil
	}
	if len(opts.inputs) == 0 {
		fs.Usage()
		return nil, errors.New("no input given")
	}
	if opts.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", opts.concurrency)
	}
	return opts, nil
}

// exportFormat resolves the export format from -format, then from the file extension.
func (o *options) exportFormat() (exporter.Format, error) {
	if o.format != "" {
		return exporter.ParseFormat(o.format)
	}
	return exporter.ParseFormat(strings.TrimPrefix(filepath.Ext(o.export), "."))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		_, err := fmt.Fprintln(stdout, contracts.GetVersionInfo())
		return err
	}

	var format exporter.Format
	if opts.export != "" {
		if format, err = opts.exportFormat(); err != nil {
			return err
		}
	}

	ctx = infrastructure.EnsureTraceID(ctx)
	logger := infrastructure.WithComponent(infrastructure.NewLogger(stderr, opts.logLevel), "ingest_cli")

	fv := validation.NewFileValidator(logger)
	paths, err := fv.ExpandInputs(opts.inputs)
	if err != nil {
		return err
	}
	if opts.export != "" {
		if err := fv.ValidateOutputDirectory(filepath.Dir(opts.export)); err != nil {
			return err
		}
	}

	files := make([]dataprocessing.SourceFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		files = append(files, dataprocessing.SourceFile{Name: filepath.Base(p), Data: data})
	}

	pipeline := dataprocessing.NewPipeline(logger, nil, dataprocessing.PipelineOptions{Concurrency: opts.concurrency})
	service := services.NewCampaignService(pipeline, session.New(logger), logger)
	defer service.Close()

	result, err := service.Upload(ctx, files)
	if err != nil {
		if result != nil {
			for _, f := range result.Failures {
				fmt.Fprintf(stderr, "%s: %s\n", f.File, f.Reason)
			}
		}
		return err
	}
	for _, f := range result.Failures {
		fmt.Fprintf(stderr, "skipped %s: %s\n", f.File, f.Reason)
	}

	view := service.SetFilter(domain.FilterState{
		Period:     opts.period,
		Target:     opts.target,
		SearchTerm: opts.search,
	})

	if opts.export != "" {
		if _, err := service.ExportFile(ctx, opts.export, format); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if opts.summary {
		return enc.Encode(view.Summary)
	}
	return enc.Encode(view)
}
