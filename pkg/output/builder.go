// Package output provides the CLI builder for wiring up output dispatching.
package output

import (
	"fmt"
	"os"

	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/exitcode"
	"github.com/jshound/jshound/pkg/output/hooks"
	"github.com/jshound/jshound/pkg/output/writers"
)

// Config configures the output dispatcher based on CLI flags.
type Config struct {
	// File exports
	JSONExport     string
	JSONLExport    string
	SARIFExport    string
	CSVExport      string
	TemplateExport string
	PDFExport      string

	// TemplatePath is a custom Go template file rendered into
	// TemplateExport. When empty, the text-summary built-in is used.
	TemplatePath string

	// JSONMode streams events as JSON Lines on stdout instead of the
	// console rendering.
	JSONMode bool

	// Content
	IncludeAssets bool
	OnlyFindings  bool
	OmitEvidence  bool

	// Console
	Silent    bool
	Verbose   bool
	NoSummary bool

	// Hooks
	MetricsPort  int
	OTelEndpoint string
	OTelInsecure bool

	// Exit code policy
	ExitOnError    bool
	ErrorThreshold int

	// Version for reports
	Version string
}

// BuildDispatcher creates a dispatcher configured with writers and hooks
// based on the config. It opens all export files and registers the
// appropriate writers; the returned exit code manager is registered as a
// hook so it observes the event stream. The caller is responsible for
// calling Close() on the dispatcher when done, then reading the final
// code from the manager.
func BuildDispatcher(cfg Config) (*dispatcher.Dispatcher, *exitcode.Manager, error) {
	d := dispatcher.New(dispatcher.Config{
		Async: true, // slow hooks never stall the pipeline
	})

	// Track opened files for cleanup on error
	var openedFiles []*os.File
	cleanup := func() {
		for _, f := range openedFiles {
			f.Close()
		}
	}

	// Helper to open a file for writing
	openFile := func(path string) (*os.File, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		openedFiles = append(openedFiles, f)
		return f, nil
	}

	// === FILE WRITERS ===

	// JSON report document
	if cfg.JSONExport != "" {
		f, err := openFile(cfg.JSONExport)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.RegisterWriter(writers.NewJSONWriter(f, writers.JSONOptions{
			IncludeAssets: cfg.IncludeAssets,
		}))
	}

	// JSONL export (streaming)
	if cfg.JSONLExport != "" {
		f, err := openFile(cfg.JSONLExport)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.RegisterWriter(writers.NewJSONLWriter(f, writers.JSONLOptions{
			OnlyFindings: cfg.OnlyFindings,
		}))
	}

	// SARIF export (GitHub/GitLab code scanning)
	if cfg.SARIFExport != "" {
		f, err := openFile(cfg.SARIFExport)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.RegisterWriter(writers.NewSARIFWriter(f, writers.SARIFOptions{
			ToolVersion: cfg.Version,
		}))
	}

	// CSV export
	if cfg.CSVExport != "" {
		f, err := openFile(cfg.CSVExport)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		writer, err := writers.NewTemplateWriter(f, writers.TemplateConfig{
			BuiltIn: "csv",
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("csv writer: %w", err)
		}
		d.RegisterWriter(writer)
	}

	// Template export (custom or built-in text summary)
	if cfg.TemplateExport != "" {
		f, err := openFile(cfg.TemplateExport)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		tmplCfg := writers.TemplateConfig{TemplatePath: cfg.TemplatePath}
		if cfg.TemplatePath == "" {
			tmplCfg.BuiltIn = "text-summary"
		}
		writer, err := writers.NewTemplateWriter(f, tmplCfg)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("template writer: %w", err)
		}
		d.RegisterWriter(writer)
	}

	// PDF export
	if cfg.PDFExport != "" {
		f, err := openFile(cfg.PDFExport)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		d.RegisterWriter(writers.NewPDFWriter(f, writers.PDFConfig{
			IncludeEvidence: !cfg.OmitEvidence,
		}))
	}

	// === CONSOLE OUTPUT ===

	// Human-readable rendering unless silent or JSON mode
	if !cfg.Silent && !cfg.JSONMode {
		d.RegisterWriter(writers.NewConsoleWriter(os.Stdout, writers.ConsoleOptions{
			Verbose:   cfg.Verbose,
			NoSummary: cfg.NoSummary,
		}))
	}

	// JSON streaming mode (to stdout)
	if cfg.JSONMode {
		d.RegisterWriter(writers.NewJSONLWriter(os.Stdout, writers.JSONLOptions{
			OnlyFindings: cfg.OnlyFindings,
		}))
	}

	// === HOOKS ===

	// Prometheus metrics
	if cfg.MetricsPort > 0 {
		hook, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{
			Port: cfg.MetricsPort,
			Path: "/metrics",
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create Prometheus hook: %w", err)
		}
		d.RegisterHook(hook)
	}

	// OpenTelemetry
	if cfg.OTelEndpoint != "" {
		hook, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint: cfg.OTelEndpoint,
			Insecure: cfg.OTelInsecure,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create OpenTelemetry hook: %w", err)
		}
		d.RegisterHook(hook)
	}

	// The exit code manager rides the event stream; the CLI reads the
	// final code from it after closing the dispatcher.
	manager := exitcode.New(exitcode.Config{
		ExitOnError:    cfg.ExitOnError,
		ErrorThreshold: cfg.ErrorThreshold,
	})
	d.RegisterHook(manager)

	return d, manager, nil
}
