// Package scan runs the full pipeline against one root domain:
// subdomain enumeration, crawling the live hosts for the JavaScript
// they load, downloading those assets, and matching everything fetched
// against the detection rules. The runner emits events to a dispatcher
// as it goes, so reports and live integrations observe the scan in
// flight instead of reconstructing it afterward.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/detect"
	"github.com/jshound/jshound/pkg/discovery"
	"github.com/jshound/jshound/pkg/download"
	"github.com/jshound/jshound/pkg/duration"
	"github.com/jshound/jshound/pkg/fetch"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/osint"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
	"github.com/jshound/jshound/pkg/plugin"
	"github.com/jshound/jshound/pkg/subdomain"
)

// ErrInvalidDomain is returned by Run when the configured domain does
// not parse as a registrable hostname.
var ErrInvalidDomain = errors.New("scan: invalid domain")

// Config holds scan settings.
type Config struct {
	// Domain is the root domain to scan.
	Domain string

	// OutputDir receives the subdomain lists and downloaded scripts
	// (default: jshound-out).
	OutputDir string

	// Subdomains skips enumeration and crawls these hosts instead,
	// mirroring a subdomain list saved by an earlier run. Entries are
	// used as given, without scope filtering against Domain.
	Subdomains []string

	// SecurityTrailsKey enables the SecurityTrails source.
	SecurityTrailsKey string

	// Concurrency bounds parallel work in every stage (default: 10).
	Concurrency int

	// RateLimit caps total requests per second (0 = unlimited).
	RateLimit int

	// PerHostRate caps requests per second per host (0 = unlimited).
	PerHostRate int

	// Timeout is the per-request deadline (default: 30s).
	Timeout time.Duration

	// Retries retries timeouts and transient request failures
	// (default: 2).
	Retries int

	// Proxy routes all requests through an HTTP/SOCKS5 proxy URL.
	Proxy string

	// IncludeCDN admits scripts served from third-party domains.
	IncludeCDN bool

	// Headless renders pages in a browser to catch injected scripts.
	Headless bool

	// MimicTLS sends browser-accurate TLS fingerprints.
	MimicTLS bool
}

// Option configures a Runner beyond its Config.
type Option func(*Runner)

// WithLogger sets a structured logger for scan progress.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSources replaces the default OSINT source manager.
func WithSources(m *osint.Manager) Option {
	return func(r *Runner) { r.sources = m }
}

// WithRegistry replaces the default detection rule registry.
func WithRegistry(reg *plugin.Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// WithFetcher replaces the fetcher built from Config, so several scans
// can share one request budget.
func WithFetcher(f *fetch.Fetcher) Option {
	return func(r *Runner) { r.fetcher = f }
}

// WithDispatcher routes scan events to writers and hooks. Without one
// the scan produces only its Result.
func WithDispatcher(d *dispatcher.Dispatcher) Option {
	return func(r *Runner) { r.dispatcher = d }
}

// Runner executes the scan pipeline. Collaborators not supplied as
// options are built from the Config on first Run. A Runner runs one
// scan at a time; create one per concurrent scan.
type Runner struct {
	cfg        Config
	logger     *slog.Logger
	sources    *osint.Manager
	registry   *plugin.Registry
	fetcher    *fetch.Fetcher
	dispatcher *dispatcher.Dispatcher
}

// New creates a Runner. Zero-valued numeric fields fall back to the
// defaults.
func New(cfg Config, opts ...Option) *Runner {
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.ConcurrencyMedium
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = duration.HTTPDownload
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	r := &Runner{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline. Per-item failures are recorded on the
// Result and the scan continues past them; only invalid configuration
// and cancellation are fatal. On cancellation Run returns the partial
// Result together with the context's error, after the summary and
// complete events have gone out.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	root := subdomain.Canonicalize(r.cfg.Domain)
	if root == "" || !subdomain.IsValid(root) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, r.cfg.Domain)
	}

	rules, err := r.setup()
	if err != nil {
		return nil, err
	}

	res := &Result{ScanID: uuid.New().String(), Domain: root, StartTime: time.Now()}
	r.emitStart(ctx, res, len(rules))

	subs := r.enumerate(ctx, res, root)
	if err := ctx.Err(); err != nil {
		return r.finish(ctx, res, err)
	}

	assets, pages := r.discover(ctx, res, subs)
	if err := ctx.Err(); err != nil {
		return r.finish(ctx, res, err)
	}

	outcomes := r.download(ctx, res, assets)
	if err := ctx.Err(); err != nil {
		return r.finish(ctx, res, err)
	}

	r.detect(ctx, res, rules, pages, outcomes)
	return r.finish(ctx, res, ctx.Err())
}

// setup builds collaborators not injected as options and freezes the
// rule list, so plugins registered mid-scan never apply retroactively.
func (r *Runner) setup() ([]plugin.Rule, error) {
	if r.fetcher == nil {
		fc := fetch.DefaultConfig()
		fc.MaxConcurrent = r.cfg.Concurrency
		fc.Timeout = r.cfg.Timeout
		fc.Proxy = r.cfg.Proxy
		fc.MimicTLS = r.cfg.MimicTLS
		if r.cfg.RateLimit > 0 {
			fc.RateLimit = r.cfg.RateLimit
		}
		if r.cfg.PerHostRate > 0 {
			fc.PerHostRate = r.cfg.PerHostRate
		}
		if r.cfg.Retries > 0 {
			fc.Retries = r.cfg.Retries
		}
		r.fetcher = fetch.New(fc)
	}

	if len(r.cfg.Subdomains) == 0 {
		if r.sources == nil {
			m, err := osint.NewDefaultManager(r.cfg.SecurityTrailsKey)
			if err != nil {
				return nil, err
			}
			r.sources = m
		}
		if len(r.sources.Sources()) == 0 {
			return nil, osint.ErrNoSources
		}
	}

	if r.registry == nil {
		r.registry = plugin.NewDefaultRegistry()
	}
	return r.registry.Load()
}

// enumerate resolves the crawl target list, from the OSINT sources or
// from the configured seed list. Enumerated results are persisted
// under OutputDir; seeded lists are not rewritten.
func (r *Runner) enumerate(ctx context.Context, res *Result, root string) []string {
	started := time.Now()
	before := len(res.Errors)

	set := subdomain.NewSet()
	if len(r.cfg.Subdomains) > 0 {
		for _, host := range r.cfg.Subdomains {
			set.Add(host)
		}
	} else {
		found, err := r.sources.Enumerate(ctx, root)
		if err != nil {
			r.recordSourceErrors(ctx, res, root, err)
		}
		if found != nil {
			set = found
			r.persistSubdomains(ctx, res, root, set)
		}
	}

	subs := set.Sorted()
	if len(subs) > defaults.MaxSubdomains {
		r.recordError(ctx, res, events.StageEnumerate, root,
			fmt.Sprintf("keeping %d of %d subdomains", defaults.MaxSubdomains, len(subs)))
		subs = subs[:defaults.MaxSubdomains]
	}
	res.Subdomains = subs

	r.emitStage(ctx, res, events.StageEnumerate, len(subs), len(res.Errors)-before, started)
	return subs
}

// recordSourceErrors splits the joined per-source error from Enumerate
// into one record per failed source.
func (r *Runner) recordSourceErrors(ctx context.Context, res *Result, root string, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			r.recordError(ctx, res, events.StageEnumerate, root, e.Error())
		}
		return
	}
	r.recordError(ctx, res, events.StageEnumerate, root, err.Error())
}

// persistSubdomains writes the plain list and the JSON report side by
// side. A persist failure costs the artifact, not the scan.
func (r *Runner) persistSubdomains(ctx context.Context, res *Result, root string, set *subdomain.Set) {
	listPath := filepath.Join(r.cfg.OutputDir, defaults.SubdomainListName)
	if err := osint.WriteList(listPath, set); err != nil {
		r.recordError(ctx, res, events.StageEnumerate, listPath, err.Error())
	}
	jsonPath := filepath.Join(r.cfg.OutputDir, defaults.SubdomainJSONName)
	if err := osint.WriteJSON(jsonPath, root, set); err != nil {
		r.recordError(ctx, res, events.StageEnumerate, jsonPath, err.Error())
	}
}

// discover crawls the hosts and collects the scripts they reference,
// plus the page bodies themselves for the detect stage.
func (r *Runner) discover(ctx context.Context, res *Result, subs []string) ([]discovery.JsAsset, []discovery.Page) {
	started := time.Now()
	before := len(res.Errors)

	d := discovery.New(discovery.Config{
		IncludeCDN:  r.cfg.IncludeCDN,
		Headless:    r.cfg.Headless,
		Concurrency: r.cfg.Concurrency,
		RetainPages: true,
	}, r.fetcher)
	set := d.Discover(ctx, subs)

	// Interrupt fallout is reported once, by finish, not per host.
	if ctx.Err() == nil {
		for _, skip := range d.Skipped() {
			r.recordError(ctx, res, events.StageDiscover, skip.Host, skip.Err.Error())
		}
	}

	assets := set.Assets()
	res.Assets = make([]AssetResult, len(assets))
	for i, a := range assets {
		res.Assets[i] = AssetResult{URL: a.URL, Origin: a.Origin, Source: a.Source}
	}

	r.emitStage(ctx, res, events.StageDiscover, len(assets), len(res.Errors)-before, started)
	return assets, d.Pages()
}

// download persists the assets under OutputDir and reports one asset
// event per outcome.
func (r *Runner) download(ctx context.Context, res *Result, assets []discovery.JsAsset) []download.Outcome {
	started := time.Now()
	before := len(res.Errors)

	dl := download.New(download.Config{
		OutputDir:   filepath.Join(r.cfg.OutputDir, defaults.AssetDirName),
		Concurrency: r.cfg.Concurrency,
	}, r.fetcher)
	outcomes := dl.DownloadAll(ctx, assets)

	interrupted := ctx.Err() != nil
	stored := 0
	for i, o := range outcomes {
		ar := &res.Assets[i]
		ar.Path = o.Path
		ar.Size = o.Size
		ar.Duplicate = o.Duplicate
		switch {
		case o.Err != nil:
			ar.Error = o.Err.Error()
		case !o.Duplicate:
			stored++
		}

		// Interrupt fallout is reported once, by finish, not per
		// pending asset.
		if interrupted && o.Err != nil {
			continue
		}
		if o.Err != nil {
			r.recordError(ctx, res, events.StageDownload, o.Asset.URL, o.Err.Error())
		}
		r.emit(ctx, &events.AssetEvent{
			BaseEvent: events.NewBase(events.EventTypeAsset, res.ScanID),
			URL:       o.Asset.URL,
			Origin:    o.Asset.Origin,
			Source:    o.Asset.Source,
			Path:      o.Path,
			Size:      o.Size,
			Duplicate: o.Duplicate,
			Error:     ar.Error,
		})
	}

	r.emitStage(ctx, res, events.StageDownload, stored, len(res.Errors)-before, started)
	return outcomes
}

// detect matches the retained pages and the stored scripts against the
// frozen rules. Stored files are read back from disk; a duplicate body
// is scanned once, through its first copy.
func (r *Runner) detect(ctx context.Context, res *Result, rules []plugin.Rule, pages []discovery.Page, outcomes []download.Outcome) {
	started := time.Now()
	before := len(res.Errors)

	docs := make([]detect.Document, 0, len(pages)+len(outcomes))
	for _, p := range pages {
		docs = append(docs, detect.Document{Asset: p.URL, Host: p.Host, Text: p.Text})
	}
	for _, o := range download.Successful(outcomes) {
		body, err := os.ReadFile(o.Path)
		if err != nil {
			r.recordError(ctx, res, events.StageDetect, o.Asset.URL, err.Error())
			continue
		}
		docs = append(docs, detect.Document{Asset: o.Asset.URL, Host: o.Asset.Origin, Text: string(body)})
	}

	findings, failures := detect.New(nil).DetectAll(docs, rules)
	res.Findings = findings
	res.RuleFailures = failures

	for i := range findings {
		r.emit(ctx, &events.FindingEvent{
			BaseEvent: events.NewBase(events.EventTypeFinding, res.ScanID),
			Finding:   findings[i],
		})
	}

	r.emitStage(ctx, res, events.StageDetect, len(findings),
		len(res.Errors)-before+len(failures), started)
}

// finish seals the result and emits the trailing summary and complete
// events. Those still go out on a canceled scan, on a context detached
// from the scan's, so the report shows what completed.
func (r *Runner) finish(ctx context.Context, res *Result, cause error) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	if cause != nil {
		res.Errors = append(res.Errors, Error{Message: cause.Error()})
		r.emit(ctx, &events.ErrorEvent{
			BaseEvent: events.NewBase(events.EventTypeError, res.ScanID),
			Message:   cause.Error(),
			Fatal:     true,
		})
	}
	res.Duration = time.Since(res.StartTime)

	summary := r.summarize(res, cause)
	r.emit(ctx, summary)
	r.emit(ctx, &events.CompleteEvent{
		BaseEvent: events.NewBase(events.EventTypeComplete, res.ScanID),
		Success:   cause == nil,
		ExitCode:  summary.ExitCode,
		Summary:   summary,
	})

	r.logger.Debug("scan finished",
		slog.String("scan_id", res.ScanID),
		slog.Int("findings", len(res.Findings)),
		slog.Duration("took", res.Duration))
	return res, cause
}

// summarize folds the result into the final summary event. The only
// mid-scan fatal is cancellation; configuration problems fail Run
// before the first event.
func (r *Runner) summarize(res *Result, cause error) *events.SummaryEvent {
	exitCode := defaults.ExitSuccess
	switch {
	case cause != nil:
		exitCode = defaults.ExitInterrupted
	case len(res.Findings) > 0:
		exitCode = defaults.ExitSecretsFound
	}

	var bySeverity, byPlugin map[string]int
	if len(res.Findings) > 0 {
		bySeverity = make(map[string]int)
		for sev, n := range finding.CountBySeverity(res.Findings) {
			bySeverity[string(sev)] = n
		}
		byPlugin = finding.CountByPlugin(res.Findings)
	}

	return &events.SummaryEvent{
		BaseEvent: events.NewBase(events.EventTypeSummary, res.ScanID),
		Version:   defaults.Version,
		Domain:    res.Domain,
		Totals: events.SummaryTotals{
			Subdomains:   len(res.Subdomains),
			Assets:       len(res.Assets),
			Downloaded:   res.Downloaded(),
			Duplicates:   res.Duplicates(),
			FailedAssets: res.Failed(),
			Findings:     len(res.Findings),
			RuleFailures: len(res.RuleFailures),
			Errors:       len(res.Errors),
		},
		BySeverity: bySeverity,
		ByPlugin:   byPlugin,
		Timing: events.SummaryTiming{
			StartedAt:   res.StartTime,
			CompletedAt: res.StartTime.Add(res.Duration),
			DurationSec: res.Duration.Seconds(),
		},
		ExitCode: exitCode,
	}
}

// emitStart announces the scan and its effective configuration.
func (r *Runner) emitStart(ctx context.Context, res *Result, ruleCount int) {
	var sources []string
	if len(r.cfg.Subdomains) == 0 {
		for _, s := range r.sources.Sources() {
			sources = append(sources, string(s))
		}
		sort.Strings(sources)
	}
	var plugins []string
	for _, p := range r.registry.Providers() {
		plugins = append(plugins, p.Name)
	}

	r.emit(ctx, &events.StartEvent{
		BaseEvent: events.NewBase(events.EventTypeStart, res.ScanID),
		Domain:    res.Domain,
		Config: events.ScanConfig{
			Sources:     sources,
			Plugins:     plugins,
			Rules:       ruleCount,
			Concurrency: r.cfg.Concurrency,
			TimeoutSec:  int(r.cfg.Timeout.Seconds()),
			RateLimit:   float64(r.cfg.RateLimit),
			OutputDir:   r.cfg.OutputDir,
			Headless:    r.cfg.Headless,
		},
	})
	r.logger.Debug("scan started",
		slog.String("domain", res.Domain),
		slog.String("scan_id", res.ScanID))
}

// emitStage reports a finished stage. Count is the stage's primary
// output size, errs how many problems it recorded.
func (r *Runner) emitStage(ctx context.Context, res *Result, stage events.Stage, count, errs int, started time.Time) {
	r.emit(ctx, &events.StageEvent{
		BaseEvent:  events.NewBase(events.EventTypeStage, res.ScanID),
		Stage:      stage,
		Count:      count,
		Errors:     errs,
		DurationMs: time.Since(started).Seconds() * 1000,
	})
	r.logger.Debug("stage complete",
		slog.String("stage", string(stage)),
		slog.Int("count", count),
		slog.Int("errors", errs))
}

// recordError keeps a non-fatal error on the result and mirrors it to
// the event stream.
func (r *Runner) recordError(ctx context.Context, res *Result, stage events.Stage, target, msg string) {
	res.Errors = append(res.Errors, Error{Stage: stage, Target: target, Message: msg})
	r.emit(ctx, &events.ErrorEvent{
		BaseEvent: events.NewBase(events.EventTypeError, res.ScanID),
		Stage:     stage,
		Target:    target,
		Message:   msg,
	})
}

// emit dispatches one event. Output is a side channel; delivery
// problems never touch pipeline state.
func (r *Runner) emit(ctx context.Context, ev events.Event) {
	if r.dispatcher == nil {
		return
	}
	_ = r.dispatcher.Dispatch(ctx, ev)
}
