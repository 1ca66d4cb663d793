package runner

import (
	"context"
	"fmt"
	"net/http"

	"gallerygrab/internal/downloader"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/logger"
)

// Browser is the slice of the browser session the runner drives
type Browser interface {
	InjectCookies(cookies []*http.Cookie) error
	Navigate(url string) error
	SubmitQuery(selector, term string) error
	Close()
}

// TermCollector loads one term's feed to convergence and checkpoints it
type TermCollector interface {
	Run(ctx context.Context, term string) error
}

// DownloadPhase downloads every term's checkpoint
type DownloadPhase interface {
	Run(ctx context.Context, terms []string) ([]downloader.Result, error)
}

// Options selects which phases of a run execute
type Options struct {
	// SkipDownload stops after checkpoints are written
	SkipDownload bool
	// DownloadOnly skips collection and downloads existing checkpoints
	DownloadOnly bool
}

// Runner orchestrates a full session: the collection phase walks every
// search term through the browser and checkpoints its captures, then
// the download phase fetches everything the checkpoints recorded.
type Runner struct {
	cfg       *config.Config
	opts      Options
	browser   Browser
	collector TermCollector
	downloads DownloadPhase
	cookies   []*http.Cookie
	logger    logger.Logger
}

// New creates a runner over pre-built phase components. browser and
// collector may be nil when opts.DownloadOnly is set; downloads may be
// nil when opts.SkipDownload is set.
func New(cfg *config.Config, opts Options, browser Browser, collector TermCollector, downloads DownloadPhase, cookies []*http.Cookie, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Runner{
		cfg:       cfg,
		opts:      opts,
		browser:   browser,
		collector: collector,
		downloads: downloads,
		cookies:   cookies,
		logger:    log,
	}
}

// Run executes the configured phases. Collection failures on a term
// are fatal for the run; download failures are isolated per item,
// counted in the run summary, and never fail the run.
func (r *Runner) Run(ctx context.Context) error {
	if !r.opts.DownloadOnly {
		if err := r.collect(ctx); err != nil {
			return err
		}
	}

	if r.opts.SkipDownload {
		r.logger.Info("download phase skipped")
		return nil
	}

	return r.download(ctx)
}

// collect runs the browser-driven collection phase for every term
func (r *Runner) collect(ctx context.Context) error {
	defer r.browser.Close()

	if err := r.browser.InjectCookies(r.cookies); err != nil {
		return err
	}
	if err := r.browser.Navigate(r.cfg.Target.URL); err != nil {
		return err
	}

	for _, term := range r.cfg.Queries {
		r.logger.WithField("term", term).Info("collecting term")

		if err := r.browser.SubmitQuery(r.cfg.Target.SearchInputSelector, term); err != nil {
			return fmt.Errorf("collection failed for term %q: %w", term, err)
		}
		if err := r.collector.Run(ctx, term); err != nil {
			return fmt.Errorf("collection failed for term %q: %w", term, err)
		}
	}

	return nil
}

// download runs the download phase over all configured terms
func (r *Runner) download(ctx context.Context) error {
	results, err := r.downloads.Run(ctx, r.cfg.Queries)
	if err != nil {
		return err
	}

	var downloaded, skipped, failed int
	for _, res := range results {
		downloaded += res.Downloaded
		skipped += res.Skipped
		failed += res.Failed
	}

	r.logger.InfoWithFields("run finished", map[string]interface{}{
		"terms":      len(results),
		"downloaded": downloaded,
		"skipped":    skipped,
		"failed":     failed,
	})

	if failed > 0 {
		r.logger.WarnWithFields("some downloads failed", map[string]interface{}{
			"failed":    failed,
			"attempted": downloaded + failed,
		})
	}

	return nil
}
