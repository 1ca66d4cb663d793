package runner

import (
	"context"
	"fmt"
	"time"

	"gallerygrab/internal/downloader"
	"gallerygrab/pkg/browser"
	"gallerygrab/pkg/checkpoint"
	"gallerygrab/pkg/collector"
	"gallerygrab/pkg/config"
	"gallerygrab/pkg/fetch"
	"gallerygrab/pkg/loader"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/ratelimit"
	"gallerygrab/pkg/storage"
)

// collectAdapter binds the load loop to the browser's context. The
// browser context descends from the run context, so cancellation
// still propagates.
type collectAdapter struct {
	loader     *loader.ProgressiveLoader
	browserCtx context.Context
}

func (a *collectAdapter) Run(_ context.Context, term string) error {
	return a.loader.Run(a.browserCtx, term)
}

// Build wires a runner from configuration: checkpoint store, storage
// layout, download client, and, unless the run is download-only, a
// live browser session with its collector and load loop. The returned
// cleanup persists the cookie jar and must run after Run finishes.
func Build(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (*Runner, func(), error) {
	if log == nil {
		log = logger.GetLogger()
	}

	cps, err := checkpoint.NewStore(cfg.CheckpointDir(), log)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Download.DefaultExtension)
	if err != nil {
		return nil, nil, err
	}

	client, err := fetch.NewClient(fetch.Options{
		Timeout:    cfg.Download.Timeout,
		UserAgent:  cfg.Browser.UserAgent,
		CookieFile: cfg.Browser.CookieFile,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Warn("failed to persist cookie jar")
		}
	}

	downloads := downloader.New(client, store, cps, downloader.Config{
		InterDownloadDelay: cfg.Download.InterDownloadDelay,
		RetryAttempts:      cfg.Download.RetryAttempts,
	}, log)

	var b Browser
	var tc TermCollector
	if !opts.DownloadOnly {
		session, err := browser.NewSession(ctx, cfg.Browser, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to start browser: %w", err)
		}

		col := collector.New(cfg.Target.AssetURLPrefix, log)
		col.Listen(session.Context())

		feed := browser.NewPageFeed(session, cfg.Target, cfg.Loader, log)
		loaderCfg := loader.Config{MaxStallCount: cfg.Loader.MaxStallCount}
		if cfg.Loader.CyclesPerMinute > 0 {
			loaderCfg.Limiter = ratelimit.NewTokenBucket(cfg.Loader.CyclesPerMinute, time.Minute)
		}
		ldr := loader.New(feed, col, cps, loaderCfg, log)

		b = session
		tc = &collectAdapter{loader: ldr, browserCtx: session.Context()}
	}

	return New(cfg, opts, b, tc, downloads, client.AllCookies(), log), cleanup, nil
}
