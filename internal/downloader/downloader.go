package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"gallerygrab/pkg/checkpoint"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/ratelimit"
	"gallerygrab/pkg/retry"
)

// AssetFetcher downloads one captured URL
type AssetFetcher interface {
	DownloadAsset(url string) ([]byte, error)
}

// AssetStore places downloaded bytes in the per-term layout
type AssetStore interface {
	ProvisionTermDir(term string) error
	AssetPath(term string, ordinal int, assetURL string) string
	Exists(assetPath string) bool
	SaveAsset(r io.Reader, assetPath string) error
}

// CheckpointReader supplies the URL list for a term
type CheckpointReader interface {
	Read(term string) ([]string, error)
}

// Config holds download-phase tunables
type Config struct {
	InterDownloadDelay time.Duration
	RetryAttempts      int
}

// Result summarizes the download phase for one term
type Result struct {
	Term       string
	Total      int
	Downloaded int
	Skipped    int
	Failed     int
}

// Downloader runs the download phase: for each term, read the
// checkpoint and fetch every URL in order, one at a time. Ordinals
// follow checkpoint positions, so a failed item leaves a gap in the
// filenames rather than shifting later ones.
type Downloader struct {
	fetcher     AssetFetcher
	store       AssetStore
	checkpoints CheckpointReader
	limiter     ratelimit.Limiter
	retrier     *retry.Retrier
	cfg         Config
	logger      logger.Logger
}

// New creates a downloader
func New(fetcher AssetFetcher, store AssetStore, checkpoints CheckpointReader, cfg Config, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}

	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: cfg.InterDownloadDelay},
		RetryIf:     retry.DefaultRetryIf,
		Context:     context.Background(),
		Logger:      log,
	})

	return &Downloader{
		fetcher:     fetcher,
		store:       store,
		checkpoints: checkpoints,
		limiter:     ratelimit.NewFixedInterval(cfg.InterDownloadDelay),
		retrier:     retrier,
		cfg:         cfg,
		logger:      log,
	}
}

// Run downloads every term's checkpoint in order. Item failures are
// logged and counted but never stop the run; only context
// cancellation aborts it.
func (d *Downloader) Run(ctx context.Context, terms []string) ([]Result, error) {
	results := make([]Result, 0, len(terms))

	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("download phase cancelled: %w", err)
		}

		result, err := d.runTerm(ctx, term)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// runTerm downloads one term's checkpoint
func (d *Downloader) runTerm(ctx context.Context, term string) (Result, error) {
	result := Result{Term: term}

	urls, err := d.checkpoints.Read(term)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			d.logger.WithField("term", term).Warn("no checkpoint, skipping term")
			return result, nil
		}
		return result, fmt.Errorf("failed to read checkpoint for term %q: %w", term, err)
	}
	result.Total = len(urls)

	if err := d.store.ProvisionTermDir(term); err != nil {
		return result, err
	}

	d.logger.InfoWithFields("starting downloads for term", map[string]interface{}{
		"term": term,
		"urls": len(urls),
	})

	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("download phase cancelled: %w", err)
		}

		ordinal := i + 1
		switch d.downloadOne(ctx, term, ordinal, url) {
		case outcomeDownloaded:
			result.Downloaded++
		case outcomeSkipped:
			result.Skipped++
		case outcomeFailed:
			result.Failed++
		}
	}

	d.logger.InfoWithFields("term downloads finished", map[string]interface{}{
		"term":       term,
		"downloaded": result.Downloaded,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
	})

	return result, nil
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// downloadOne fetches a single checkpoint entry. Every network attempt
// is followed by the inter-download delay, success or not; already
// present files are skipped without touching the network.
func (d *Downloader) downloadOne(ctx context.Context, term string, ordinal int, url string) outcome {
	dest := d.store.AssetPath(term, ordinal, url)

	if d.store.Exists(dest) {
		logger.LogDownload(term, url, ordinal, false, nil)
		return outcomeSkipped
	}

	d.limiter.Wait()

	err := d.retrier.WithContext(ctx).Do(func() error {
		data, err := d.fetcher.DownloadAsset(url)
		if err != nil {
			return err
		}
		return d.store.SaveAsset(bytes.NewReader(data), dest)
	})

	if err != nil {
		logger.LogDownload(term, url, ordinal, false, err)
		return outcomeFailed
	}

	logger.LogDownload(term, url, ordinal, true, nil)
	return outcomeDownloaded
}
