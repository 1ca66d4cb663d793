package loader

import (
	"context"
	"fmt"

	"gallerygrab/pkg/checkpoint"
	"gallerygrab/pkg/collector"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/ratelimit"
)

// Feed abstracts the browser-side actions one load cycle needs. The
// browser package provides the real implementation; tests substitute
// a scripted one.
type Feed interface {
	// ScrollToBottom scrolls the page to its current bottom
	ScrollToBottom(ctx context.Context) error
	// ActivateLoadMore clicks the load-more control. It reports
	// whether the control was still present on the page.
	ActivateLoadMore(ctx context.Context) (bool, error)
	// WaitSettled blocks until in-flight content requests go quiet
	// or the quiescence timeout passes
	WaitSettled(ctx context.Context) error
	// ContentHeight measures the page's scrollable height
	ContentHeight(ctx context.Context) (int64, error)
}

// Config holds the tunables for the load loop. Limiter, when set,
// paces cycles against the origin; it is reset at each term boundary
// so every term starts with a full burst allowance.
type Config struct {
	MaxStallCount int
	Limiter       ratelimit.Limiter
}

// ProgressiveLoader drives an infinite feed to exhaustion for one
// search term: scroll, activate load-more, wait, measure, repeat,
// until the detector declares convergence. The collector captures
// asset URLs for the whole window, and the final capture is persisted
// as the term's checkpoint.
type ProgressiveLoader struct {
	feed      Feed
	collector *collector.Collector
	store     *checkpoint.Store
	cfg       Config
	logger    logger.Logger
}

// New creates a progressive loader
func New(feed Feed, col *collector.Collector, store *checkpoint.Store, cfg Config, log logger.Logger) *ProgressiveLoader {
	if log == nil {
		log = logger.GetLogger()
	}

	return &ProgressiveLoader{
		feed:      feed,
		collector: col,
		store:     store,
		cfg:       cfg,
		logger:    log,
	}
}

// Run loads a term's feed until convergence and writes the checkpoint.
// Transient faults in a cycle count as stalls; only context
// cancellation and checkpoint persistence failures abort the term.
func (l *ProgressiveLoader) Run(ctx context.Context, term string) error {
	l.collector.Attach()
	defer l.collector.Detach()

	if l.cfg.Limiter != nil {
		l.cfg.Limiter.Reset()
	}

	detector := NewDetector(l.cfg.MaxStallCount)
	var lastHeight int64

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("load loop cancelled for term %q: %w", term, err)
		}

		if l.cfg.Limiter != nil {
			l.cfg.Limiter.Wait()
		}

		decision, height := l.runCycle(ctx, term, detector)
		if height > 0 {
			lastHeight = height
		}

		if decision == Stop {
			break
		}
	}

	urls := l.collector.Snapshot()
	logger.LogConvergence(term, lastHeight, len(urls))

	if err := l.store.Write(term, urls); err != nil {
		return fmt.Errorf("failed to checkpoint term %q: %w", term, err)
	}

	return nil
}

// runCycle executes one scroll-activate-settle-measure cycle and
// returns the detector's verdict plus the measured height (0 when the
// cycle faulted before measuring)
func (l *ProgressiveLoader) runCycle(ctx context.Context, term string, detector *Detector) (Decision, int64) {
	if err := l.feed.ScrollToBottom(ctx); err != nil {
		return l.recordStall(term, detector, err), 0
	}

	hasMore, err := l.feed.ActivateLoadMore(ctx)
	if err != nil {
		return l.recordStall(term, detector, err), 0
	}
	if !hasMore {
		l.logger.WithField("term", term).Info("load-more control gone, feed exhausted")
		return Stop, 0
	}

	if err := l.feed.WaitSettled(ctx); err != nil {
		// A settle timeout is not fatal: measure whatever arrived
		l.logger.WithField("term", term).WithError(err).Warn("settle wait ended early")
	}

	height, err := l.feed.ContentHeight(ctx)
	if err != nil {
		return l.recordStall(term, detector, err), 0
	}

	decision := detector.Update(height, true)
	if decision == Continue && detector.Stalls() > 0 {
		logger.LogStall(term, detector.Stalls(), l.cfg.MaxStallCount)
	}
	return decision, height
}

func (l *ProgressiveLoader) recordStall(term string, detector *Detector, err error) Decision {
	l.logger.WithField("term", term).WithError(err).Warn("load cycle faulted")
	decision := detector.Stall()
	if decision == Continue {
		logger.LogStall(term, detector.Stalls(), l.cfg.MaxStallCount)
	}
	return decision
}
