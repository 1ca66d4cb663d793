package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"gallerygrab/pkg/config"
	"gallerygrab/pkg/errors"
	"gallerygrab/pkg/logger"
)

// inflightCounter reports pending network requests. Session satisfies
// it; tests substitute their own.
type inflightCounter interface {
	InflightCount() int
}

// PageFeed implements the load loop's browser actions against a live
// session. One instance serves every term in the run; the selectors
// and timing come from configuration.
type PageFeed struct {
	session           inflightCounter
	loadMoreSelector  string
	settleDelay       time.Duration
	quiescenceTimeout time.Duration
	logger            logger.Logger
}

// NewPageFeed creates a feed bound to a browser session
func NewPageFeed(s *Session, target config.TargetConfig, loaderCfg config.LoaderConfig, log logger.Logger) *PageFeed {
	if log == nil {
		log = logger.GetLogger()
	}

	return &PageFeed{
		session:           s,
		loadMoreSelector:  target.LoadMoreSelector,
		settleDelay:       loaderCfg.SettleDelay,
		quiescenceTimeout: loaderCfg.QuiescenceTimeout,
		logger:            log,
	}
}

// ScrollToBottom scrolls the page to its current bottom
func (f *PageFeed) ScrollToBottom(ctx context.Context) error {
	err := chromedp.Run(ctx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("scroll failed: %v", err),
		}
	}
	return nil
}

// ActivateLoadMore clicks the load-more control if it is still on the
// page. Absence of the control is the feed's end-of-content signal,
// not an error.
func (f *PageFeed) ActivateLoadMore(ctx context.Context) (bool, error) {
	var present bool
	err := chromedp.Run(ctx,
		chromedp.Evaluate(fmt.Sprintf(`document.querySelector(%q) !== null`, f.loadMoreSelector), &present),
	)
	if err != nil {
		return false, &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("load-more lookup failed: %v", err),
		}
	}
	if !present {
		return false, nil
	}

	if err := chromedp.Run(ctx, chromedp.Click(f.loadMoreSelector, chromedp.ByQuery)); err != nil {
		return true, &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("load-more click failed: %v", err),
		}
	}

	return true, nil
}

// WaitSettled blocks until the page's network traffic has been idle
// for the settle delay, or gives up after the quiescence timeout. A
// timeout is reported but the caller proceeds with whatever loaded.
func (f *PageFeed) WaitSettled(ctx context.Context) error {
	deadline := time.Now().Add(f.quiescenceTimeout)
	idleSince := time.Time{}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if f.session.InflightCount() > 0 {
			idleSince = time.Time{}
		} else if idleSince.IsZero() {
			idleSince = time.Now()
		} else if time.Since(idleSince) >= f.settleDelay {
			return nil
		}

		if time.Now().After(deadline) {
			return &errors.Error{
				Type:    errors.ErrorTypeBrowser,
				Message: fmt.Sprintf("page did not settle within %s", f.quiescenceTimeout),
			}
		}
	}
}

// ContentHeight measures the page's scrollable height
func (f *PageFeed) ContentHeight(ctx context.Context) (int64, error) {
	var height int64
	err := chromedp.Run(ctx,
		chromedp.Evaluate(`document.body.scrollHeight`, &height),
	)
	if err != nil {
		return 0, &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("height measurement failed: %v", err),
		}
	}
	return height, nil
}
