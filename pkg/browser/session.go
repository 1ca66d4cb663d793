package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"gallerygrab/pkg/config"
	"gallerygrab/pkg/errors"
	"gallerygrab/pkg/logger"
)

// Session owns one headless browser instance for the whole run. It
// tracks in-flight network requests so the load loop can wait for the
// page to go quiet between cycles.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	cfg         config.BrowserConfig
	logger      logger.Logger

	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
}

// NewSession launches a browser and enables network event tracking.
// The session's context descends from parent, so cancelling the run
// tears the browser down with it.
func NewSession(parent context.Context, cfg config.BrowserConfig, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	if cfg.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, cfg.Timeout)
		inner := cancel
		cancel = func() {
			timeoutCancel()
			inner()
		}
	}

	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		cfg:         cfg,
		logger:      log,
		inflight:    make(map[network.RequestID]struct{}),
	}

	s.trackRequests()

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		s.Close()
		return nil, &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("failed to enable network tracking: %v", err),
		}
	}

	log.InfoWithFields("browser session started", map[string]interface{}{
		"headless": cfg.Headless,
	})

	return s, nil
}

// Context returns the browser context. Collector listeners and load
// loop actions run against it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// trackRequests maintains the in-flight request set from network events
func (s *Session) trackRequests() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.mu.Lock()
			s.inflight[e.RequestID] = struct{}{}
			s.mu.Unlock()
		case *network.EventLoadingFinished:
			s.mu.Lock()
			delete(s.inflight, e.RequestID)
			s.mu.Unlock()
		case *network.EventLoadingFailed:
			s.mu.Lock()
			delete(s.inflight, e.RequestID)
			s.mu.Unlock()
		}
	})
}

// InflightCount returns the number of network requests still pending
func (s *Session) InflightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// InjectCookies sets cookies in the browser before navigation so the
// page loads with an authenticated session
func (s *Session) InjectCookies(cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}

	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			action := network.SetCookie(c.Name, c.Value).
				WithDomain(strings.TrimPrefix(c.Domain, ".")).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HttpOnly)
			if !c.Expires.IsZero() && c.Expires.After(time.Now()) {
				expires := cdp.TimeSinceEpoch(c.Expires)
				action = action.WithExpires(&expires)
			}

			if err := action.Do(ctx); err != nil {
				s.logger.WarnWithFields("failed to inject cookie", map[string]interface{}{
					"cookie": c.Name,
					"domain": c.Domain,
					"error":  err.Error(),
				})
				continue
			}
		}
		return nil
	}))
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("cookie injection failed: %v", err),
		}
	}

	s.logger.DebugWithFields("cookies injected", map[string]interface{}{
		"count": len(cookies),
	})

	return nil
}

// Navigate opens the target page and waits for the initial load
func (s *Session) Navigate(url string) error {
	s.logger.WithField("url", url).Info("navigating to target")

	err := chromedp.Run(s.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("navigation to %s failed: %v", url, err),
		}
	}

	return nil
}

// SubmitQuery types a search term into the page's search input and
// submits it. A missing or invisible input is fatal for the term: the
// page is not in the state the selectors were written for.
func (s *Session) SubmitQuery(selector, term string) error {
	s.logger.WithFields(map[string]interface{}{
		"term":     term,
		"selector": selector,
	}).Info("submitting search query")

	waitCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("search input %q not found: %v", selector, err),
		}
	}

	err := chromedp.Run(s.ctx,
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, term+kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeBrowser,
			Message: fmt.Sprintf("failed to submit query %q: %v", term, err),
		}
	}

	return nil
}

// Close tears down the browser
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
	s.logger.Debug("browser session closed")
}
