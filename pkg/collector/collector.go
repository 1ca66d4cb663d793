package collector

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"gallerygrab/pkg/logger"
)

// Collector captures asset URLs from the browser's network traffic.
// Every response whose URL starts with the configured prefix is
// recorded once, in first-seen order. Responses observed while the
// collector is detached are ignored, so each term's capture window is
// bounded by an Attach/Detach pair.
type Collector struct {
	mu     sync.Mutex
	prefix string
	urls   []string
	seen   map[string]struct{}
	active bool
	logger logger.Logger
}

// New creates a collector that matches URLs by prefix
func New(prefix string, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Collector{
		prefix: prefix,
		seen:   make(map[string]struct{}),
		logger: log,
	}
}

// Listen registers the network event listener on a browser context.
// Called once per browser session; the listener lives for the life of
// the context, while Attach and Detach open and close the capture
// window around it.
func (c *Collector) Listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			c.Observe(resp.Response.URL)
		}
	})
}

// Attach clears any previous capture and opens the capture window
func (c *Collector) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.urls = nil
	c.seen = make(map[string]struct{})
	c.active = true
}

// Detach closes the capture window. Responses arriving afterwards are
// dropped.
func (c *Collector) Detach() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

// Observe records a URL if the capture window is open, the URL matches
// the prefix, and it has not been seen before
func (c *Collector) Observe(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	if !strings.HasPrefix(url, c.prefix) {
		return
	}
	if _, ok := c.seen[url]; ok {
		return
	}

	c.seen[url] = struct{}{}
	c.urls = append(c.urls, url)

	c.logger.DebugWithFields("captured asset URL", map[string]interface{}{
		"url":   url,
		"total": len(c.urls),
	})
}

// Snapshot returns the captured URLs in first-seen order
func (c *Collector) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.urls))
	copy(out, c.urls)
	return out
}

// Count returns the number of distinct URLs captured so far
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}
