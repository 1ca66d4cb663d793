package fetch

import (
	"fmt"
	"io"
	"net/http"
	"time"

	cookiejar "github.com/orirawlings/persistent-cookiejar"

	"gallerygrab/pkg/errors"
	"gallerygrab/pkg/logger"
)

// Client is the HTTP client used during the download phase. It shares
// the browser's identity: same User-Agent, and a persistent cookie jar
// so authenticated sessions carry over between the collection and
// download phases and across runs.
type Client struct {
	httpClient *http.Client
	jar        *cookiejar.Jar
	headers    map[string]string
	logger     logger.Logger
}

// Options configures a fetch client
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	CookieFile string
}

// NewClient creates a download client. When CookieFile is set, cookies
// are loaded from it on creation and written back on Close.
func NewClient(opts Options, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	var jar *cookiejar.Jar
	if opts.CookieFile != "" {
		var err error
		jar, err = cookiejar.New(&cookiejar.Options{
			Filename: opts.CookieFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open cookie jar: %w", err)
		}
	}

	httpClient := &http.Client{
		Timeout: opts.Timeout,
	}
	if jar != nil {
		httpClient.Jar = jar
	}

	headers := map[string]string{
		"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{
		httpClient: httpClient,
		jar:        jar,
		headers:    headers,
		logger:     log,
	}, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	return c.doRequest(req)
}

// checkResponseStatus maps an HTTP response status to a typed error
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 400 {
			c.logger.ErrorWithFields("unexpected response status", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			// Unlisted codes still split into transient and final
			errType := errors.ErrorTypeUnknown
			if errors.IsRetryableStatusCode(resp.StatusCode) {
				errType = errors.ErrorTypeServerError
			}
			return &errors.Error{
				Type:    errType,
				Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return nil
	}
}

// DownloadAsset fetches a captured asset URL and returns its body
func (c *Client) DownloadAsset(assetURL string) ([]byte, error) {
	c.logger.DebugWithFields("downloading asset", map[string]interface{}{
		"url": assetURL,
	})

	resp, err := c.Get(assetURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.ErrorWithFields("failed to read asset data", map[string]interface{}{
			"url":   assetURL,
			"error": err.Error(),
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to download asset: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("successfully downloaded asset", map[string]interface{}{
		"url":  assetURL,
		"size": len(data),
	})

	return data, nil
}

// AllCookies returns every unexpired cookie in the jar. The browser
// session injects these before navigating so both phases share one
// identity.
func (c *Client) AllCookies() []*http.Cookie {
	if c.jar == nil {
		return nil
	}
	return c.jar.AllCookies()
}

// Close persists the cookie jar, if one is configured
func (c *Client) Close() error {
	if c.jar == nil {
		return nil
	}
	if err := c.jar.Save(); err != nil {
		return fmt.Errorf("failed to save cookie jar: %w", err)
	}
	return nil
}
