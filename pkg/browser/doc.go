// Package browser owns the headless Chrome session. It launches the
// browser, injects session cookies, navigates, submits search queries,
// and exposes the page actions the load loop needs: scrolling,
// clicking the load-more control, waiting for network quiet, and
// measuring content height.
package browser
