// Package collector captures asset URLs from browser network traffic.
// A collector watches every response the page produces and keeps the
// ones whose URL starts with the configured prefix, first-seen order,
// no duplicates. The capture window opens at Attach and closes at
// Detach, bounding each search term's haul.
package collector
