// Package loader drives an infinite-scroll feed to exhaustion.
//
// The load loop runs one cycle at a time: scroll to the bottom, click
// the load-more control, wait for the page to settle, measure the
// content height. The convergence detector watches those measurements
// and stops the loop once the feed yields nothing new for a configured
// number of cycles, or immediately when the load-more control
// disappears. Whatever the collector captured by then becomes the
// term's checkpoint.
package loader
