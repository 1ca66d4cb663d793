package loader

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gallerygrab/pkg/checkpoint"
	"gallerygrab/pkg/collector"
	"gallerygrab/pkg/logger"
)

// scriptedFeed plays back a fixed sequence of load cycles and pushes
// captured URLs into the collector as a real page load would
type scriptedFeed struct {
	cycles []cycle
	pos    int
	col    *collector.Collector
}

type cycle struct {
	scrollErr  error
	hasMore    bool
	activeErr  error
	height     int64
	heightErr  error
	capture    []string
}

func (f *scriptedFeed) current() cycle {
	if f.pos >= len(f.cycles) {
		// Past the script the feed looks exhausted
		return cycle{hasMore: false}
	}
	return f.cycles[f.pos]
}

func (f *scriptedFeed) ScrollToBottom(ctx context.Context) error {
	c := f.current()
	if c.scrollErr != nil {
		f.pos++
		return c.scrollErr
	}
	return nil
}

func (f *scriptedFeed) ActivateLoadMore(ctx context.Context) (bool, error) {
	c := f.current()
	if c.activeErr != nil {
		f.pos++
		return false, c.activeErr
	}
	if !c.hasMore {
		f.pos++
		return false, nil
	}
	for _, u := range c.capture {
		f.col.Observe(u)
	}
	return true, nil
}

func (f *scriptedFeed) WaitSettled(ctx context.Context) error {
	return nil
}

func (f *scriptedFeed) ContentHeight(ctx context.Context) (int64, error) {
	c := f.current()
	f.pos++
	return c.height, c.heightErr
}

func newLoaderFixture(t *testing.T, cycles []cycle, maxStalls int) (*ProgressiveLoader, *scriptedFeed, *checkpoint.Store) {
	t.Helper()

	store, err := checkpoint.NewStore(t.TempDir(), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	col := collector.New("https://cdn.example.com/", logger.NewTestLogger())
	feed := &scriptedFeed{cycles: cycles, col: col}
	l := New(feed, col, store, Config{MaxStallCount: maxStalls}, logger.NewTestLogger())
	return l, feed, store
}

func TestRunConvergesOnStalls(t *testing.T) {
	cycles := []cycle{
		{hasMore: true, height: 100, capture: []string{"https://cdn.example.com/a.png"}},
		{hasMore: true, height: 150, capture: []string{"https://cdn.example.com/b.png"}},
		{hasMore: true, height: 150},
		{hasMore: true, height: 150},
	}
	l, feed, store := newLoaderFixture(t, cycles, 2)

	if err := l.Run(context.Background(), "sunset"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The loop should stop inside the script, at the second stall
	if feed.pos != 4 {
		t.Errorf("Expected 4 cycles, got %d", feed.pos)
	}

	urls, err := store.Read("sunset")
	if err != nil {
		t.Fatalf("Failed to read checkpoint: %v", err)
	}
	want := []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Expected checkpoint %v, got %v", want, urls)
	}
}

func TestRunStopsWhenLoadMoreGone(t *testing.T) {
	cycles := []cycle{
		{hasMore: true, height: 100, capture: []string{"https://cdn.example.com/a.png"}},
		{hasMore: false},
		{hasMore: true, height: 999}, // never reached
	}
	l, feed, _ := newLoaderFixture(t, cycles, 10)

	if err := l.Run(context.Background(), "x"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Cycle 2 stops at the missing control, cycle 3 is never reached
	if feed.pos != 2 {
		t.Errorf("Expected loop to stop at the missing control, pos=%d", feed.pos)
	}
}

func TestRunTransientFaultCountsAsStall(t *testing.T) {
	cycles := []cycle{
		{hasMore: true, height: 100},
		{hasMore: true, activeErr: errors.New("click intercepted")},
		{hasMore: true, height: 200, capture: []string{"https://cdn.example.com/late.png"}},
		{hasMore: false},
	}
	l, _, store := newLoaderFixture(t, cycles, 5)

	if err := l.Run(context.Background(), "x"); err != nil {
		t.Fatalf("Expected fault to stall rather than abort, got %v", err)
	}

	urls, err := store.Read("x")
	if err != nil {
		t.Fatalf("Failed to read checkpoint: %v", err)
	}
	if !reflect.DeepEqual(urls, []string{"https://cdn.example.com/late.png"}) {
		t.Errorf("Expected content after the fault to be captured, got %v", urls)
	}
}

func TestRunWritesEmptyCheckpoint(t *testing.T) {
	cycles := []cycle{
		{hasMore: false},
	}
	l, _, store := newLoaderFixture(t, cycles, 10)

	if err := l.Run(context.Background(), "barren"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	urls, err := store.Read("barren")
	if err != nil {
		t.Fatalf("Expected a checkpoint even with zero captures: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("Expected empty checkpoint, got %v", urls)
	}
}

type countingLimiter struct {
	waits  int
	resets int
}

func (l *countingLimiter) Allow() bool { return true }
func (l *countingLimiter) Wait()       { l.waits++ }
func (l *countingLimiter) Reset()      { l.resets++ }

func TestRunPacesCyclesThroughLimiter(t *testing.T) {
	cycles := []cycle{
		{hasMore: true, height: 100},
		{hasMore: true, height: 150},
		{hasMore: false},
	}
	l, feed, _ := newLoaderFixture(t, cycles, 10)
	lim := &countingLimiter{}
	l.cfg.Limiter = lim

	if err := l.Run(context.Background(), "x"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if lim.waits != feed.pos {
		t.Errorf("Expected one limiter wait per cycle, got %d waits over %d cycles", lim.waits, feed.pos)
	}
	if lim.resets != 1 {
		t.Errorf("Expected the limiter to be reset at the term boundary, got %d resets", lim.resets)
	}
}

func TestRunCancelledContext(t *testing.T) {
	cycles := []cycle{
		{hasMore: true, height: 100},
	}
	l, _, _ := newLoaderFixture(t, cycles, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Run(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
