package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Loader.MaxStallCount != 10 {
		t.Errorf("Expected default max stall count to be 10, got %d", config.Loader.MaxStallCount)
	}

	if config.Loader.CyclesPerMinute != 30 {
		t.Errorf("Expected default cycle cap to be 30, got %d", config.Loader.CyclesPerMinute)
	}

	if config.Download.InterDownloadDelay != time.Second {
		t.Errorf("Expected default inter-download delay to be 1s, got %s", config.Download.InterDownloadDelay)
	}

	if config.Download.RetryAttempts != 1 {
		t.Errorf("Expected default retry attempts to be 1, got %d", config.Download.RetryAttempts)
	}

	if config.Download.DefaultExtension != "png" {
		t.Errorf("Expected default extension to be png, got %s", config.Download.DefaultExtension)
	}

	if config.Output.BaseDirectory != "./downloads" {
		t.Errorf("Expected default output directory to be ./downloads, got %s", config.Output.BaseDirectory)
	}

	if !config.Browser.Headless {
		t.Error("Expected browser to default to headless")
	}
}

func TestCheckpointDir(t *testing.T) {
	config := DefaultConfig()

	want := filepath.Join("./downloads", ".checkpoints")
	if got := config.CheckpointDir(); got != want {
		t.Errorf("Expected checkpoint dir %s, got %s", want, got)
	}

	config.Output.CheckpointDirectory = "/var/lib/gallerygrab/checkpoints"
	if got := config.CheckpointDir(); got != "/var/lib/gallerygrab/checkpoints" {
		t.Errorf("Expected explicit checkpoint dir to win, got %s", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("GALLERYGRAB_TARGET_URL", "https://gallery.example.com")
	os.Setenv("GALLERYGRAB_ASSET_URL_PREFIX", "https://cdn.example.com/")
	os.Setenv("GALLERYGRAB_QUERIES", "sunset, cats ,dogs")
	os.Setenv("GALLERYGRAB_OUTPUT_DIR", "/tmp/test-downloads")
	os.Setenv("GALLERYGRAB_MAX_STALL_COUNT", "5")
	os.Setenv("GALLERYGRAB_INTER_DOWNLOAD_DELAY", "500ms")
	os.Setenv("GALLERYGRAB_LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("GALLERYGRAB_TARGET_URL")
		os.Unsetenv("GALLERYGRAB_ASSET_URL_PREFIX")
		os.Unsetenv("GALLERYGRAB_QUERIES")
		os.Unsetenv("GALLERYGRAB_OUTPUT_DIR")
		os.Unsetenv("GALLERYGRAB_MAX_STALL_COUNT")
		os.Unsetenv("GALLERYGRAB_INTER_DOWNLOAD_DELAY")
		os.Unsetenv("GALLERYGRAB_LOG_LEVEL")
	}()

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Target.URL != "https://gallery.example.com" {
		t.Errorf("Expected target URL from env, got %s", config.Target.URL)
	}

	if !reflect.DeepEqual(config.Queries, []string{"sunset", "cats", "dogs"}) {
		t.Errorf("Expected trimmed query list, got %v", config.Queries)
	}

	if config.Loader.MaxStallCount != 5 {
		t.Errorf("Expected max stall count 5, got %d", config.Loader.MaxStallCount)
	}

	if config.Download.InterDownloadDelay != 500*time.Millisecond {
		t.Errorf("Expected inter-download delay 500ms, got %s", config.Download.InterDownloadDelay)
	}

	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `target:
  url: https://gallery.example.com
  asset_url_prefix: https://cdn.example.com/assets/
  search_input_selector: 'input#search'
  load_more_selector: 'button#more'
queries:
  - sunset
  - cats
loader:
  max_stall_count: 7
download:
  inter_download_delay: 2s
  default_extension: jpg
output:
  base_directory: /tmp/gallery
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.Target.SearchInputSelector != "input#search" {
		t.Errorf("Expected selector from file, got %s", config.Target.SearchInputSelector)
	}
	if config.Loader.MaxStallCount != 7 {
		t.Errorf("Expected max stall count 7, got %d", config.Loader.MaxStallCount)
	}
	if config.Download.InterDownloadDelay != 2*time.Second {
		t.Errorf("Expected inter-download delay 2s, got %s", config.Download.InterDownloadDelay)
	}
	if config.Download.DefaultExtension != "jpg" {
		t.Errorf("Expected default extension jpg, got %s", config.Download.DefaultExtension)
	}

	// Defaults survive where the file is silent
	if config.Loader.QuiescenceTimeout != 10*time.Second {
		t.Errorf("Expected default quiescence timeout, got %s", config.Loader.QuiescenceTimeout)
	}
}

func TestValidate(t *testing.T) {
	config := DefaultConfig()
	config.Target.URL = "https://gallery.example.com"
	config.Target.AssetURLPrefix = "https://cdn.example.com/"
	config.Queries = []string{"sunset"}

	if err := config.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidateMissingFields(t *testing.T) {
	config := DefaultConfig()

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation errors, got nil")
	}

	msg := err.Error()
	for _, want := range []string{"target URL", "asset URL prefix", "query term"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected validation error to mention %q, got: %s", want, msg)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	config := DefaultConfig()
	config.Target.URL = "https://gallery.example.com"
	config.Target.AssetURLPrefix = "https://cdn.example.com/"
	config.Queries = []string{"sunset"}
	config.Loader.MaxStallCount = 0
	config.Loader.CyclesPerMinute = -1
	config.Download.RetryAttempts = 0
	config.Logging.Level = "noisy"

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation errors, got nil")
	}

	msg := err.Error()
	for _, want := range []string{"stall count", "cycles per minute", "retry attempts", "log level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected validation error to mention %q, got: %s", want, msg)
		}
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"target-url":           "https://flag.example.com",
		"queries":              []string{"flagged"},
		"max-stall-count":      3,
		"inter-download-delay": 250 * time.Millisecond,
		"headless":             false,
	})

	if config.Target.URL != "https://flag.example.com" {
		t.Errorf("Expected flag to override target URL, got %s", config.Target.URL)
	}
	if !reflect.DeepEqual(config.Queries, []string{"flagged"}) {
		t.Errorf("Expected flag queries, got %v", config.Queries)
	}
	if config.Loader.MaxStallCount != 3 {
		t.Errorf("Expected max stall count 3, got %d", config.Loader.MaxStallCount)
	}
	if config.Browser.Headless {
		t.Error("Expected headless flag to override default")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	original := DefaultConfig()
	original.Target.URL = "https://gallery.example.com"
	original.Queries = []string{"sunset", "cats"}

	if err := original.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded := DefaultConfig()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if loaded.Target.URL != original.Target.URL {
		t.Errorf("Expected target URL to round-trip, got %s", loaded.Target.URL)
	}
	if !reflect.DeepEqual(loaded.Queries, original.Queries) {
		t.Errorf("Expected queries to round-trip, got %v", loaded.Queries)
	}
}
