package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gallerygrab/pkg/config"
	"gallerygrab/pkg/logger"
	"gallerygrab/pkg/runner"
)

var (
	// Run command flags
	targetURL          string
	assetURLPrefix     string
	queries            []string
	outputDir          string
	maxStallCount      int
	interDownloadDelay time.Duration
	headless           bool
	cookieFile         string
	skipDownload       bool
	downloadOnly       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect and download gallery images for the configured search terms",
	Long: `Run a full session: open the target gallery in a headless browser,
submit each search term, scroll its feed to exhaustion while capturing
asset URLs, checkpoint the captures, and download everything.

Terms are processed in configuration order. Each term's downloads land
in their own directory, named {term}-{position}.{ext} in capture order.
A failed download leaves a gap in the numbering rather than shifting
later files.`,
	Example: `  # Run with a config file
  gallerygrab run --config gallery.yaml

  # Override the search terms and output directory
  gallerygrab run --queries sunset,cats --output ./images

  # Collect checkpoints now, download later
  gallerygrab run --skip-download
  gallerygrab run --download-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&targetURL, "target-url", "", "gallery entry point URL")
	runCmd.Flags().StringVar(&assetURLPrefix, "asset-url-prefix", "", "URL prefix identifying asset responses")
	runCmd.Flags().StringSliceVarP(&queries, "queries", "q", nil, "search terms, in order")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads")
	runCmd.Flags().IntVar(&maxStallCount, "max-stall-count", 0, "consecutive unproductive load cycles before a feed is considered exhausted")
	runCmd.Flags().DurationVar(&interDownloadDelay, "inter-download-delay", 0, "fixed delay between download attempts")
	runCmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	runCmd.Flags().StringVar(&cookieFile, "cookie-file", "", "persistent cookie jar file")
	runCmd.Flags().BoolVar(&skipDownload, "skip-download", false, "stop after writing checkpoints")
	runCmd.Flags().BoolVar(&downloadOnly, "download-only", false, "skip collection and download existing checkpoints")
}

// runSession loads configuration, wires the runner, and executes it
func runSession() error {
	if skipDownload && downloadOnly {
		return fmt.Errorf("--skip-download and --download-only are mutually exclusive")
	}

	flags := make(map[string]interface{})
	if targetURL != "" {
		flags["target-url"] = targetURL
	}
	if assetURLPrefix != "" {
		flags["asset-url-prefix"] = assetURLPrefix
	}
	if len(queries) > 0 {
		flags["queries"] = queries
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if maxStallCount > 0 {
		flags["max-stall-count"] = maxStallCount
	}
	if interDownloadDelay > 0 {
		flags["inter-download-delay"] = interDownloadDelay
	}
	flags["headless"] = headless
	if cookieFile != "" {
		flags["cookie-file"] = cookieFile
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := runner.Build(ctx, cfg, runner.Options{
		SkipDownload: skipDownload,
		DownloadOnly: downloadOnly,
	}, log)
	if err != nil {
		return err
	}
	defer cleanup()

	return r.Run(ctx)
}
