package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gallerygrab/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := New(&config.LoggingConfig{
		Level: "info",
		File:  logFile,
	})
	if err != nil {
		t.Fatalf("New() with file output failed: %v", err)
	}

	logger.Info("written to file")

	if _, err := os.Stat(logFile); err != nil {
		t.Errorf("Expected log file to be created: %v", err)
	}
}

func TestTestLoggerCapturesMessages(t *testing.T) {
	log := NewTestLogger()

	log.Info("hello")
	log.WarnWithFields("careful", map[string]interface{}{"term": "sunset"})

	if !log.HasMessage("INFO", "hello") {
		t.Error("Expected INFO message to be captured")
	}
	if log.CountLevel("WARN") != 1 {
		t.Errorf("Expected 1 WARN message, got %d", log.CountLevel("WARN"))
	}

	msgs := log.Messages()
	if msgs[1].Fields["term"] != "sunset" {
		t.Errorf("Expected field to be captured, got %v", msgs[1].Fields)
	}
}

func TestTestLoggerDerivedSharesSink(t *testing.T) {
	log := NewTestLogger()

	derived := log.WithField("term", "cats").WithError(errors.New("boom"))
	derived.Error("failed")

	if !log.HasMessage("ERROR", "failed") {
		t.Error("Expected derived logger messages to reach the root capture")
	}

	msgs := log.Messages()
	last := msgs[len(msgs)-1]
	if last.Fields["term"] != "cats" {
		t.Errorf("Expected derived field, got %v", last.Fields)
	}
	if last.Error == nil || last.Error.Error() != "boom" {
		t.Errorf("Expected captured error, got %v", last.Error)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "fatal", "disabled"} {
		if _, err := parseLogLevel(level); err != nil {
			t.Errorf("Expected %q to parse, got %v", level, err)
		}
	}

	if _, err := parseLogLevel("verbose"); err == nil {
		t.Error("Expected unknown level to fail")
	}
}
