package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		expectErr bool
	}{
		{"Default config", *DefaultConfig(), false},
		{"Debug config", *DebugConfig(), false},
		{"JSON format", Config{Level: InfoLevel, Format: JSONFormat}, false},
		{"Invalid level", Config{Level: "loud", Format: TextFormat}, true},
		{"Invalid format", Config{Level: InfoLevel, Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.expectErr {
				t.Errorf("Validate() error = %v, expectErr %v", err, tt.expectErr)
			}
		})
	}
}

func TestNewLoggerRejectsInvalidConfig(t *testing.T) {
	if _, err := NewLogger(&Config{Level: "loud", Format: TextFormat}); err == nil {
		t.Error("invalid configuration must be rejected")
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() unexpected error: %v", err)
	}

	log.WithField("account_id", "acct-1").Info("dataset saved")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "dataset saved" {
		t.Errorf("msg = %v, want dataset saved", entry["msg"])
	}
	if entry["account_id"] != "acct-1" {
		t.Errorf("account_id = %v, want acct-1", entry["account_id"])
	}
}

func TestLoggerChainedFieldsAccumulate(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: InfoLevel, Format: JSONFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() unexpected error: %v", err)
	}

	log.WithComponent("store_manager").
		WithFields(Fields{"category": "daily-summary"}).
		WithError(errors.New("disk full")).
		Warn("write degraded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "store_manager" {
		t.Errorf("component = %v, want store_manager", entry["component"])
	}
	if entry["category"] != "daily-summary" {
		t.Errorf("category = %v, want daily-summary", entry["category"])
	}
	if entry["error"] != "disk full" {
		t.Errorf("error = %v, want disk full", entry["error"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: WarnLevel, Format: TextFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() unexpected error: %v", err)
	}

	log.Info("suppressed")
	log.Debug("also suppressed")
	if buf.Len() != 0 {
		t.Errorf("below-level output = %q, want none", buf.String())
	}

	log.Warnf("kept %d", 1)
	if !strings.Contains(buf.String(), "kept 1") {
		t.Errorf("warn output = %q, want it to contain the message", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	t.Cleanup(func() {
		SetGlobalLogger(original)
	})

	var buf bytes.Buffer
	replacement, err := NewLogger(&Config{Level: InfoLevel, Format: TextFormat, Output: &buf})
	if err != nil {
		t.Fatalf("NewLogger() unexpected error: %v", err)
	}

	SetGlobalLogger(replacement)
	GetGlobalLogger().Info("through the global")
	if !strings.Contains(buf.String(), "through the global") {
		t.Errorf("global logger output = %q", buf.String())
	}
}
