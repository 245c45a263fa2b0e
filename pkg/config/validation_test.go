package config

import (
	"strings"
	"testing"
)

// validConfig returns a configuration that passes validation, for tests to
// break one field at a time.
func validConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Default config should validate, got: %v", err)
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "VERBOSE"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "Level") {
		t.Errorf("Expected error to mention Level, got: %v", err)
	}
}

func TestValidate_BadStorageType(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Type = "floppy"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for unknown storage type, got nil")
	}
}

func TestValidate_S3RequiresBucketAndRegion(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Type = "s3"
	cfg.Storage.S3 = map[string]any{"region": "eu-west-1"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for missing bucket, got nil")
	}
	if !strings.Contains(err.Error(), "bucket") {
		t.Errorf("Expected error to mention bucket, got: %v", err)
	}

	cfg.Storage.S3 = map[string]any{"bucket": "uploads"}
	err = Validate(cfg)
	if err == nil {
		t.Fatal("Expected error for missing region, got nil")
	}
	if !strings.Contains(err.Error(), "region") {
		t.Errorf("Expected error to mention region, got: %v", err)
	}

	cfg.Storage.S3 = map[string]any{"bucket": "uploads", "region": "eu-west-1"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Expected valid S3 config to pass, got: %v", err)
	}
}

func TestValidate_NegativeUploadLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Upload.MaxUploadBytes = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for negative upload limit, got nil")
	}
}

func TestValidate_EmptyBlockedExtension(t *testing.T) {
	cfg := validConfig()
	cfg.Upload.BlockedExtensions = []string{".exe", "  "}

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected error for empty blocked extension, got nil")
	}
}

func TestValidate_EscapingPartsPrefix(t *testing.T) {
	cfg := validConfig()

	for _, prefix := range []string{"/tmp/parts", "uploads/../parts"} {
		cfg.Upload.PartsPrefix = prefix
		if err := Validate(cfg); err == nil {
			t.Errorf("Expected error for parts prefix %q, got nil", prefix)
		}
	}
}
