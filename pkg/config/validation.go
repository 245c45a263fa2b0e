package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Backend-specific required fields live in maps, outside tag reach
	if cfg.Storage.Type == "s3" {
		if bucket, _ := cfg.Storage.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("storage.s3: bucket is required")
		}
		if region, _ := cfg.Storage.S3["region"].(string); region == "" {
			return fmt.Errorf("storage.s3: region is required")
		}
	}

	for i, ext := range cfg.Upload.BlockedExtensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("upload.blocked_extensions[%d]: empty extension", i)
		}
	}

	// A flat staging prefix that escapes the namespace would defeat the
	// path policy downstream
	if strings.HasPrefix(cfg.Upload.PartsPrefix, "/") || strings.Contains(cfg.Upload.PartsPrefix, "..") {
		return fmt.Errorf("upload.parts_prefix: must be a relative path without traversal")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
