package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittostore/pkg/acl"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Store.Type == "s3" {
		if s, _ := cfg.Store.S3["bucket"].(string); s == "" {
			return fmt.Errorf("store.s3: bucket is required")
		}
	}

	if cfg.Index.Type == "badger" {
		inMemory, _ := cfg.Index.Badger["in_memory"].(bool)
		path, _ := cfg.Index.Badger["db_path"].(string)
		if !inMemory && path == "" {
			return fmt.Errorf("index.badger: db_path is required unless in_memory is set")
		}
	}

	if cfg.Mutation.Burst > 0 && cfg.Mutation.CallsPerSecond == 0 {
		return fmt.Errorf("mutation: burst is set but calls_per_second is 0 (unlimited)")
	}

	if _, err := acl.NewRuleSet(cfg.ACL.Rules, cfg.ACL.DefaultAllow); err != nil {
		return fmt.Errorf("acl: %w", err)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
