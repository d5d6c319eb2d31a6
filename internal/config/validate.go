package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrInvalidExtension indicates a missing or malformed source extension
	ErrInvalidExtension = errors.New("invalid source extension")

	// ErrInvalidRegistryURL indicates the registry URL cannot be used
	ErrInvalidRegistryURL = errors.New("invalid registry url")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrEmptyTool indicates no provisioning tool was configured
	ErrEmptyTool = errors.New("empty provisioning tool")

	// ErrInvalidFailurePolicy indicates an unknown provisioning failure policy
	ErrInvalidFailurePolicy = errors.New("invalid failure policy")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}

	if err := validateRegistry(&cfg.Registry); err != nil {
		errs = append(errs, err)
	}

	if err := validateProvision(&cfg.Provision); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateScan(cfg *ScanConfig) error {
	if !strings.HasPrefix(cfg.Extension, ".") || len(cfg.Extension) < 2 {
		return fmt.Errorf("%w: must start with '.', got '%s'", ErrInvalidExtension, cfg.Extension)
	}
	return nil
}

func validateRegistry(cfg *RegistryConfig) error {
	var errs []error

	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: '%s'", ErrInvalidRegistryURL, cfg.URL))
	}

	if cfg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidCacheSettings, cfg.Timeout))
	}

	// Zero disables the in-process cache.
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSettings, cfg.CacheSize))
	}

	if cfg.CachePath != "" && cfg.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%w: cache_ttl must be positive when cache_path is set, got %s", ErrInvalidCacheSettings, cfg.CacheTTL))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateProvision(cfg *ProvisionConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.Tool) == "" {
		errs = append(errs, fmt.Errorf("%w: tool is required", ErrEmptyTool))
	}

	policy := strings.ToLower(cfg.FailurePolicy)
	if policy != FailurePolicyFatal && policy != FailurePolicyReport {
		errs = append(errs, fmt.Errorf("%w: must be '%s' or '%s', got '%s'",
			ErrInvalidFailurePolicy, FailurePolicyFatal, FailurePolicyReport, cfg.FailurePolicy))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches each sentinel through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
