package config

import (
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	sharedValidator     *validator.Validate
	sharedValidatorOnce sync.Once
)

// Validator returns the process-wide validator with the custom tags registered.
func Validator() *validator.Validate {
	sharedValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := RegisterCustomValidators(v); err != nil {
			panic(err)
		}
		sharedValidator = v
	})
	return sharedValidator
}

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("api_url", validateAPIURL)
}

// validateAPIURL accepts absolute http(s) URLs with a host.
func validateAPIURL(fl validator.FieldLevel) bool {
	return IsValidAPIURL(fl.Field().String())
}

// IsValidAPIURL reports whether raw is an absolute http or https URL.
func IsValidAPIURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Hostname() != ""
}
