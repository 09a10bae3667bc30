package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "gte":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "provider_name":
		return "must consist only of lowercase letters, numbers, underscores, and dashes [a-z0-9_-]"
	case "range_format":
		return "must be one of: plain-text, json-array, json-nested, embedded-text"
	case "dns_server":
		return "must be an IPv4 address, optionally with a port (e.g. 1.1.1.1 or 8.8.8.8:53)"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // For providers: the provider name (e.g. "cloudflare")
	FieldPath string // Dot-notation field path (e.g. "general.interval_seconds")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validators
	if err := validate.RegisterValidation("provider_name", validateProviderName); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("range_format", validateRangeFormat); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("dns_server", validateDNSServer); err != nil {
		panic(err)
	}

	// Register function to get field name from "toml" tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateConfig validates the entire configuration and returns all validation errors
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	if c.General == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general",
			Message:   "configuration must contain 'general' section",
		})
		return validationErrors
	}

	if err := validate.Struct(c.General); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "general", "")...)
	}

	if len(c.Providers) == 0 {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "provider",
			Message:   "configuration must contain at least one provider",
		})
	} else {
		validationErrors = append(validationErrors, c.validateProviders()...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateProviders() ValidationErrors {
	var validationErrors ValidationErrors

	seenNames := make(map[string]bool)

	for i, provider := range c.Providers {
		itemName := provider.Name
		if itemName == "" {
			itemName = fmt.Sprintf("provider[%d]", i)
		}

		if err := validate.Struct(provider); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("provider.%d", i), itemName)...)
		}

		if seenNames[provider.Name] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "name",
				Message:   fmt.Sprintf("duplicate provider name: %s", provider.Name),
			})
		}
		seenNames[provider.Name] = true
	}

	return validationErrors
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string, itemName string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			if e.Field() != "" {
				// e.Field() returns the TOML tag name because of the
				// registered TagNameFunc
				fieldName := e.Field()

				if fieldPrefix != "" {
					fieldPath = fieldPrefix + "." + fieldName
				} else {
					fieldPath = fieldName
				}
			}

			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// Custom validator: provider name format
func validateProviderName(fl validator.FieldLevel) bool {
	return providerNameRegexp.MatchString(fl.Field().String())
}

// Custom validator: known range list format
func validateRangeFormat(fl validator.FieldLevel) bool {
	switch RangeFormat(fl.Field().String()) {
	case FormatPlainText, FormatJSONArray, FormatJSONNested, FormatEmbeddedText:
		return true
	}
	return false
}

// Custom validator: DNS upstream, "ip" or "ip:port"
func validateDNSServer(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}

	host := value
	if h, port, err := net.SplitHostPort(value); err == nil {
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			return false
		}
		host = h
	}

	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil
}
