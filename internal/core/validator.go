package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"riverlog/internal/types"
)

// usgsSiteTag validates USGS site numbers: 8 to 15 digits.
const usgsSiteTag = "usgs_site"

// Validator wraps go-playground/validator and registers domain-specific rules.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())

	// usgs_site: numeric string of 8-15 digits.
	_ = v.RegisterValidation(usgsSiteTag, func(fl validator.FieldLevel) bool {
		return ValidSiteNumber(fl.Field().String())
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates a struct against its validate tags. On failure it
// returns a *types.AppError with per-field details suitable for the API
// error envelope.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed", err)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldName(fe)] = describeFailure(fe)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request validation failed",
		err,
		details,
	)
}

// fieldName lowercases the leading struct field for client-facing details,
// approximating the JSON field name.
func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// describeFailure renders a short human-readable reason for a field failure.
func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	case usgsSiteTag:
		return "must be a USGS site number (8-15 digits)"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// ValidSiteNumber reports whether s looks like a USGS site number:
// 8 to 15 ASCII digits.
func ValidSiteNumber(s string) bool {
	if len(s) < 8 || len(s) > 15 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
