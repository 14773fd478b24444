// Package validation validates configuration and request input.
//
// It supports struct tag validation (using the validator library) and
// programmatic validation with error collection. Both report failures as an
// errors.AppError with code INVALID_INPUT and the failing fields in Details.
//
// # Struct Tag Validation
//
//	type LinkConfig struct {
//	    Capacity int `mapstructure:"capacity" validate:"gt=0"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(low < high, "low_watermark", "must be below high_watermark")
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
