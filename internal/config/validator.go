// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Custom rules
// ------------
//   • csrfkey – base64url (no padding) that decodes to at least 32 bytes.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("csrfkey", func(fl validator.FieldLevel) bool {
		b, err := base64.RawURLEncoding.DecodeString(fl.Field().String())
		return err == nil && len(b) >= 32
	})
	return val
}

//
// public API
//

// validateStruct returns nil on success.  Field errors are flattened into
// one message naming every failing key.
func validateStruct(c *Config) error {
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid fields: %s", strings.Join(parts, ", "))
}
