package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs request validation rules on gin's binding
// engine. Field names in validation errors use the json tag, matching what
// the client actually sent.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	return v.RegisterValidation("timeinterval", timeInterval)
}

// timeInterval accepts "start/end" windows, e.g. "2026-09-02T09:00/09:30".
func timeInterval(fl validator.FieldLevel) bool {
	parts := strings.Split(fl.Field().String(), "/")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}
