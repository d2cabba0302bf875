package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"supplyhub/internal/domain/documents/supply"
)

// SetupValidator registers the supply enums on gin's validator and
// reports field names by their json tag.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("supply_condition", func(fl validator.FieldLevel) bool {
		return supply.ItemCondition(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return supply.PaymentMethod(fl.Field().String()).Valid()
	})
}

// ValidationDetails flattens validator errors into field -> rule.
func ValidationDetails(err error) map[string]any {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return map[string]any{"error": err.Error()}
	}
	fields := make(map[string]any, len(errs))
	for _, fe := range errs {
		fields[fieldPath(fe)] = fe.Tag()
	}
	return map[string]any{"fields": fields}
}

// fieldPath drops the struct name prefix: "CreateSupplyReturnRequest.items[0].condition" -> "items[0].condition".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
