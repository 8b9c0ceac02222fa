package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func configureValidator(validate *validator.Validate) {
	validate.RegisterTagNameFunc(useJSONTagNames)
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = validate.RegisterValidation("positive", validatePositive)
	_ = validate.RegisterValidation("decimal", validateDecimal)
}

// Decimals with exponent beyond the limit are never rendered to string
const (
	decimalExpLimit   = 18
	decimalOutOfRange = "out_of_range"
)

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// Decimals are validated as their string form
func decimalValue(field reflect.Value) any {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	if exp := d.Exponent(); exp > decimalExpLimit || exp < -decimalExpLimit {
		return decimalOutOfRange
	}
	return d.String()
}

// Decimal within supported exponent range
func validateDecimal(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return field.String() != decimalOutOfRange
}

// Number (or decimal) greater than zero
func validatePositive(fl validator.FieldLevel) bool {
	field := fl.Field()

	switch field.Kind() {
	case reflect.String:
		if field.String() == decimalOutOfRange {
			return false
		}
		d, err := decimal.NewFromString(field.String())
		return err == nil && d.IsPositive()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int() > 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return field.Uint() > 0
	case reflect.Float32, reflect.Float64:
		return field.Float() > 0
	default:
		return false
	}
}
