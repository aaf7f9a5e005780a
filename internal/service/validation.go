package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/haat/internal/domain"
)

var (
	phonePattern  = regexp.MustCompile(`^[6-9]\d{9}$`)
	postalPattern = regexp.MustCompile(`^\d{6}$`)
	itemIndex     = regexp.MustCompile(`\[(\d+)\]`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator with the storefront rules
// registered. Field names in errors are the JSON names.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		// Amounts validate as numbers so gt/gte apply.
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})

		_ = v.RegisterValidation("in_phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("in_postal", func(fl validator.FieldLevel) bool {
			return postalPattern.MatchString(fl.Field().String())
		})

		validate = v
	})
	return validate
}

// fieldLabels names fields in messages where the JSON name reads poorly.
var fieldLabels = map[string]string{
	"name":           "Name",
	"phone":          "Phone number",
	"address":        "Address",
	"district":       "District",
	"state":          "State",
	"zip":            "Postal code",
	"items":          "Items",
	"productId":      "Product ID",
	"variantId":      "Variant ID",
	"weightId":       "Weight ID",
	"weight":         "Weight",
	"paymentMethod":  "Payment method",
	"deliveryFee":    "Delivery fee",
	"totalAmount":    "Total amount",
	"gatewayOrderId": "Gateway order ID",
	"paymentId":      "Payment ID",
	"signature":      "Signature",
	"otp":            "OTP",
	"status":         "Status",
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	if field == "" {
		return "Field"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// validateStruct runs the struct tag rules on s and converts every failure
// into a message on a *domain.ValidationError. It returns nil when s is valid.
func validateStruct(op string, s any) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.Internal(err, op, "failed to validate request")
	}

	verr := &domain.ValidationError{Title: "Validation failed", Op: op}
	for _, fe := range fieldErrs {
		verr.Add("%s", fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	// Errors inside a slice element are reported as "Item <n>: ...".
	prefix := ""
	if m := itemIndex.FindStringSubmatch(fe.Namespace()); m != nil {
		n, _ := strconv.Atoi(m[1])
		prefix = fmt.Sprintf("Item %d: ", n+1)
	}

	switch fe.Tag() {
	case "required":
		if prefix != "" {
			return prefix + field + " is required"
		}
		return fieldLabel(field) + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			if field == "items" {
				return "At least one item is required"
			}
			return fmt.Sprintf("At least %s %s required", fe.Param(), field)
		}
		return fmt.Sprintf("%s%s must be at least %s", prefix, field, fe.Param())
	case "gt":
		if prefix != "" {
			return fmt.Sprintf("%s%s must be greater than %s", prefix, field, fe.Param())
		}
		return fmt.Sprintf("%s must be greater than %s", fieldLabel(field), fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return fmt.Sprintf("%s%s cannot be negative", prefix, fieldLabel(field))
		}
		return fmt.Sprintf("%s%s must be at least %s", prefix, fieldLabel(field), fe.Param())
	case "in_phone":
		return "Phone number must be 10 digits starting with 6-9"
	case "in_postal":
		return "Postal code must be 6 digits"
	case "email":
		return "Invalid email format"
	case "len", "numeric":
		return fmt.Sprintf("%s%s is invalid", prefix, fieldLabel(field))
	}
	return fmt.Sprintf("%s%s is invalid", prefix, fieldLabel(field))
}

// validatePhone checks a bare phone number outside of a request struct.
func validatePhone(op, phone string) error {
	if phone == "" {
		return domain.NewValidationError(op, "Phone number required")
	}
	if !phonePattern.MatchString(phone) {
		return domain.NewValidationError(op, "Phone number must be 10 digits starting with 6-9")
	}
	return nil
}
