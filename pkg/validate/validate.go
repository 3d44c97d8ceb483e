package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	TrackingPrefix = "PH"
	TrackingDigits = 12
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			if d, ok := v.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = instance.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && Money(d)
		})
		_ = instance.RegisterValidation("tracking", func(fl validator.FieldLevel) bool {
			return IsTrackingCode(fl.Field().String())
		})
	})
	return instance
}

// Struct runs the `validate` tags of v and flattens field errors into one message.
func Struct(v interface{}) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}

// Money reports a positive amount with no more than two significant decimals.
// Trailing zeros do not count, so "2500.000" is accepted.
func Money(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// IsTrackingCode checks the "PH" prefix, the digit count and the Luhn check digit.
func IsTrackingCode(s string) bool {
	digits, ok := strings.CutPrefix(s, TrackingPrefix)
	if !ok || len(digits) != TrackingDigits {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return goluhn.Validate(digits) == nil
}
