package validators

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Register installs custom binding rules on gin's validator engine. Call
// once at startup before routes are registered.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("nonzerodecimal", nonZeroDecimal)
}

// nonZeroDecimal rejects zero amounts. Ledger entries must move value in
// one direction or the other.
func nonZeroDecimal(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	return !d.IsZero()
}
