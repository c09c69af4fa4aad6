package handler

import (
	"reflect"
	"sync"

	"assetledger/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验器注册金额校验
//
// decimal.Decimal 在校验时按十进制文本处理，decimal6 要求金额为正数且最多 6 位小数
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		if err := v.RegisterValidation("decimal6", validateDecimal6); err != nil {
			panic(err)
		}
	})
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func validateDecimal6(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return validAmount(d)
}

// validAmount 金额大于 0 且小数位不超过 model.AmountScale
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Truncate(model.AmountScale).Equal(d)
}
