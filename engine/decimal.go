package engine

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact base-10 number used to accumulate measure values.
// Summing money as float64 drifts (0.1+0.2); sums run through apd instead.
type Decimal struct {
	value apd.Decimal
}

var decimalCtx = apd.BaseContext.WithPrecision(34)

// NewDecimal parses a decimal string such as "5320.50".
func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal: %w", err)
	}
	return Decimal{value: d}, nil
}

// NewDecimalFromFloat converts f using its shortest decimal representation.
func NewDecimalFromFloat(f float64) (Decimal, error) {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %v: %w", f, err)
	}
	return Decimal{value: d}, nil
}

// NewDecimalFromInt64 returns i as a Decimal.
func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d}
}

func (d Decimal) String() string {
	return d.value.String()
}

func (d Decimal) IsZero() bool {
	return d.value.IsZero()
}

func (d Decimal) Cmp(other Decimal) int {
	return d.value.Cmp(&other.value)
}

// Add returns the sum of d and other.
func (d Decimal) Add(other Decimal) Decimal {
	var result apd.Decimal
	decimalCtx.Add(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Div returns the quotient of d divided by other.
func (d Decimal) Div(other Decimal) Decimal {
	var result apd.Decimal
	decimalCtx.Quo(&result, &d.value, &other.value)
	return Decimal{value: result}
}

// Round returns d rounded to places decimal places.
func (d Decimal) Round(places int32) Decimal {
	var result apd.Decimal
	decimalCtx.Quantize(&result, &d.value, -places)
	return Decimal{value: result}
}

// Float64 converts d to the nearest float64.
func (d Decimal) Float64() float64 {
	f, err := d.value.Float64()
	if err != nil {
		return 0
	}
	return f
}
