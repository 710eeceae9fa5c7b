// Package numfmt coerces loosely typed vendor fields into numbers and turns
// numbers into display strings.
//
// Two silent-degrade rules live here. Coerce never fails: anything that is
// not a finite number becomes 0. The Format functions never print NaN: a
// missing or non-finite value prints as Placeholder.
package numfmt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is printed for missing or non-finite values.
const Placeholder = "-"

// DefaultDigits is the fraction digit count used when none is given.
const DefaultDigits = 2

// Display locale. zh-CN groups thousands with "," and uses "." as decimal point.
var printer = message.NewPrinter(language.SimplifiedChinese)

// Coerce converts a vendor value to a finite float64. A single percent sign
// is stripped from strings before parsing; unparseable, missing or
// non-finite values become 0.
func Coerce(v any) float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		return parse(string(t))
	case string:
		return parse(t)
	default:
		return parse(fmt.Sprint(v))
	}
	return finite(f)
}

func parse(s string) float64 {
	s = strings.TrimSpace(strings.Replace(s, "%", "", 1))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Text converts a vendor value to a trimmed string; nil becomes "".
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func digitsOf(digits []int) int {
	if len(digits) > 0 && digits[0] >= 0 {
		return digits[0]
	}
	return DefaultDigits
}

// FormatNumber prints v with thousands separators and a fixed number of
// fraction digits (DefaultDigits unless given).
func FormatNumber(v float64, digits ...int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Placeholder
	}
	return printer.Sprint(number.Decimal(v, number.Scale(digitsOf(digits))))
}

// FormatPtr is FormatNumber for optional values; nil prints Placeholder.
func FormatPtr(v *float64, digits ...int) string {
	if v == nil {
		return Placeholder
	}
	return FormatNumber(*v, digits...)
}

// FormatSigned is FormatNumber with an explicit "+" on positive values.
// Zero gets no sign; negative values carry their own.
func FormatSigned(v float64, digits ...int) string {
	s := FormatNumber(v, digits...)
	if v > 0 && s != Placeholder {
		return "+" + s
	}
	return s
}

// FormatPercent is FormatSigned followed by a percent sign.
func FormatPercent(v float64, digits ...int) string {
	s := FormatSigned(v, digits...)
	if s == Placeholder {
		return s
	}
	return s + "%"
}

// FormatMoney prints a CNY amount.
func FormatMoney(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Placeholder
	}
	return money.NewFromFloat(amount, money.CNY).Display()
}

// PercentClass classifies a change for styling: zero counts as positive.
func PercentClass(v float64) string {
	if v >= 0 {
		return "positive"
	}
	return "negative"
}
