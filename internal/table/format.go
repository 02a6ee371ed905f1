package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Stringify renders a cell value the way search and plain display see it.
// Whole numbers print without a fractional part.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// Format renders a cell for display. Survived, Fare and Age get
// column-specific treatment, everything else is shown as is.
func Format(column string, v any) string {
	switch column {
	case "Survived":
		if n, ok := number(v); ok && n == 1 {
			return "✅ Survived"
		}
		return "❌ Perished"
	case "Fare":
		if n, ok := number(v); ok {
			return fmt.Sprintf("$%.2f", n)
		}
	case "Age":
		if n, ok := number(v); ok {
			return fmt.Sprintf("%d yrs", int64(n))
		}
	}
	return Stringify(v)
}

// number reports v as a float when it is numeric or a numeric string.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
