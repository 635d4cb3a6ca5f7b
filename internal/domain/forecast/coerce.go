package forecast

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Coerce validates raw decoded JSON values and converts them into a
// FeatureVector. The count is checked before any element is inspected.
// Accepted element shapes are JSON numbers, numeric strings and booleans.
func Coerce(values []any) (FeatureVector, error) {
	const op = "forecast.coerce"
	var v FeatureVector
	if len(values) != FeatureCount {
		return v, NewError(op, KindInvalidFeatureCount,
			fmt.Sprintf("Expected %d features, got %d", FeatureCount, len(values)))
	}
	for i, raw := range values {
		f, err := toFloat(raw)
		if err != nil {
			return v, WrapError(op, KindInvalidFeatureType,
				fmt.Sprintf("Invalid feature values: feature %d", i), err)
		}
		v[i] = f
	}
	return v, nil
}

func toFloat(raw any) (float64, error) {
	switch x := raw.(type) {
	case json.Number:
		return strconv.ParseFloat(x.String(), 64)
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", x)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("null is not a number")
	default:
		return 0, fmt.Errorf("cannot convert %T to float", raw)
	}
}
