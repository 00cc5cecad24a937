// Package jsonutil decodes loosely typed JSON values sent by browser clients.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling clients that send
// numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleStringMap decodes an object whose values should be strings, applying
// FlexibleStringValue to each value. Null values are dropped.
func FlexibleStringMap(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]string{}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("expected an object: %w", err)
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s := FlexibleStringValue(v); s != "" {
			out[k] = s
		}
	}
	return out, nil
}

// FlexibleIndex decodes a list index sent as a number, a numeric string or the word
// "last". "last" and any negative value return last. Null/empty returns 0.
func FlexibleIndex(raw json.RawMessage, last int) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return indexFromFloat(numVal, last)
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return 0, fmt.Errorf("index must be a number or string, got %s", string(raw))
	}
	strVal = strings.TrimSpace(strVal)
	if strings.EqualFold(strVal, "last") {
		return last, nil
	}
	numVal, err := strconv.ParseFloat(strVal, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", strVal)
	}
	return indexFromFloat(numVal, last)
}

func indexFromFloat(f float64, last int) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("index must be a whole number, got %v", f)
	}
	if f < 0 {
		return last, nil
	}
	if f > math.MaxInt32 {
		return 0, fmt.Errorf("index %v out of range", f)
	}
	return int(f), nil
}
