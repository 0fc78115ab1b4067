// Package engine evaluates stored decision rules against claim records and
// produces explainable match results.
package engine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/opensource-gov/banyan/internal/domain"
)

// Evaluate applies a single condition to a record. Pure function: missing
// fields, coercion failures, and unknown operators all evaluate to false
// rather than erroring.
func Evaluate(c domain.Condition, record domain.Record) bool {
	v, ok := record[c.Field]
	if !ok || v == nil {
		// Missing data never satisfies a condition, whatever the operator.
		return false
	}

	switch c.Operator {
	case domain.OpEquals:
		return valueEquals(v, c.Value)

	case domain.OpNotEquals:
		return !valueEquals(v, c.Value)

	case domain.OpGreaterThan:
		a, aok := toNumber(v)
		b, bok := toNumber(c.Value)
		return aok && bok && a > b

	case domain.OpLessThan:
		a, aok := toNumber(v)
		b, bok := toNumber(c.Value)
		return aok && bok && a < b

	case domain.OpContains:
		return strings.Contains(lowerString(v), lowerString(c.Value))

	case domain.OpNotContains:
		return !strings.Contains(lowerString(v), lowerString(c.Value))

	case domain.OpIn:
		list, ok := asList(c.Value)
		if !ok {
			return false
		}
		return member(v, list)

	case domain.OpNotIn:
		list, ok := asList(c.Value)
		if !ok {
			return false
		}
		return !member(v, list)

	default:
		// Unknown operator: fail closed.
		return false
	}
}

// Describe renders a condition for evaluation traces, e.g.
// "area_hectares greater_than 5".
func Describe(c domain.Condition) string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, formatValue(c.Value))
}

// valueEquals implements type-sensitive equality: numeric kinds compare as
// numbers, but a numeric never equals a string or bool ("5" != 5).
func valueEquals(a, b any) bool {
	if an, aok := numeric(a); aok {
		bn, bok := numeric(b)
		return bok && an == bn
	}
	if _, bok := numeric(b); bok {
		return false
	}

	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && av == bs
	case bool:
		bb, ok := b.(bool)
		return ok && av == bb
	default:
		return reflect.DeepEqual(a, b)
	}
}

// numeric reports whether v is a numeric type and returns it as float64.
// Strings and bools are not numeric here; coercion belongs to toNumber.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toNumber coerces v to a float64 for ordered comparisons. Numeric strings
// parse; anything else fails the coercion and the comparison is false.
func toNumber(v any) (float64, bool) {
	if n, ok := numeric(v); ok {
		return n, !math.IsNaN(n)
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func lowerString(v any) string {
	return strings.ToLower(stringify(v))
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// asList returns the elements of v if it is a slice or array.
func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func member(v any, list []any) bool {
	for _, item := range list {
		if valueEquals(v, item) {
			return true
		}
	}
	return false
}

// formatValue renders a condition value without trailing decimal noise, so a
// stored JSON number 5 prints as "5" rather than "5.000000".
func formatValue(v any) string {
	if n, ok := numeric(v); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	if s, ok := v.(string); ok {
		return s
	}
	if list, ok := asList(v); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}
