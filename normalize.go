package transmission

import (
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Mapper is implemented by option structures that can be sent as RPC
// arguments. Any Mapper found inside an argument tree is converted with
// ToMap before sanitization.
type Mapper interface {
	ToMap() map[string]any
}

// Args is a free-form argument mapping for RPC calls.
type Args map[string]any

// ToMap implements Mapper.
func (a Args) ToMap() map[string]any {
	return a
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// SanitizeArguments prepares an argument tree for the daemon: empty values
// are removed (numeric zero and false are kept), numeric-looking strings
// become numbers, booleans become 0 or 1 and strings are forced to UTF-8.
// It returns nil when nothing is left to send.
func SanitizeArguments(args map[string]any) map[string]any {
	if len(args) == 0 {
		return nil
	}

	out := make(map[string]any, len(args))
	for key, value := range args {
		if clean, ok := sanitizeValue(value); ok {
			out[key] = clean
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// sanitizeValue reports false when the value must be dropped.
func sanitizeValue(value any) (any, bool) {
	if value == nil {
		return nil, false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return nil, false
		}
	}

	switch v := value.(type) {
	case Mapper:
		return sanitizeValue(v.ToMap())
	case map[string]any:
		m := SanitizeArguments(v)
		return m, m != nil
	case []any:
		return sanitizeSequence(v)
	case []byte:
		return v, len(v) > 0
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		return sanitizeString(v)
	}

	switch rv.Kind() {
	case reflect.Pointer:
		return sanitizeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return sanitizeSequence(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value, rv.Len() > 0
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		clean := SanitizeArguments(m)
		return clean, clean != nil
	case reflect.Bool:
		return sanitizeValue(rv.Bool())
	case reflect.String:
		return sanitizeString(rv.String())
	}

	return value, true
}

func sanitizeSequence(items []any) (any, bool) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		if clean, ok := sanitizeValue(item); ok {
			out = append(out, clean)
		}
	}
	return out, len(out) > 0
}

func sanitizeString(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	if n, ok := parseNumeric(s); ok {
		return n, true
	}
	return toUTF8(s), true
}

func parseNumeric(s string) (any, bool) {
	if !numericPattern.MatchString(s) {
		return nil, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// toUTF8 reads invalid UTF-8 input as ISO-8859-1.
func toUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	runes := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		runes[i] = rune(s[i])
	}
	return string(runes)
}

// NormalizeResult reshapes a decoded result tree. Hyphens in keys are
// replaced with underscores and empty values are pruned. The daemon encodes
// some arrays as objects keyed "0", "1", ...; any object whose keys are all
// decimal digit strings is therefore returned as a []any ordered by key.
// This rule is specific to the Transmission protocol.
func NormalizeResult(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return normalizeMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeResult(item)
		}
		return out
	default:
		return value
	}
}

func normalizeMap(m map[string]any) any {
	out := make(map[string]any, len(m))
	indexed := len(m) > 0

	for key, value := range m {
		value = NormalizeResult(value)
		key = strings.ReplaceAll(key, "-", "_")
		if !isDigits(key) {
			indexed = false
		}
		if isEmpty(value) {
			continue
		}
		out[key] = value
	}

	if !indexed {
		return out
	}

	keys := make([]string, 0, len(out))
	for key := range out {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessDigits(keys[i], keys[j])
	})

	list := make([]any, 0, len(keys))
	for _, key := range keys {
		list = append(list, out[key])
	}
	return list
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// lessDigits compares two digit strings by numeric value without parsing,
// so indexes beyond int64 still order correctly.
func lessDigits(a, b string) bool {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
