package env

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

const redacted = "********"

// MarshalEnv renders the env-tagged fields of the given struct pointers as
// KEY=value lines, sorted by key. Values of keys that look like credentials
// are redacted. Zero values are kept so the output shows effective settings.
func MarshalEnv(configs ...any) (string, error) {
	var lines []string

	for _, c := range configs {
		v := reflect.ValueOf(c)
		if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
			return "", fmt.Errorf("marshal env: expected pointer to struct, got %T", c)
		}
		lines = appendFields(lines, v.Elem())
	}

	sort.Strings(lines)
	result := strings.Join(lines, "\n")
	if result != "" {
		result += "\n"
	}
	return result, nil
}

func appendFields(lines []string, v reflect.Value) []string {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		val := v.Field(i)
		tag := field.Tag.Get("env")
		if tag == "" {
			if val.Kind() == reflect.Struct {
				lines = appendFields(lines, val)
			}
			continue
		}

		key := strings.Split(tag, ",")[0]
		if key == "" {
			continue
		}

		strVal := formatValue(val)
		if isSecret(key) && strVal != "" {
			strVal = redacted
		}
		lines = append(lines, fmt.Sprintf("%s=%s", key, quote(strVal)))
	}
	return lines
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, "_API_KEY") || strings.HasSuffix(key, "_TOKEN")
}

// quote keeps multi-line and padded values on one line.
func quote(s string) string {
	if strings.ContainsAny(s, "\n\t\"") || strings.TrimSpace(s) != s {
		return strconv.Quote(s)
	}
	return s
}

// formatValue converts a reflect.Value to its string representation
func formatValue(v reflect.Value) string {
	if d, ok := v.Interface().(time.Duration); ok {
		return d.String()
	}
	if m, ok := v.Interface().(encoding.TextMarshaler); ok {
		if text, err := m.MarshalText(); err == nil {
			return string(text)
		}
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatValue(v.Index(i))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}
