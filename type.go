// FILE: lixenwraith/secureconfig/type.go
package secureconfig

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// stringify renders a decoded file value as the string stored in a section.
// Attempts conversion from common scalar types; tables must already be flattened.
func stringify(val any) (string, error) {
	if val == nil {
		return "", nil
	}

	switch v := val.(type) {
	case string:
		return v, nil
	case time.Time:
		return formatTime(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	}

	return "", fmt.Errorf("cannot convert type %T to a setting value", val)
}

// Layouts for timestamps written without an offset. The TOML decoder marks
// local values with these zone names.
const (
	localDatetimeLayout = "2006-01-02T15:04:05.999999999"
	localTimeLayout     = "15:04:05.999999999"
)

// formatTime renders a decoded timestamp the way it is written in a file.
// Midnight UTC, which is how YAML decodes a bare date, renders date-only.
func formatTime(t time.Time) string {
	switch t.Location().String() {
	case "date-local":
		return t.Format(time.DateOnly)
	case "time-local":
		return t.Format(localTimeLayout)
	case "datetime-local":
		return t.Format(localDatetimeLayout)
	}
	if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

// String is KeyByEnvironment under the name used by the other typed getters.
func (s *Settings) String(key, environment string) (string, error) {
	return s.KeyByEnvironment(key, environment)
}

// Int64 retrieves a setting and parses it as an int64.
// Accepts base prefixes ("0x1F") and truncates float text.
func (s *Settings) Int64(key, environment string) (int64, error) {
	raw, err := s.KeyByEnvironment(key, environment)
	if err != nil {
		return 0, err
	}
	str := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(str, 0, 64); err == nil {
		return i, nil
	} else if f, ferr := strconv.ParseFloat(str, 64); ferr == nil {
		return int64(f), nil
	} else {
		return 0, fmt.Errorf("cannot convert %q to int64 for key %s: %w", raw, key, err)
	}
}

// Bool retrieves a setting and parses it as a bool.
func (s *Settings) Bool(key, environment string) (bool, error) {
	raw, err := s.KeyByEnvironment(key, environment)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("cannot convert %q to bool for key %s: %w", raw, key, err)
	}
	return b, nil
}

// Float64 retrieves a setting and parses it as a float64.
func (s *Settings) Float64(key, environment string) (float64, error) {
	raw, err := s.KeyByEnvironment(key, environment)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to float64 for key %s: %w", raw, key, err)
	}
	return f, nil
}

// Duration retrieves a setting and parses it with time.ParseDuration.
func (s *Settings) Duration(key, environment string) (time.Duration, error) {
	raw, err := s.KeyByEnvironment(key, environment)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to duration for key %s: %w", raw, key, err)
	}
	return d, nil
}
