// FILE: lixenwraith/secureconfig/decode.go
package secureconfig

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes an environment's settings into target, which must be a
// non-nil pointer to a struct or map. Dotted keys ("db.host") map onto
// nested structs; fields are matched by their `toml` tag. An empty
// environment means the current one.
func (s *Settings) Scan(environment string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: scan target must be non-nil pointer, got %T", ErrInvalidArgument, target)
	}

	settings, err := s.SettingsForEnvironment(environment)
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "toml",
		WeaklyTypedInput: true,
		DecodeHook:       decodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(nestSettings(settings)); err != nil {
		return fmt.Errorf("decode failed for environment %q: %w", environment, err)
	}
	return nil
}

// decodeHook returns the composite decode hook for string settings
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToNetIPHookFunc(),
		stringToURLHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		stringToTimeHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// stringToNetIPHookFunc handles net.IP conversion
func stringToNetIPHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(net.IP{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 45 { // Max IPv6 length
			return nil, fmt.Errorf("invalid IP length: %d", len(str))
		}
		ip := net.ParseIP(str)
		if ip == nil {
			return nil, fmt.Errorf("invalid IP address: %s", str)
		}
		return ip, nil
	}
}

// stringToTimeHookFunc handles time.Time in any layout a stored timestamp uses
func stringToTimeHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Time{}) {
			return data, nil
		}

		str := data.(string)
		for _, layout := range []string{time.RFC3339Nano, localDatetimeLayout, time.DateOnly} {
			if ts, err := time.Parse(layout, str); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp: %s", str)
	}
}

// stringToURLHookFunc handles url.URL and *url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Ptr
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}
