// FILE: lixenwraith/secureconfig/helper.go
package secureconfig

import (
	"fmt"
	"strings"
)

// flattenMap converts a nested map[string]any to a flat map[string]any with dot-notation keys.
// Nested tables inside a settings section therefore surface as "db.host" style keys.
// A literal dotted key that collides with a nested path is an error.
func flattenMap(nested map[string]any, prefix string) (map[string]any, error) {
	flat := make(map[string]any)
	if err := flattenInto(flat, nested, prefix); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenInto(flat map[string]any, nested map[string]any, prefix string) error {
	for key, value := range nested {
		newPath := key
		if prefix != "" {
			newPath = prefix + "." + key
		}

		if nestedMap, isMap := value.(map[string]any); isMap {
			if err := flattenInto(flat, nestedMap, newPath); err != nil {
				return err
			}
			continue
		}
		if _, exists := flat[newPath]; exists {
			return fmt.Errorf("conflicting definitions for key %q", newPath)
		}
		flat[newPath] = value
	}
	return nil
}

// setNestedValue sets a value in a nested map using a dot-notation key.
// Intermediate maps are created as needed; a leaf in the way is replaced by a map.
func setNestedValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested

	for _, segment := range segments[:len(segments)-1] {
		next, isMap := current[segment].(map[string]any)
		if !isMap {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}

	current[segments[len(segments)-1]] = value
}

// nestSettings expands dotted setting keys back into a nested map for decoding.
func nestSettings(settings map[string]string) map[string]any {
	nested := make(map[string]any, len(settings))
	for key, value := range settings {
		setNestedValue(nested, key, value)
	}
	return nested
}
