// FILE: lixenwraith/secureconfig/environment.go
package secureconfig

import (
	"os"
	"strings"
)

// resolveEnvironment returns explicit when set, otherwise the current
// environment: the override variable first (when configured), then the
// shared CurrentEnvironment key.
func (s *Settings) resolveEnvironment(doc *Document, explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}

	if s.envOverride != "" {
		if value, ok := os.LookupEnv(s.envOverride); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}

	if value, ok := doc.shared.Get(CurrentEnvironmentKey); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}

	return "", ErrMissingCurrentEnvironment
}

// environmentSection locates an environment's section in doc.
func environmentSection(doc *Document, environment string) (*Section, error) {
	return doc.findEnvironment(environment)
}

// lookupSharedKey reads key from the shared settings, ignoring environments.
func lookupSharedKey(doc *Document, key string) (string, error) {
	value, ok := doc.shared.Get(key)
	if !ok {
		return "", &LookupError{Kind: ErrKeyNotFound, Section: SharedSettingsSection, Key: key}
	}
	return value, nil
}

// lookupKey reads key from an environment's section under withUnprotected.
func (s *Settings) lookupKey(doc *Document, environment, key string) (string, error) {
	section, err := environmentSection(doc, environment)
	if err != nil {
		return "", err
	}

	var value string
	err = s.coord.withUnprotected(section, func(sec *Section) error {
		v, ok := sec.Get(key)
		if !ok {
			return &LookupError{Kind: ErrKeyNotFound, Section: sec.path, Key: key}
		}
		value = v
		return nil
	})
	return value, err
}

// environmentSettings copies the plaintext settings of an environment.
func (s *Settings) environmentSettings(doc *Document, environment string) (map[string]string, error) {
	section, err := environmentSection(doc, environment)
	if err != nil {
		return nil, err
	}

	var settings map[string]string
	err = s.coord.withUnprotected(section, func(sec *Section) error {
		settings = sec.Settings()
		return nil
	})
	return settings, err
}
