// File: lixenwraith/secureconfig/convenience.go
package secureconfig

import (
	"fmt"
)

// Quick creates Settings over the file at path with the default machine
// provider. This is the recommended way to initialize for most applications.
func Quick(path string) (*Settings, error) {
	return NewBuilder().
		WithFile(path).
		WithValidator(RequireCurrentEnvironment()).
		Build()
}

// QuickDiscover locates the configuration file for appName using the default
// discovery options and creates Settings over it.
func QuickDiscover(appName string) (*Settings, error) {
	opts := DefaultDiscoveryOptions(appName)
	path, ok := DiscoverFile(opts)
	if !ok {
		return nil, fmt.Errorf("%w: no file named %q in search paths", ErrConfigNotFound, appName)
	}
	return Quick(path)
}

// MustQuick is like Quick but panics on error
func MustQuick(path string) *Settings {
	s, err := Quick(path)
	if err != nil {
		panic(fmt.Sprintf("secureconfig initialization failed: %v", err))
	}
	return s
}

// SectionStatus describes the protection state of one sensitive section.
type SectionStatus struct {
	Path      string `json:"path"`
	Protected bool   `json:"protected"`
	Provider  string `json:"provider,omitempty"`
	Entries   int    `json:"entries"` // plaintext entry count, 0 while protected
}

// Status reports the protection state of every sensitive section without
// opening any of them.
func (s *Settings) Status() ([]SectionStatus, error) {
	var status []SectionStatus
	err := s.view(func(doc *Document) error {
		for _, sec := range doc.SensitiveSections() {
			entry := SectionStatus{Path: sec.path, Protected: sec.protected, Provider: sec.provider}
			if !sec.protected {
				entry.Entries = len(sec.settings) + len(sec.connections)
			}
			status = append(status, entry)
		}
		return nil
	})
	return status, err
}

// SharedSettings returns a copy of the flat shared settings.
func (s *Settings) SharedSettings() (map[string]string, error) {
	var settings map[string]string
	err := s.view(func(doc *Document) error {
		settings = doc.shared.Settings()
		return nil
	})
	return settings, err
}

// ConnectionNames returns the registered connection string names. The
// connections section is reprotected before returning.
func (s *Settings) ConnectionNames() ([]string, error) {
	var names []string
	err := s.view(func(doc *Document) error {
		return s.coord.withUnprotected(doc.connections, func(sec *Section) error {
			names = sec.ConnectionNames()
			return nil
		})
	})
	return names, err
}
