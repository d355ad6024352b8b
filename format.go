// FILE: lixenwraith/secureconfig/format.go
package secureconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Supported file formats
const (
	FormatAuto = "auto"
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// fileLayout is the persisted shape of a Document. The same struct is used
// for decoding (through mapstructure) and for encoding in every format.
type fileLayout struct {
	AppSettings         map[string]any          `toml:"appSettings,omitempty" yaml:"appSettings,omitempty" json:"appSettings,omitempty" mapstructure:"appSettings"`
	ConnectionStrings   *fileConnections        `toml:"connectionStrings,omitempty" yaml:"connectionStrings,omitempty" json:"connectionStrings,omitempty" mapstructure:"connectionStrings"`
	EnvironmentSettings map[string]fileSettings `toml:"EnvironmentSettings,omitempty" yaml:"EnvironmentSettings,omitempty" json:"EnvironmentSettings,omitempty" mapstructure:"EnvironmentSettings"`
}

type fileSettings struct {
	ProtectionProvider string         `toml:"protectionProvider,omitempty" yaml:"protectionProvider,omitempty" json:"protectionProvider,omitempty" mapstructure:"protectionProvider"`
	CipherData         string         `toml:"cipherData,omitempty" yaml:"cipherData,omitempty" json:"cipherData,omitempty" mapstructure:"cipherData"`
	Settings           map[string]any `toml:"settings,omitempty" yaml:"settings,omitempty" json:"settings,omitempty" mapstructure:"settings"`
}

type fileConnections struct {
	ProtectionProvider string                    `toml:"protectionProvider,omitempty" yaml:"protectionProvider,omitempty" json:"protectionProvider,omitempty" mapstructure:"protectionProvider"`
	CipherData         string                    `toml:"cipherData,omitempty" yaml:"cipherData,omitempty" json:"cipherData,omitempty" mapstructure:"cipherData"`
	Entries            map[string]fileConnection `toml:"entries,omitempty" yaml:"entries,omitempty" json:"entries,omitempty" mapstructure:"entries"`
}

type fileConnection struct {
	ConnectionString string `toml:"connectionString" yaml:"connectionString" json:"connectionString" mapstructure:"connectionString"`
	ProviderName     string `toml:"providerName,omitempty" yaml:"providerName,omitempty" json:"providerName,omitempty" mapstructure:"providerName"`
}

// detectFileFormat determines the format from the file extension
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	return ""
}

// detectFormatFromContent guesses the format from the first significant line
func detectFormatFromContent(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "{"):
			return FormatJSON
		case strings.HasPrefix(line, "["), strings.Contains(line, "="):
			return FormatTOML
		case strings.Contains(line, ":"):
			return FormatYAML
		}
		return ""
	}
	return ""
}

// parseDocument decodes file content in the given format into a Document
func parseDocument(data []byte, format string) (*Document, error) {
	raw := make(map[string]any)
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case FormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // Preserve number text
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	var layout fileLayout
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &layout,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration layout: %w", err)
	}

	return layout.document()
}

// document converts the decoded layout into a Document
func (l *fileLayout) document() (*Document, error) {
	doc := NewDocument()

	shared, err := flattenSettings(l.AppSettings)
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", SharedSettingsSection, err)
	}
	doc.shared.settings = shared

	if c := l.ConnectionStrings; c != nil {
		if c.CipherData != "" {
			if len(c.Entries) > 0 {
				return nil, fmt.Errorf("section %q holds both cipher data and plaintext entries", ConnectionStringsSection)
			}
			if err := markProtected(doc.connections, c.ProtectionProvider, c.CipherData); err != nil {
				return nil, err
			}
		}
		for name, entry := range c.Entries {
			doc.connections.connections[name] = ConnectionString{
				Name:             name,
				ConnectionString: entry.ConnectionString,
				ProviderName:     entry.ProviderName,
			}
		}
	}

	for name, env := range l.EnvironmentSettings {
		section := doc.AddEnvironment(name)
		if env.CipherData != "" {
			if len(env.Settings) > 0 {
				return nil, fmt.Errorf("section %q holds both cipher data and plaintext entries", section.path)
			}
			if err := markProtected(section, env.ProtectionProvider, env.CipherData); err != nil {
				return nil, err
			}
			continue
		}
		settings, err := flattenSettings(env.Settings)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.path, err)
		}
		section.settings = settings
	}

	return doc, nil
}

func markProtected(s *Section, provider, cipherData string) error {
	if provider == "" {
		return fmt.Errorf("section %q is protected but names no protection provider", s.path)
	}
	s.protected = true
	s.provider = provider
	s.cipherData = cipherData
	s.settings, s.connections = nil, nil
	return nil
}

// flattenSettings turns nested tables into dotted keys and every leaf into its string form
func flattenSettings(nested map[string]any) (map[string]string, error) {
	values, err := flattenMap(nested, "")
	if err != nil {
		return nil, err
	}
	flat := make(map[string]string, len(values))
	for path, value := range values {
		str, err := stringify(value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", path, err)
		}
		flat[path] = str
	}
	return flat, nil
}

// renderDocument encodes a Document in the given format
func renderDocument(doc *Document, format string) ([]byte, error) {
	layout := fileLayout{
		AppSettings:         stringMapToAny(doc.shared.settings),
		EnvironmentSettings: make(map[string]fileSettings, len(doc.environments)),
	}

	c := doc.connections
	if c.protected || len(c.connections) > 0 {
		fc := &fileConnections{ProtectionProvider: c.provider, CipherData: c.cipherData}
		if !c.protected {
			fc.Entries = make(map[string]fileConnection, len(c.connections))
			for name, cs := range c.connections {
				fc.Entries[name] = fileConnection{ConnectionString: cs.ConnectionString, ProviderName: cs.ProviderName}
			}
		}
		layout.ConnectionStrings = fc
	}

	for name, s := range doc.environments {
		layout.EnvironmentSettings[name] = fileSettings{
			ProtectionProvider: s.provider,
			CipherData:         s.cipherData,
			Settings:           stringMapToAny(s.settings),
		}
	}

	var buf bytes.Buffer
	switch format {
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(layout); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to TOML: %w", err)
		}
	case FormatJSON:
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(layout); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to JSON: %w", err)
		}
	case FormatYAML:
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(layout); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal configuration to YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return buf.Bytes(), nil
}

func stringMapToAny(m map[string]string) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
