// FILE: lixenwraith/secureconfig/document.go
package secureconfig

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Well-known section and key names of the persisted layout.
const (
	EnvironmentGroup         = "EnvironmentSettings"
	SharedSettingsSection    = "appSettings"
	ConnectionStringsSection = "connectionStrings"
	CurrentEnvironmentKey    = "CurrentEnvironment"
)

// ConnectionString is one entry of the connection-strings section.
type ConnectionString struct {
	Name             string `cbor:"name" json:"name"`
	ConnectionString string `cbor:"connectionString" json:"connectionString"`
	ProviderName     string `cbor:"providerName,omitempty" json:"providerName,omitempty"`
}

type sectionKind int

const (
	kindSettings sectionKind = iota
	kindConnections
)

// Section is an independently protectable region of the document. While
// protected its entries are held only as sealed cipher data.
type Section struct {
	path       string
	kind       sectionKind
	protected  bool
	provider   string
	cipherData string

	settings    map[string]string
	connections map[string]ConnectionString
}

// sectionPayload is the plaintext that a provider seals.
type sectionPayload struct {
	Settings    map[string]string           `cbor:"1,keyasint,omitempty"`
	Connections map[string]ConnectionString `cbor:"2,keyasint,omitempty"`
}

// Deterministic encoding so sealing the same entries yields the same plaintext.
var payloadEncoding = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("secureconfig: cbor encoding mode: %v", err))
	}
	return em
}()

func newSettingsSection(path string) *Section {
	return &Section{path: path, kind: kindSettings, settings: make(map[string]string)}
}

func newConnectionsSection() *Section {
	return &Section{path: ConnectionStringsSection, kind: kindConnections, connections: make(map[string]ConnectionString)}
}

// Path returns the qualified section path, e.g. "EnvironmentSettings/QA".
func (s *Section) Path() string { return s.path }

// Name returns the last segment of the section path.
func (s *Section) Name() string {
	if i := strings.LastIndexByte(s.path, '/'); i >= 0 {
		return s.path[i+1:]
	}
	return s.path
}

// IsProtected reports whether the section content is currently sealed.
func (s *Section) IsProtected() bool { return s.protected }

// ProviderName returns the name of the provider that sealed the section,
// or "" when unprotected.
func (s *Section) ProviderName() string { return s.provider }

// Get returns the setting stored under key. A protected section never
// reports a value.
func (s *Section) Get(key string) (string, bool) {
	if s.protected {
		return "", false
	}
	v, ok := s.settings[key]
	return v, ok
}

// Set overwrites or inserts a setting. It reports whether the key was new.
func (s *Section) Set(key, value string) (bool, error) {
	if err := s.writable(kindSettings); err != nil {
		return false, err
	}
	_, exists := s.settings[key]
	s.settings[key] = value
	return !exists, nil
}

// Keys returns the setting keys in sorted order.
func (s *Section) Keys() []string {
	return slices.Sorted(maps.Keys(s.settings))
}

// Settings returns a copy of the section's settings.
func (s *Section) Settings() map[string]string {
	return maps.Clone(s.settings)
}

// Connection returns the connection string registered under name.
func (s *Section) Connection(name string) (ConnectionString, bool) {
	if s.protected {
		return ConnectionString{}, false
	}
	cs, ok := s.connections[name]
	return cs, ok
}

// SetConnection overwrites or inserts a connection string keyed by its name.
func (s *Section) SetConnection(cs ConnectionString) error {
	if cs.Name == "" {
		return invalidArgument("connection string name")
	}
	if err := s.writable(kindConnections); err != nil {
		return err
	}
	s.connections[cs.Name] = cs
	return nil
}

// ConnectionNames returns the connection string names in sorted order.
func (s *Section) ConnectionNames() []string {
	return slices.Sorted(maps.Keys(s.connections))
}

func (s *Section) writable(kind sectionKind) error {
	if s.kind != kind {
		return fmt.Errorf("%w: section %q does not hold this entry type", ErrInvalidArgument, s.path)
	}
	if s.protected {
		return fmt.Errorf("%w: section %q is protected", ErrProtection, s.path)
	}
	return nil
}

// seal replaces the plaintext entries with cipher data produced by p.
func (s *Section) seal(p Provider) error {
	if s.protected {
		return nil
	}
	plaintext, err := payloadEncoding.Marshal(sectionPayload{Settings: s.settings, Connections: s.connections})
	if err != nil {
		return fmt.Errorf("failed to encode section payload: %w", err)
	}
	cipherData, err := p.Seal(s.path, plaintext)
	if err != nil {
		return err
	}
	s.cipherData = cipherData
	s.provider = p.Name()
	s.protected = true
	s.settings, s.connections = nil, nil
	return nil
}

// open restores the plaintext entries from cipher data using p.
func (s *Section) open(p Provider) error {
	if !s.protected {
		return nil
	}
	plaintext, err := p.Open(s.path, s.cipherData)
	if err != nil {
		return err
	}
	var payload sectionPayload
	if err := cbor.Unmarshal(plaintext, &payload); err != nil {
		return fmt.Errorf("failed to decode section payload: %w", err)
	}
	s.settings = payload.Settings
	s.connections = payload.Connections
	if s.settings == nil && s.kind == kindSettings {
		s.settings = make(map[string]string)
	}
	if s.connections == nil && s.kind == kindConnections {
		s.connections = make(map[string]ConnectionString)
	}
	s.cipherData, s.provider = "", ""
	s.protected = false
	return nil
}

func (s *Section) clone() *Section {
	c := *s
	c.settings = maps.Clone(s.settings)
	c.connections = maps.Clone(s.connections)
	return &c
}

// Document is the in-memory materialization of the whole configuration
// source for a single operation.
type Document struct {
	shared       *Section
	environments map[string]*Section
	connections  *Section
}

// NewDocument returns an empty document with no environments.
func NewDocument() *Document {
	return &Document{
		shared:       newSettingsSection(SharedSettingsSection),
		environments: make(map[string]*Section),
		connections:  newConnectionsSection(),
	}
}

// SectionPathFor returns the qualified path of an environment's section.
func SectionPathFor(environment string) string {
	return EnvironmentGroup + "/" + environment
}

// Shared returns the flat shared-settings section. It is never protected.
func (d *Document) Shared() *Section { return d.shared }

// ConnectionStrings returns the connection-strings section.
func (d *Document) ConnectionStrings() *Section { return d.connections }

// AddEnvironment returns the environment's section, creating an empty one
// when it does not exist yet.
func (d *Document) AddEnvironment(name string) *Section {
	if s, ok := d.environments[name]; ok {
		return s
	}
	s := newSettingsSection(SectionPathFor(name))
	d.environments[name] = s
	return s
}

// Environment finds an environment section by exact name, then by
// case-insensitive name. A name that only matches several environments
// case-insensitively finds none.
func (d *Document) Environment(name string) (*Section, bool) {
	s, err := d.findEnvironment(name)
	return s, err == nil
}

func (d *Document) findEnvironment(name string) (*Section, error) {
	if s, ok := d.environments[name]; ok {
		return s, nil
	}
	var matches []string
	for envName := range d.environments {
		if strings.EqualFold(envName, name) {
			matches = append(matches, envName)
		}
	}
	switch len(matches) {
	case 0:
		return nil, &LookupError{Kind: ErrEnvironmentNotFound, Section: SectionPathFor(name)}
	case 1:
		return d.environments[matches[0]], nil
	}
	slices.Sort(matches)
	return nil, &AmbiguousEnvironmentError{Name: name, Matches: matches}
}

// EnvironmentNames returns the environment names in sorted order.
func (d *Document) EnvironmentNames() []string {
	return slices.Sorted(maps.Keys(d.environments))
}

// SensitiveSections lists every section covered by the protection sweep:
// the connection strings first, then each environment. A connection-strings
// section with no entries is not listed.
func (d *Document) SensitiveSections() []*Section {
	sections := make([]*Section, 0, len(d.environments)+1)
	if d.connections.protected || len(d.connections.connections) > 0 {
		sections = append(sections, d.connections)
	}
	for _, name := range d.EnvironmentNames() {
		sections = append(sections, d.environments[name])
	}
	return sections
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{
		shared:       d.shared.clone(),
		environments: make(map[string]*Section, len(d.environments)),
		connections:  d.connections.clone(),
	}
	for name, s := range d.environments {
		c.environments[name] = s.clone()
	}
	return c
}
