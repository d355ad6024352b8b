// FILE: lixenwraith/secureconfig/settings.go
package secureconfig

import (
	"errors"
	"log/slog"
	"sync"
)

// Options configures a Settings instance.
type Options struct {
	// Provider protects sections. Required for Encrypt and UpdateSetting.
	Provider Provider

	// Providers are additional providers that may open sections sealed
	// earlier with a different provider. Protection always uses Provider.
	Providers []Provider

	// EnvOverride names a process environment variable that, when set,
	// takes precedence over the CurrentEnvironment shared key.
	EnvOverride string

	// Logger receives debug records for protection transitions and saves.
	// Values are never logged. Nil discards.
	Logger *slog.Logger
}

// Settings is the accessor context bound to one configuration source.
//
// Every call opens a fresh snapshot from the store, so no configuration
// state is cached between calls. Calls through one Settings are
// serialized; separate instances or processes sharing a source are not
// coordinated and the last save wins.
type Settings struct {
	mu          sync.Mutex
	store       Store
	coord       *coordinator
	envOverride string
	logger      *slog.Logger
}

// New creates Settings over store, protecting with provider.
func New(store Store, provider Provider) *Settings {
	return NewWithOptions(store, Options{Provider: provider})
}

// NewWithOptions creates Settings over store with custom options.
func NewWithOptions(store Store, opts Options) *Settings {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registry := NewProviderRegistry(opts.Provider)
	for _, p := range opts.Providers {
		registry.Register(p)
	}

	return &Settings{
		store:       store,
		coord:       &coordinator{providers: registry, logger: logger},
		envOverride: opts.EnvOverride,
		logger:      logger,
	}
}

// Providers returns the registry resolving provider names.
func (s *Settings) Providers() *ProviderRegistry {
	return s.coord.providers
}

// view opens a snapshot and passes it to fn. Nothing is saved.
func (s *Settings) view(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Open()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *Settings) save(doc *Document) error {
	if err := s.store.Save(doc); err != nil {
		s.logger.Warn("configuration save failed", "error", err)
		return err
	}
	s.logger.Debug("configuration saved")
	return nil
}

// Encrypt protects the connection strings and every environment section,
// then saves. Already protected sections are left untouched.
func (s *Settings) Encrypt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(true)
}

// Decrypt unprotects the connection strings and every environment section,
// then saves.
func (s *Settings) Decrypt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(false)
}

// sweepLocked runs a best-effort sweep and saves whatever transitioned.
func (s *Settings) sweepLocked(protect bool) error {
	doc, err := s.store.Open()
	if err != nil {
		return err
	}

	changed, sweepErr := s.coord.sweep(doc, protect)
	if !changed {
		return sweepErr
	}
	return errors.Join(sweepErr, s.save(doc))
}

// IsEncrypted reports whether every sensitive section is protected. It only
// reads the store.
func (s *Settings) IsEncrypted() (bool, error) {
	var protected bool
	err := s.view(func(doc *Document) error {
		protected = fullyProtected(doc)
		return nil
	})
	return protected, err
}

// CurrentEnvironment returns the environment selected as current.
func (s *Settings) CurrentEnvironment() (string, error) {
	var env string
	err := s.view(func(doc *Document) (err error) {
		env, err = s.resolveEnvironment(doc, "")
		return err
	})
	return env, err
}

// Environments returns the names of all environment sections.
func (s *Settings) Environments() ([]string, error) {
	var names []string
	err := s.view(func(doc *Document) error {
		names = doc.EnvironmentNames()
		return nil
	})
	return names, err
}

// SettingsForCurrentEnvironment returns a copy of the current environment's settings.
func (s *Settings) SettingsForCurrentEnvironment() (map[string]string, error) {
	return s.SettingsForEnvironment("")
}

// SettingsForEnvironment returns a copy of an environment's settings. An
// empty environment means the current one.
func (s *Settings) SettingsForEnvironment(environment string) (map[string]string, error) {
	var settings map[string]string
	err := s.view(func(doc *Document) error {
		env, err := s.resolveEnvironment(doc, environment)
		if err != nil {
			return err
		}
		settings, err = s.environmentSettings(doc, env)
		return err
	})
	if settings == nil && err == nil {
		settings = make(map[string]string)
	}
	return settings, err
}

// SharedKey returns a key from the shared settings, regardless of the
// current environment.
func (s *Settings) SharedKey(key string) (string, error) {
	if key == "" {
		return "", invalidArgument("key")
	}
	var value string
	err := s.view(func(doc *Document) (err error) {
		value, err = lookupSharedKey(doc, key)
		return err
	})
	return value, err
}

// KeyByEnvironment returns a key from an environment's section. An empty
// environment means the current one.
func (s *Settings) KeyByEnvironment(key, environment string) (string, error) {
	if key == "" {
		return "", invalidArgument("key")
	}
	var value string
	err := s.view(func(doc *Document) error {
		env, err := s.resolveEnvironment(doc, environment)
		if err != nil {
			return err
		}
		value, err = s.lookupKey(doc, env, key)
		return err
	})
	return value, err
}

// ConnectionString returns the connection string registered under name.
func (s *Settings) ConnectionString(name string) (string, error) {
	if name == "" {
		return "", invalidArgument("name")
	}
	var value string
	err := s.view(func(doc *Document) error {
		cs, err := s.lookupConnection(doc, name)
		value = cs.ConnectionString
		return err
	})
	return value, err
}

// ConnectionStringByEnvironment resolves name in two hops: the environment
// section maps name to a connection string identifier, which is then looked
// up in the connection strings section. An empty environment means the
// current one.
func (s *Settings) ConnectionStringByEnvironment(name, environment string) (ConnectionString, error) {
	if name == "" {
		return ConnectionString{}, invalidArgument("name")
	}
	var cs ConnectionString
	err := s.view(func(doc *Document) error {
		env, err := s.resolveEnvironment(doc, environment)
		if err != nil {
			return err
		}
		id, err := s.lookupKey(doc, env, name)
		if err != nil {
			return err
		}
		cs, err = s.lookupConnection(doc, id)
		return err
	})
	return cs, err
}

func (s *Settings) lookupConnection(doc *Document, name string) (ConnectionString, error) {
	var cs ConnectionString
	err := s.coord.withUnprotected(doc.connections, func(sec *Section) error {
		entry, ok := sec.Connection(name)
		if !ok {
			return &LookupError{Kind: ErrConnectionStringNotFound, Section: ConnectionStringsSection, Key: name}
		}
		cs = entry
		return nil
	})
	return cs, err
}

// UpdateSetting overwrites or inserts key in an environment's section and
// saves. An empty environment means the current one. A final Encrypt sweep
// always runs afterwards, even when the write failed, so no section is left
// unprotected.
func (s *Settings) UpdateSetting(key, value, environment string) error {
	if key == "" {
		return invalidArgument("key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writeErr := s.writeSettingLocked(key, value, environment)
	if writeErr != nil {
		s.logger.Warn("setting update failed", "key", key, "environment", environment, "error", writeErr)
	}
	return errors.Join(writeErr, s.sweepLocked(true))
}

func (s *Settings) writeSettingLocked(key, value, environment string) error {
	doc, err := s.store.Open()
	if err != nil {
		return err
	}
	env, err := s.resolveEnvironment(doc, environment)
	if err != nil {
		return err
	}
	section, err := environmentSection(doc, env)
	if err != nil {
		return err
	}

	err = s.coord.withUnprotected(section, func(sec *Section) error {
		inserted, err := sec.Set(key, value)
		if err == nil {
			s.logger.Debug("setting written", "section", sec.path, "key", key, "inserted", inserted)
		}
		return err
	})
	if err != nil {
		return err
	}
	return s.save(doc)
}
