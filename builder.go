// FILE: lixenwraith/secureconfig/builder.go
package secureconfig

import (
	"errors"
	"fmt"
	"log/slog"
)

// ValidatorFunc checks a freshly built Settings instance.
type ValidatorFunc func(s *Settings) error

// Builder provides a fluent interface for building Settings
type Builder struct {
	store      Store
	file       string
	format     string
	opts       Options
	validators []ValidatorFunc
	err        error
}

// NewBuilder creates a new Settings builder
func NewBuilder() *Builder {
	return &Builder{
		format:     FormatAuto,
		validators: make([]ValidatorFunc, 0),
	}
}

// WithFile sets the configuration file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithFormat forces the configuration file format ("toml", "yaml", "json")
func (b *Builder) WithFormat(format string) *Builder {
	switch format {
	case "", FormatAuto, FormatTOML, FormatYAML, FormatJSON:
		b.format = format
	default:
		b.err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return b
}

// WithStore uses a custom store instead of a file
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

// WithProvider sets the provider used to protect sections
func (b *Builder) WithProvider(p Provider) *Builder {
	b.opts.Provider = p
	return b
}

// WithProviders adds providers able to open sections sealed by them
func (b *Builder) WithProviders(providers ...Provider) *Builder {
	b.opts.Providers = append(b.opts.Providers, providers...)
	return b
}

// WithEnvOverride names an environment variable that overrides CurrentEnvironment
func (b *Builder) WithEnvOverride(name string) *Builder {
	b.opts.EnvOverride = name
	return b
}

// WithLogger sets the logger for protection and save events
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.opts.Logger = logger
	return b
}

// WithValidator adds a validation function that runs at the end of the build process.
// Validators run in the order they are added.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Settings instance with all specified options.
// Without an explicit provider, sections are protected by a MachineProvider
// keyed from the OS keyring of the current user.
func (b *Builder) Build() (*Settings, error) {
	if b.err != nil {
		return nil, b.err
	}

	store := b.store
	if store == nil {
		if b.file == "" {
			return nil, fmt.Errorf("%w: no configuration file or store given", ErrInvalidArgument)
		}
		store = NewFileStore(b.file).WithFormat(b.format)
	}

	opts := b.opts
	if opts.Provider == nil {
		opts.Provider = NewMachineProvider(NewKeyringKeySource(DefaultKeyringService, ""))
	}

	s := NewWithOptions(store, opts)

	for _, validator := range b.validators {
		if err := validator(s); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return s, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Settings {
	s, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("secureconfig build failed: %v", err))
	}
	return s
}

// RequireEnvironments is a validator that fails unless every named
// environment exists in the configuration source.
func RequireEnvironments(names ...string) ValidatorFunc {
	return func(s *Settings) error {
		var missing []error
		err := s.view(func(doc *Document) error {
			for _, name := range names {
				if _, ok := doc.Environment(name); !ok {
					missing = append(missing, &LookupError{Kind: ErrEnvironmentNotFound, Section: SectionPathFor(name)})
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return errors.Join(missing...)
	}
}

// RequireCurrentEnvironment is a validator that fails unless the current
// environment resolves to an existing environment section.
func RequireCurrentEnvironment() ValidatorFunc {
	return func(s *Settings) error {
		return s.view(func(doc *Document) error {
			env, err := s.resolveEnvironment(doc, "")
			if err != nil {
				return err
			}
			_, err = environmentSection(doc, env)
			return err
		})
	}
}
