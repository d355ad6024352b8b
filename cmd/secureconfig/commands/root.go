// FILE: cmd/secureconfig/commands/root.go
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lixenwraith/secureconfig"
	"github.com/spf13/cobra"
)

// Provider selection values for --provider.
const (
	providerMachine = "machine"
	providerAge     = "age"
)

// Options holds the global flags shared by every command.
type Options struct {
	ConfigFile  string
	Format      string
	Provider    string
	Service     string
	Account     string
	EnvOverride string
	Debug       bool
}

// Open builds Settings over the configured file. The selected provider
// protects; the machine provider is always registered so sections sealed by
// it can still be opened.
func (o *Options) Open(logOut io.Writer) (*secureconfig.Settings, error) {
	if o.ConfigFile == "" {
		return nil, fmt.Errorf("no configuration file: use --config <path>")
	}

	machine := secureconfig.NewMachineProvider(secureconfig.NewKeyringKeySource(o.Service, o.Account))

	b := secureconfig.NewBuilder().
		WithFile(o.ConfigFile).
		WithFormat(o.Format).
		WithEnvOverride(o.EnvOverride).
		WithLogger(o.logger(logOut))

	switch o.Provider {
	case "", providerMachine:
		b.WithProvider(machine)
	case providerAge:
		identity, err := secureconfig.KeyringAgeIdentity(o.Service, o.Account)
		if err != nil {
			return nil, err
		}
		b.WithProvider(secureconfig.NewAgeProvider(identity)).WithProviders(machine)
	default:
		return nil, fmt.Errorf("unknown provider %q: use %q or %q", o.Provider, providerMachine, providerAge)
	}

	return b.Build()
}

func (o *Options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRootCommand assembles the secureconfig command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "secureconfig",
		Short: "Environment-aware configuration with encrypted sections",
		Long: `secureconfig reads and updates a configuration file whose connection
strings and per-environment settings are encrypted at rest.

Shared settings in appSettings stay in plaintext. The CurrentEnvironment
key selects which EnvironmentSettings section lookups resolve against.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file path")
	flags.StringVar(&opts.Format, "format", secureconfig.FormatAuto, "File format: auto, toml, yaml, json")
	flags.StringVar(&opts.Provider, "provider", providerMachine, "Protection provider: machine or age")
	flags.StringVar(&opts.Service, "keyring-service", secureconfig.DefaultKeyringService, "OS keyring service holding the key")
	flags.StringVar(&opts.Account, "keyring-account", "", "OS keyring account (default: current user)")
	flags.StringVar(&opts.EnvOverride, "env-var", "", "Environment variable overriding CurrentEnvironment")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		NewEncryptCommand(opts),
		NewDecryptCommand(opts),
		NewStatusCommand(opts),
		NewEnvCommand(opts),
		NewGetCommand(opts),
		NewSharedCommand(opts),
		NewConnCommand(opts),
		NewSetCommand(opts),
		NewInitKeyCommand(opts),
	)

	return root
}
