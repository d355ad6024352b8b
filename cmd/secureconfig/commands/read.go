// FILE: cmd/secureconfig/commands/read.go
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func NewEnvCommand(opts *Options) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the current environment",
		Long: `Print the environment lookups resolve against. With --list, print every
environment section and mark the current one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !list {
				env, err := s.CurrentEnvironment()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, env)
				return nil
			}

			names, err := s.Environments()
			if err != nil {
				return err
			}
			current, _ := s.CurrentEnvironment() // A missing current environment still lists
			for _, name := range names {
				marker := " "
				if name == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List all environments")
	return cmd
}

func NewGetCommand(opts *Options) *cobra.Command {
	var (
		envName    string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a setting from an environment section",
		Long: `Print one setting from an environment section, or every setting of the
section when no key is given. Without --env the current environment is used.

Examples:
  secureconfig get TestKey -c app.toml
  secureconfig get TestKey --env Production -c app.toml
  secureconfig get --json -c app.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				value, err := s.KeyByEnvironment(args[0], envName)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, map[string]string{"key": args[0], "value": value})
				}
				fmt.Fprint(out, value)
				return nil
			}

			settings, err := s.SettingsForEnvironment(envName)
			if err != nil {
				return err
			}
			return writeSettings(out, settings, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&envName, "env", "e", "", "Environment (default: current)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func NewSharedCommand(opts *Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "shared [key]",
		Short: "Get a shared setting from appSettings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				value, err := s.SharedKey(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(out, value)
				return nil
			}

			settings, err := s.SharedSettings()
			if err != nil {
				return err
			}
			return writeSettings(out, settings, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func NewConnCommand(opts *Options) *cobra.Command {
	var (
		envName    string
		direct     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "conn [name]",
		Short: "Resolve a connection string",
		Long: `Resolve a connection string through an environment: the environment
section maps name to a connection string identifier, which is looked up in
connectionStrings. With --direct, name is the identifier itself. Without a
name, list the registered connection strings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				names, err := s.ConnectionNames()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			if direct {
				value, err := s.ConnectionString(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(out, value)
				return nil
			}

			cs, err := s.ConnectionStringByEnvironment(args[0], envName)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, cs)
			}
			fmt.Fprint(out, cs.ConnectionString)
			return nil
		},
	}

	cmd.Flags().StringVarP(&envName, "env", "e", "", "Environment (default: current)")
	cmd.Flags().BoolVar(&direct, "direct", false, "Look the name up in connectionStrings directly")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func writeSettings(out io.Writer, settings map[string]string, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(out, settings)
	}
	for _, key := range slices.Sorted(maps.Keys(settings)) {
		fmt.Fprintf(out, "%s=%s\n", key, settings[key])
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
