// FILE: cmd/secureconfig/commands/set.go
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSetCommand(opts *Options) *cobra.Command {
	var envName string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting into an environment section",
		Long: `Overwrite or insert a setting in an environment section and save. The
whole configuration is encrypted afterwards, even if the write failed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := s.UpdateSetting(args[0], args[1], envName); err != nil {
				return err
			}

			env := envName
			if env == "" {
				env, _ = s.CurrentEnvironment()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", args[0], env)
			return nil
		},
	}

	cmd.Flags().StringVarP(&envName, "env", "e", "", "Environment (default: current)")
	return cmd
}
