// FILE: cmd/secureconfig/commands/key.go
package commands

import (
	"fmt"

	"github.com/lixenwraith/secureconfig"
	"github.com/spf13/cobra"
)

func NewInitKeyCommand(opts *Options) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "init-key",
		Short: "Create the protection key in the OS keyring",
		Long: `Ensure the key for the selected provider exists in the OS keyring,
generating it when absent. With --provider age, print the age recipient.

--reset deletes the machine key first. Sections encrypted under the old key
can no longer be decrypted; run decrypt before resetting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if opts.Provider == providerAge {
				identity, err := secureconfig.KeyringAgeIdentity(opts.Service, opts.Account)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, secureconfig.NewAgeProvider(identity).Recipient())
				return nil
			}

			source := secureconfig.NewKeyringKeySource(opts.Service, opts.Account)
			if reset {
				if err := source.Reset(); err != nil {
					return err
				}
			}
			if _, err := source.MasterKey(); err != nil {
				return err
			}
			fmt.Fprintf(out, "machine key ready in keyring %s/%s\n", source.Service, source.Account)
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Replace the existing machine key")
	return cmd
}
