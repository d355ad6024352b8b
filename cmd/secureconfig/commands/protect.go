// FILE: cmd/secureconfig/commands/protect.go
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewEncryptCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt connection strings and every environment section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := s.Encrypt(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration encrypted")
			return nil
		},
	}
}

func NewDecryptCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt connection strings and every environment section",
		Long: `Decrypt writes every sensitive section back to the file in plaintext.
Run encrypt again before committing or distributing the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := s.Decrypt(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration decrypted")
			return nil
		},
	}
}

func NewStatusCommand(opts *Options) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the protection state of each sensitive section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.Open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			status, err := s.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(status)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SECTION\tPROTECTED\tPROVIDER\tENTRIES")
			encrypted := true
			for _, st := range status {
				provider := st.Provider
				if provider == "" {
					provider = "-"
				}
				fmt.Fprintf(w, "%s\t%t\t%s\t%d\n", st.Path, st.Protected, provider, st.Entries)
				encrypted = encrypted && st.Protected
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nencrypted: %t\n", encrypted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
