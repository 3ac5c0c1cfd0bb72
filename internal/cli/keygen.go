package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/crypto"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "generate a public/secret keypair for encrypted uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := crypto.GenerateKeypair()
			if err != nil {
				return fmt.Errorf("generating keypair: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "public_key = %s\n", crypto.EncodeKey(kp.Public))
			fmt.Fprintf(out, "secret_key = %s\n", crypto.EncodeKey(kp.Secret))
			return nil
		},
	}
	return cmd
}
