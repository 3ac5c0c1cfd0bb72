package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kpcyrd/brchd/internal/crypto"
)

// newEncryptCmd implements a standalone container encryptor over stdin and
// stdout, for testing C1 outside of the worker/intake pipeline.
func newEncryptCmd() *cobra.Command {
	var filename string
	var senderSecretKey string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "encrypt stdin to stdout as a C1 container for the configured public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.PublicKey == "" {
				return fmt.Errorf("no public_key configured")
			}
			recipientPK, err := crypto.DecodeKey(cfg.PublicKey)
			if err != nil {
				return fmt.Errorf("decoding public_key: %w", err)
			}

			var senderSK *[crypto.KeySize]byte
			if senderSecretKey != "" {
				sk, err := crypto.DecodeKey(senderSecretKey)
				if err != nil {
					return fmt.Errorf("decoding sender secret key: %w", err)
				}
				senderSK = &sk
			}

			var namePtr *string
			if filename != "" {
				namePtr = &filename
			}

			enc, err := crypto.NewEncryptor(cmd.InOrStdin(), recipientPK, senderSK, namePtr)
			if err != nil {
				return fmt.Errorf("starting encryptor: %w", err)
			}
			_, err = io.Copy(cmd.OutOrStdout(), enc)
			return err
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "embed this filename in the container header")
	cmd.Flags().StringVar(&senderSecretKey, "sender-secret-key", "", "authenticate the container with this sender key")
	return cmd
}

// newDecryptCmd implements a standalone container decryptor over stdin and
// stdout, for testing C1 outside of the worker/intake pipeline.
func newDecryptCmd() *cobra.Command {
	var expectedSenderKey string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "decrypt a C1 container on stdin to stdout using the configured secret key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.SecretKey == "" {
				return fmt.Errorf("no secret_key configured")
			}
			recipientSK, err := crypto.DecodeKey(cfg.SecretKey)
			if err != nil {
				return fmt.Errorf("decoding secret_key: %w", err)
			}

			var expectedPK *[crypto.KeySize]byte
			if expectedSenderKey != "" {
				pk, err := crypto.DecodeKey(expectedSenderKey)
				if err != nil {
					return fmt.Errorf("decoding expected sender key: %w", err)
				}
				expectedPK = &pk
			}

			dec, err := crypto.NewDecryptor(cmd.InOrStdin(), recipientSK, expectedPK)
			if err != nil {
				return fmt.Errorf("starting decryptor: %w", err)
			}
			if name := dec.Filename(); name != nil {
				fmt.Fprintf(os.Stderr, "filename: %s\n", *name)
			}
			_, err = io.Copy(cmd.OutOrStdout(), dec)
			return err
		},
	}

	cmd.Flags().StringVar(&expectedSenderKey, "sender-public-key", "", "reject the container unless signed by this sender key")
	return cmd
}
