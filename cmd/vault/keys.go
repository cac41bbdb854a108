package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/abcfe/abcfe-vault/app"
	"github.com/abcfe/abcfe-vault/common/crypto"
	"github.com/abcfe/abcfe-vault/common/utils"
	"github.com/abcfe/abcfe-vault/prompt"
	prt "github.com/abcfe/abcfe-vault/protocol"
	"github.com/abcfe/abcfe-vault/vault"
	"github.com/spf13/cobra"
)

var errPasswordMismatch = errors.New("passwords do not match")

// openVault opens the vault store directly. It fails while a daemon holds the db.
func openVault() (*app.App, error) {
	application, err := app.New(configFile)
	if err != nil {
		return nil, fmt.Errorf("%w (is the vault daemon running?)", err)
	}
	return application, nil
}

func unlockWithPrompt(v *vault.Vault) error {
	password, err := prompt.ReadPassword("Vault password")
	if err != nil {
		return err
	}
	_, err = v.Unlock(context.Background(), password, false, "")
	return err
}

func readNewPassword() (string, error) {
	password, err := prompt.ReadPassword("New password")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	confirm, err := prompt.ReadPassword("Repeat password")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errPasswordMismatch
	}
	return password, nil
}

// withUnlocked runs fn against an unlocked vault and locks it afterwards
func withUnlocked(fn func(a *app.App) error) {
	application, err := openVault()
	if err != nil {
		fmt.Println("Failed to open vault:", err)
		return
	}
	defer application.Terminate()

	if err := unlockWithPrompt(application.Vault); err != nil {
		fmt.Println("Failed to unlock vault:", err)
		return
	}
	if err := fn(application); err != nil {
		fmt.Println("Error:", err)
	}
}

func parseChains(s string) []prt.Blockchain {
	var out []prt.Blockchain
	for _, c := range strings.Split(s, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			out = append(out, prt.Blockchain(c))
		}
	}
	return out
}

func initCmd() *cobra.Command {
	var salt string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new empty vault",
		Run: func(cmd *cobra.Command, args []string) {
			application, err := openVault()
			if err != nil {
				fmt.Println("Failed to open vault:", err)
				return
			}
			defer application.Terminate()

			if application.Vault.Exists() {
				fmt.Println("Vault already exists.")
				return
			}
			password, err := readNewPassword()
			if err != nil {
				fmt.Println("Error:", err)
				return
			}
			if _, err := application.Vault.Unlock(context.Background(), password, true, salt); err != nil {
				fmt.Println("Failed to create vault:", err)
				return
			}
			fmt.Println("=== Vault Created ===")
			fmt.Println("")
			fmt.Println("IMPORTANT: The password cannot be recovered. Losing it loses every key in the vault.")
		},
	}
	cmd.Flags().StringVar(&salt, "salt", "", "Use this KDF salt instead of a random one")
	return cmd
}

func changePasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "change-password",
		Short: "Re-encrypt the vault under a new password",
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				password, err := readNewPassword()
				if err != nil {
					return err
				}
				if err := a.Vault.ChangePassword(context.Background(), password); err != nil {
					return err
				}
				fmt.Println("Password changed.")
				return nil
			})
		},
	}
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Keypair management commands",
	}
	cmd.AddCommand(keysListCmd())
	cmd.AddCommand(keysAddCmd())
	cmd.AddCommand(keysExportCmd())
	cmd.AddCommand(keysRemoveCmd())
	return cmd
}

func keysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keypairs and their public keys",
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				keypairs, err := a.Wallet.Keypairs()
				if err != nil {
					return err
				}
				fmt.Println("=== Keypairs ===")
				fmt.Println("")
				for _, kp := range keypairs {
					kind := ""
					if kp.External {
						kind = " (hardware)"
					}
					fmt.Printf("[%s] %s%s\n", kp.ID, kp.Name, kind)
					for _, pk := range kp.PublicKeys {
						fmt.Printf("  %-4s %s\n", pk.Blockchain, pk.Key)
					}
					fmt.Println("")
				}
				return nil
			})
		},
	}
}

func keysAddCmd() *cobra.Command {
	var (
		name     string
		chains   string
		doImport bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Generate or import a keypair",
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				ctx := context.Background()
				list := parseChains(chains)
				if !doImport {
					kp, err := a.Wallet.CreateKeypair(ctx, name, list...)
					if err != nil {
						return err
					}
					fmt.Println("Keypair created:", kp.ID)
					return nil
				}

				text, err := prompt.ReadPassword("Private key (hex)")
				if err != nil {
					return err
				}
				key, err := utils.HexToBytes(text)
				if err != nil {
					return err
				}
				defer crypto.Zero(key)

				kp, err := a.Wallet.ImportKeypair(ctx, name, key, list...)
				if err != nil {
					return err
				}
				fmt.Println("Keypair imported:", kp.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Keypair name")
	cmd.Flags().StringVar(&chains, "chains", "eos,eth,trx,btc", "Comma separated blockchains")
	cmd.Flags().BoolVar(&doImport, "import", false, "Import an existing private key")
	return cmd
}

func keysExportCmd() *cobra.Command {
	var chain string

	cmd := &cobra.Command{
		Use:   "export <keypair-id>",
		Short: "Print a private key in the chain's format",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				key, err := a.Wallet.GetPrivateKey(context.Background(), args[0], prt.Blockchain(strings.ToLower(chain)))
				if err != nil {
					return err
				}
				if key == "" {
					fmt.Println("Export declined.")
					return nil
				}
				fmt.Println("WARNING: Never share your private key with anyone!")
				fmt.Println(key)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&chain, "chain", string(prt.Ethereum), "Blockchain format")
	return cmd
}

func keysRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <keypair-id>",
		Short: "Delete a keypair",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				if err := a.Wallet.RemoveKeypair(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Println("Keypair removed.")
				return nil
			})
		},
	}
}

func signCmd() *cobra.Command {
	var (
		chain     string
		publicKey string
		payload   string
		arbitrary bool
		isHash    bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload with a stored key",
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				data := []byte(payload)
				if !arbitrary {
					var err error
					data, err = hex.DecodeString(utils.Strip0x(payload))
					if err != nil {
						return fmt.Errorf("payload must be hex: %w", err)
					}
				}

				network := prt.Network{Blockchain: prt.Blockchain(strings.ToLower(chain))}
				sig, err := a.Wallet.Sign(context.Background(), network, publicKey, data, arbitrary, isHash)
				if err != nil {
					return err
				}
				fmt.Println(sig.Value)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&chain, "chain", string(prt.Ethereum), "Blockchain")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Public key or address of the signing keypair")
	cmd.Flags().StringVar(&payload, "payload", "", "Hex payload, or text with --arbitrary")
	cmd.Flags().BoolVar(&arbitrary, "arbitrary", false, "Sign a text message")
	cmd.Flags().BoolVar(&isHash, "hash", false, "Payload is already a 32 byte hash")
	cmd.MarkFlagRequired("public-key")
	cmd.MarkFlagRequired("payload")
	return cmd
}
