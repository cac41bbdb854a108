package main

import (
	"context"
	"fmt"

	"github.com/abcfe/abcfe-vault/app"
	"github.com/abcfe/abcfe-vault/common/crypto"
	"github.com/abcfe/abcfe-vault/prompt"
	"github.com/spf13/cobra"
)

// Optionals are small named secrets sealed under the vault seed, such as
// recovery notes. They are re-keyed along with the keychain.
func optionalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optional",
		Short: "Named secrets stored next to the keychain",
	}
	cmd.AddCommand(optionalListCmd())
	cmd.AddCommand(optionalGetCmd())
	cmd.AddCommand(optionalPutCmd())
	cmd.AddCommand(optionalRemoveCmd())
	return cmd
}

func optionalListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored optionals",
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				names, err := a.DB.ListOptionals(context.Background())
				if err != nil {
					return err
				}
				if len(names) == 0 {
					fmt.Println("No optionals stored.")
					return nil
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			})
		},
	}
}

func optionalGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print a stored optional",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				value, err := a.DB.GetOptional(context.Background(), args[0])
				if err != nil {
					return err
				}
				if value == nil {
					return fmt.Errorf("optional %q not found", args[0])
				}
				defer crypto.Zero(value)
				fmt.Println(string(value))
				return nil
			})
		},
	}
}

func optionalPutCmd() *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "put <name>",
		Short: "Store or replace an optional",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				if value == "" {
					var err error
					if value, err = prompt.ReadPassword("Value"); err != nil {
						return err
					}
				}
				if err := a.DB.PutOptional(context.Background(), args[0], []byte(value)); err != nil {
					return err
				}
				fmt.Println("Optional stored:", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "Value to store, prompted when empty")
	return cmd
}

func optionalRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete an optional",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withUnlocked(func(a *app.App) error {
				if err := a.DB.DeleteOptional(context.Background(), args[0]); err != nil {
					return err
				}
				fmt.Println("Optional removed:", args[0])
				return nil
			})
		},
	}
}
