package commands

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mallmap/core/internal/application/services"
	"github.com/mallmap/core/internal/domain/entities"
)

// NewUserCommand creates the user management command. Accounts live in the
// config file, so these commands only help produce entries for it.
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User account helpers",
		Long:  "Produce bcrypt hashes and config entries for login accounts",
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password for the users section of the config file",
		Long:  "Hash a password with bcrypt. The password is read from --password or, when absent, from the first line of stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			username, _ := cmd.Flags().GetString("username")
			role, _ := cmd.Flags().GetString("role")
			storeID, _ := cmd.Flags().GetInt("store-id")

			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("password is required")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password is required")
			}

			hash, err := services.HashPassword(password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if username == "" {
				fmt.Fprintln(out, hash)
				return nil
			}

			if !entities.Role(role).IsValid() {
				return fmt.Errorf("unknown role %q (admin, manager, store)", role)
			}
			fmt.Fprintf(out, "- username: %s\n", username)
			fmt.Fprintf(out, "  password_hash: %q\n", hash)
			fmt.Fprintf(out, "  role: %s\n", role)
			if entities.Role(role) == entities.RoleStore && storeID > 0 {
				fmt.Fprintf(out, "  store_id: %d\n", storeID)
			}
			return nil
		},
	}

	hashCmd.Flags().String("password", "", "Password to hash (default read from stdin)")
	hashCmd.Flags().String("username", "", "Print a full users entry for this username")
	hashCmd.Flags().String("role", string(entities.RoleStore), "Role for the users entry (admin, manager, store)")
	hashCmd.Flags().Int("store-id", 0, "Store bound to a store account")

	userCmd.AddCommand(hashCmd)
	return userCmd
}
