package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/auth"
	"github.com/ExtMailer/ExtMailer/internal/db"
	"github.com/ExtMailer/ExtMailer/internal/uniuri"
)

func init() { //nolint: gochecknoinits
	f := userAddCmd.Flags()
	f.StringVar(&newUser.Username, "username", "", "login name (required)")
	f.StringVar(&newUser.Email, "email", "", "e-mail address (required)")
	f.StringVar(&newUser.Password, "password", "", "password, generated and printed when empty")
	f.StringVar(&newUser.FirstName, "first-name", "", "first name")
	f.StringVar(&newUser.LastName, "last-name", "", "last name")
	f.StringVar(&newUser.Role, "role", auth.RoleReader, "role: admin, manager or reader")

	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("email")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

var errEmptyFlag = errors.New("flag must not be empty")

var (
	newUser auth.NewLocalUser

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
	}

	userAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Create a local account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if newUser.Username == "" || newUser.Email == "" {
				return fmt.Errorf("%w: --username and --email", errEmptyFlag)
			}

			gdb, err := openDB()
			if err != nil {
				return err
			}

			generated := newUser.Password == ""
			if generated {
				if newUser.Password, err = uniuri.New(); err != nil {
					return err
				}
			}

			user, err := auth.NewLocalProvider(gdb).CreateUser(newUser)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "created user %s (id %d) with role %s\n", user.Username, user.ID, newUser.Role)

			if generated {
				_, _ = fmt.Fprintf(out, "password: %s\n", newUser.Password)
			}

			return nil
		},
	}
)

// openDB opens and migrates the configured database and makes sure the
// permission catalog exists.
func openDB() (*gorm.DB, error) {
	gdb, err := db.Open(&cfg.DB, cfg.DevMode)
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(gdb); err != nil {
		return nil, err
	}

	if err = auth.Seed(gdb, cfg.Auth.LegacyPermissions); err != nil {
		return nil, err
	}

	return gdb, nil
}
