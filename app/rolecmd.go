package app

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ExtMailer/ExtMailer/internal/auth"
)

func init() { //nolint: gochecknoinits
	roleCmd.AddCommand(roleListCmd, roleGrantCmd, roleRevokeCmd)
	rootCmd.AddCommand(roleCmd)
}

var (
	roleCmd = &cobra.Command{
		Use:   "role",
		Short: "Inspect and change role grants",
	}

	roleListCmd = &cobra.Command{
		Use:   "list",
		Short: "List roles with their granted permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}

			roles, err := auth.NewService(gdb).Roles()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0) //nolint:mnd
			_, _ = fmt.Fprintln(w, "ROLE\tSYSTEM\tPERMISSIONS")

			for _, r := range roles {
				_, _ = fmt.Fprintf(w, "%s\t%v\t%s\n", r.Role.Name, r.Role.IsSystem, strings.Join(r.Permissions, ","))
			}

			return w.Flush()
		},
	}

	roleGrantCmd = &cobra.Command{
		Use:   "grant ROLE PERMISSION",
		Short: "Grant a permission to a role",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}

			if err = auth.NewService(gdb).Grant(args[0], args[1]); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", args[1], args[0])

			return err
		},
	}

	roleRevokeCmd = &cobra.Command{
		Use:   "revoke ROLE PERMISSION",
		Short: "Revoke a permission from a role",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}

			if err = auth.NewService(gdb).Revoke(args[0], args[1]); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", args[1], args[0])

			return err
		},
	}
)
