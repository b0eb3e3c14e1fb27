package cli

import (
	"github.com/spf13/cobra"

	adminUC "github.com/fastygo/blogclient/usecase/admin"
)

func (r *runner) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "User administration (administrators only)",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "users",
			Short: "List all users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, cancel := r.requestContext(cmd)
				defer cancel()
				users, err := r.app.Admin.Users(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), users)
			},
		},
		&cobra.Command{
			Use:   "delete-user <id>",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := r.requestContext(cmd)
				defer cancel()
				if err := r.app.Admin.DeleteUser(ctx, id); err != nil {
					return err
				}
				return printMessage(cmd.OutOrStdout(), "用户已删除")
			},
		},
		&cobra.Command{
			Use:   "role <id> <ROLE_USER|ROLE_ADMIN>",
			Short: "Change the role of a user",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				ctx, cancel := r.requestContext(cmd)
				defer cancel()
				if err := r.app.Admin.ChangeRole(ctx, id, args[1]); err != nil {
					return err
				}
				return printMessage(cmd.OutOrStdout(), "角色已更新")
			},
		},
		r.adminUpdateUserCmd(),
	)
	return cmd
}

func (r *runner) adminUpdateUserCmd() *cobra.Command {
	var upd adminUC.UserUpdate
	cmd := &cobra.Command{
		Use:   "update-user <id>",
		Short: "Change the email or role of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			user, err := r.app.Admin.UpdateUser(ctx, id, upd)
			if err != nil {
				return err
			}
			if user == nil {
				return printMessage(cmd.OutOrStdout(), "用户已更新")
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	cmd.Flags().StringVar(&upd.Email, "email", "", "new email")
	cmd.Flags().StringVar(&upd.Role, "role", "", "new role")
	return cmd
}
