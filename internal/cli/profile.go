package cli

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fastygo/blogclient/api/transport"
	userUC "github.com/fastygo/blogclient/usecase/user"
)

func (r *runner) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show and manage the signed in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			profile, err := r.app.Users.Profile(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile)
		},
	}
	cmd.AddCommand(
		r.profileUpdateCmd(),
		r.passwordCmd(),
		r.avatarCmd(),
		r.uploadImagesCmd(),
		r.deleteAccountCmd(),
	)
	return cmd
}

func (r *runner) profileUpdateCmd() *cobra.Command {
	var upd userUC.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update email, bio or avatar URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			if !cmd.Flags().Changed("avatar") {
				upd.Avatar = r.app.Session.UserAvatar()
			}
			profile, err := r.app.Users.UpdateProfile(ctx, upd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), profile)
		},
	}
	f := cmd.Flags()
	f.StringVar(&upd.Email, "email", "", "email address")
	f.StringVar(&upd.Bio, "bio", "", "short biography")
	f.StringVar(&upd.Avatar, "avatar", "", "avatar URL")
	return cmd
}

func (r *runner) passwordCmd() *cobra.Command {
	var change userUC.PasswordChange
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change the account password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			msg, err := r.app.Users.ChangePassword(ctx, change)
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), msg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&change.CurrentPassword, "current", "", "current password")
	f.StringVar(&change.NewPassword, "new", "", "new password")
	f.StringVar(&change.ConfirmPassword, "confirm", "", "new password again")
	return cmd
}

func (r *runner) avatarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a new avatar image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readUpload(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			url, err := r.app.Users.UploadAvatar(ctx, file)
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), url)
		},
	}
}

func (r *runner) uploadImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload-images <image>...",
		Short: "Upload images for use in articles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]transport.File, 0, len(args))
			for _, path := range args {
				file, err := readUpload(path)
				if err != nil {
					return err
				}
				files = append(files, file)
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			urls, err := r.app.Users.UploadImages(ctx, files)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), urls)
		},
	}
}

func (r *runner) deleteAccountCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the account and sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			if err := r.app.Users.DeleteAccount(ctx, password); err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), "账户已注销")
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "current password")
	return cmd
}

type followFunc func(uc *userUC.UseCase) func(ctx context.Context, userID int64) (string, error)

func (r *runner) followCmd() *cobra.Command {
	return r.followAction("follow <user-id>", "Follow a user", func(uc *userUC.UseCase) func(context.Context, int64) (string, error) {
		return uc.Follow
	})
}

func (r *runner) unfollowCmd() *cobra.Command {
	return r.followAction("unfollow <user-id>", "Stop following a user", func(uc *userUC.UseCase) func(context.Context, int64) (string, error) {
		return uc.Unfollow
	})
}

func (r *runner) followAction(use, short string, action followFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			msg, err := action(r.app.Users)(ctx, id)
			if err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), msg)
		},
	}
}

func (r *runner) followingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following <user-id>",
		Short: "Check whether the signed in user follows another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			following, err := r.app.Users.IsFollowing(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]bool{"following": following})
		},
	}
}

// readUpload loads a local file and sniffs its content type.
func readUpload(path string) (transport.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transport.File{}, err
	}
	return transport.File{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}
