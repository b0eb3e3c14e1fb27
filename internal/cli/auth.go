package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/token"
	authUC "github.com/fastygo/blogclient/usecase/auth"
)

type whoami struct {
	Authenticated bool             `json:"authenticated"`
	Admin         bool             `json:"admin"`
	User          *domain.Identity `json:"user,omitempty"`
	Avatar        string           `json:"avatar"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
}

func (r *runner) loginCmd() *cobra.Command {
	var creds authUC.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			if creds.Password == "" {
				creds.Password = os.Getenv("BLOG_PASSWORD")
			}
			result, err := r.app.Auth.Login(ctx, creds)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result.User)
		},
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (falls back to BLOG_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			if err := r.app.Auth.Logout(ctx); err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), "已退出登录")
		},
	}
}

func (r *runner) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			store := r.app.Session
			store.CheckAndRepair(ctx)

			out := whoami{
				Authenticated: store.IsAuthenticated(),
				Admin:         store.IsAdmin(),
				User:          store.CurrentUser(),
				Avatar:        store.UserAvatar(),
			}
			if exp, err := token.ExpiresAt(store.Token()); err == nil {
				out.ExpiresAt = &exp
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func (r *runner) registerCmd() *cobra.Command {
	var in authUC.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; fetch the challenge with `captcha` first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			result, err := r.app.Auth.Register(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Username, "username", "", "account name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Password, "password", "", "password")
	f.StringVar(&in.Captcha, "captcha", "", "captcha answer")
	f.StringVar(&in.CaptchaID, "captcha-id", "", "id printed by the captcha command")
	return cmd
}

func (r *runner) captchaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "captcha",
		Short: "Fetch a registration captcha image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			captcha, err := r.app.Auth.Captcha(ctx)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, captcha.Image, 0o644); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"captcha_id":   captcha.ID,
				"content_type": captcha.ContentType,
				"file":         out,
				"bytes":        len(captcha.Image),
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "captcha.png", "where to write the image")
	return cmd
}

func (r *runner) checkUsernameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-username <name>",
		Short: "Check whether a username is taken",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			check, err := r.app.Auth.CheckUsername(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), check)
		},
	}
}
