package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/blogclient/internal/app"
	"github.com/fastygo/blogclient/internal/config"
	"github.com/fastygo/blogclient/pkg/logger"
)

type runner struct {
	overrides config.Overrides
	app       *app.App
	logger    *zap.Logger
}

// Execute runs the command line with args and writes command output to out.
// The wired client is released whether the command succeeds or not.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	r := &runner{}
	root := r.command()
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if cerr := r.teardown(ctx); err == nil {
		err = cerr
	}
	return err
}

// command builds the command tree. Every command shares one wired client
// built in the persistent pre-run.
func (r *runner) command() *cobra.Command {
	root := &cobra.Command{
		Use:               "blogclient",
		Short:             "Command line client for the blog API",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&r.overrides.APIBase, "api", "", "blog API base URL (overrides BLOG_API_BASE)")
	flags.StringVar(&r.overrides.StorageDriver, "storage", "", "session storage driver: bolt, redis or memory")
	flags.StringVar(&r.overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		r.serveCmd(),
		r.loginCmd(),
		r.logoutCmd(),
		r.whoamiCmd(),
		r.registerCmd(),
		r.captchaCmd(),
		r.checkUsernameCmd(),
		r.articlesCmd(),
		r.profileCmd(),
		r.followCmd(),
		r.unfollowCmd(),
		r.followingCmd(),
		r.adminCmd(),
		r.viewCmd(),
	)
	return root
}

func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Apply(r.overrides); err != nil {
		return err
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	r.logger = zapLogger

	a, err := app.New(cmd.Context(), cfg, zapLogger)
	if err != nil {
		return err
	}
	r.app = a
	r.logger.Debug("command started", zap.String("command", cmd.CommandPath()))
	return nil
}

func (r *runner) teardown(ctx context.Context) error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close(context.WithoutCancel(ctx))
	_ = r.logger.Sync()
	r.app = nil
	return err
}

// requestContext bounds a single command by the configured request timeout.
func (r *runner) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), r.app.RequestTimeout())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printMessage(w io.Writer, msg string) error {
	if msg == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}
