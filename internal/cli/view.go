package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/fastygo/blogclient/domain"
	"github.com/fastygo/blogclient/internal/middleware"
	"github.com/fastygo/blogclient/internal/router"
	"github.com/fastygo/blogclient/usecase"
)

func (r *runner) viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <name> [key=value]...",
		Short: "Render a page view-model, applying the navigation guard",
		Long: "Renders the same view-model the preview server returns for a page.\n" +
			"Views: home, login, register, article, create, edit, user, admin.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route, ok := router.Lookup(args[0])
			if !ok {
				return domain.NewError(domain.ErrCodeNotFound, "未知视图: "+args[0])
			}
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}

			ctx, cancel := r.requestContext(cmd)
			defer cancel()

			guard := middleware.NewGuard(r.app.Session, nil, r.logger)
			if decision := guard.Resolve(ctx, route, routePath(route, params)); !decision.Proceed() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"redirect": decision.Redirect})
			}
			model, err := r.app.Dispatcher.ExecuteQuery(ctx, route.Name, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), model)
		},
	}
}

func parseParams(args []string) (usecase.Params, error) {
	params := usecase.Params{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, domain.NewError(domain.ErrCodeValidation, "参数格式应为 key=value: "+arg)
		}
		params[key] = value
	}
	return params, nil
}

// routePath fills the {id} placeholder so login redirects point back at the
// requested page.
func routePath(route middleware.Route, params usecase.Params) string {
	return strings.ReplaceAll(route.Path, "{id}", params["id"])
}
