package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fastygo/blogclient/domain"
	articleUC "github.com/fastygo/blogclient/usecase/article"
)

func (r *runner) articlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article"},
		Short:   "Browse and manage articles",
	}
	cmd.AddCommand(
		r.articlesListCmd(),
		r.articlesGetCmd(),
		r.articlesMineCmd(),
		r.articlesCreateCmd(),
		r.articlesUpdateCmd(),
		r.articlesDeleteCmd(),
		r.articlesDownloadCmd(),
		r.articlesCategoriesCmd(),
		r.articlesTagsCmd(),
	)
	return cmd
}

func (r *runner) articlesListCmd() *cobra.Command {
	var q articleUC.ListQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			page, err := r.app.Articles.List(ctx, q)
			if err != nil {
				return err
			}
			articles, err := page.Articles()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"articles":      articles,
				"totalElements": page.TotalElements,
				"totalPages":    page.TotalPages,
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 1, "page number")
	f.IntVar(&q.Size, "size", 10, "page size")
	f.StringVar(&q.Type, "type", "", "article type filter")
	f.StringVar(&q.Category, "category", "", "category filter")
	f.StringVar(&q.Tag, "tag", "", "tag filter")
	return cmd
}

func (r *runner) articlesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			a, err := r.app.Articles.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
}

func (r *runner) articlesMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the articles of the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			articles, err := r.app.Articles.Mine(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), articles)
		},
	}
}

func (r *runner) articlesCreateCmd() *cobra.Command {
	var (
		in   articleUC.Input
		file string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish an article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				in.Content = string(data)
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			a, err := r.app.Articles.Create(ctx, in)
			if err != nil {
				return err
			}
			if a == nil {
				return printMessage(cmd.OutOrStdout(), "文章已发布")
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "article title")
	f.StringVar(&in.Content, "content", "", "markdown body")
	f.StringVar(&file, "file", "", "read the markdown body from a file")
	f.StringVar(&in.Category, "category", "", "category (defaults to "+domain.DefaultCategory+")")
	f.StringVar(&in.Tags, "tags", "", "comma separated tags")
	f.BoolVar(&in.IsPrivate, "private", false, "hide from the public list")
	f.BoolVar(&in.IsDownloadable, "downloadable", false, "allow readers to download the markdown")
	return cmd
}

func (r *runner) articlesUpdateCmd() *cobra.Command {
	var upd articleUC.Update
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the category, tags or visibility of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			a, err := r.app.Articles.Update(ctx, id, upd)
			if err != nil {
				return err
			}
			if a == nil {
				return printMessage(cmd.OutOrStdout(), "文章已更新")
			}
			return printJSON(cmd.OutOrStdout(), a)
		},
	}
	f := cmd.Flags()
	f.StringVar(&upd.Category, "category", "", "category")
	f.StringVar(&upd.Tags, "tags", "", "comma separated tags")
	f.BoolVar(&upd.IsPrivate, "private", false, "hide from the public list")
	f.BoolVar(&upd.IsDownloadable, "downloadable", false, "allow readers to download the markdown")
	return cmd
}

func (r *runner) articlesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			if err := r.app.Articles.Delete(ctx, id); err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), "文章已删除")
		},
	}
}

func (r *runner) articlesDownloadCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the markdown of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			dl, err := r.app.Articles.Download(ctx, id)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, filepath.Base(dl.Filename))
			if err := os.WriteFile(path, dl.Data, 0o644); err != nil {
				return err
			}
			return printMessage(cmd.OutOrStdout(), path)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "target directory")
	return cmd
}

func (r *runner) articlesCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			cats, err := r.app.Articles.Categories(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cats)
		},
	}
}

func (r *runner) articlesTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := r.requestContext(cmd)
			defer cancel()
			tags, err := r.app.Articles.Tags(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tags)
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewError(domain.ErrCodeValidation, fmt.Sprintf("无效的ID: %s", arg))
	}
	return id, nil
}
