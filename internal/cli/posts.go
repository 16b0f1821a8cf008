package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	blogdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/gateway"
)

func postsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{Use: "posts", Short: "Read and publish company posts"}
	cmd.AddCommand(postsListCmd(a), postsAddCmd(a), postsDeleteCmd(a))
	return cmd
}

func postsListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGateway(cmd.Context(), func(_ context.Context, g *gateway.Gateway) error {
				tw := a.table()
				fmt.Fprintln(tw, "ID\tDATE\tAUTHOR\tTITLE\tEXCERPT")
				for _, p := range g.Posts() {
					title := p.Title
					if p.IsPinned {
						title = "[pinned] " + title
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
						p.ID, date(p.CreatedAt), orDash(p.AuthorName), title, orDash(p.Excerpt))
				}
				return tw.Flush()
			})
		},
	}
}

func postsAddCmd(a *App) *cobra.Command {
	var n blogdomain.NewPost
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Publish a post (managers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				p, err := g.CreatePost(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Post %d published: %s\n", p.ID, p.Title)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&n.Title, "title", "", "post title")
	f.StringVar(&n.Content, "content", "", "post body")
	f.StringVar(&n.Excerpt, "excerpt", "", "short summary (defaults to the start of the body)")
	f.BoolVar(&n.IsPinned, "pinned", false, "pin the post")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func postsDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a post (managers only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				if err := g.DeletePost(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Post %d deleted\n", id)
				return nil
			})
		},
	}
}
