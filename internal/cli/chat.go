package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	chatdomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/gateway"
)

func chatCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{Use: "chat", Short: "Direct messages with your colleagues"}
	cmd.AddCommand(chatListCmd(a), chatShowCmd(a), chatSendCmd(a))
	return cmd
}

func chatListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGateway(cmd.Context(), func(_ context.Context, g *gateway.Gateway) error {
				tw := a.table()
				fmt.Fprintln(tw, "MEMBER\tNAME\tUNREAD\tLAST MESSAGE")
				for _, t := range g.Conversations() {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", t.CounterpartID, orDash(t.CounterpartName), t.Unread, t.Last.Text)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "%d unread\n", g.UnreadCount())
				return nil
			})
		},
	}
}

func chatShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <member-id>",
		Short: "Show the conversation with a member and mark it read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			other, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				me := g.Scope().Actor.ID
				for _, m := range g.Conversation(other) {
					who := orDash(m.SenderName)
					if m.SenderID == me {
						who = "you"
					}
					fmt.Fprintf(a.Out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("02/01 15:04"), who, m.Text)
				}
				_, err := g.MarkConversationRead(ctx, other)
				return err
			})
		},
	}
}

func chatSendCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send <member-id> <message...>",
		Short: "Send a message to a member",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseID(args[0])
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				m, err := g.SendMessage(ctx, chatdomain.NewMessage{ReceiverID: to, Text: text})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Message %d sent to %s\n", m.ID, orDash(m.ReceiverName))
				return nil
			})
		},
	}
}
