package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/dashboard"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/gateway"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/health"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/rbac"
)

func dashboardCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Sales summary for you (or for the whole company if you are a manager)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGateway(cmd.Context(), func(_ context.Context, g *gateway.Gateway) error {
				actor := g.Scope().Actor
				m := dashboard.Compute(g.Sales(), g.Members(), actor, a.Now())

				tw := a.table()
				fmt.Fprintf(tw, "Total sold:\t%s\n", m.Total.StringFixed(2))
				fmt.Fprintf(tw, "Sales:\t%d\n", m.Count)
				fmt.Fprintf(tw, "Average sale:\t%s\n", m.Average.StringFixed(2))
				fmt.Fprintf(tw, "This month:\t%d (%s%% vs last month)\n", m.ThisMonth, m.GrowthPercent.StringFixed(1))
				fmt.Fprintf(tw, "Salespeople:\t%d\n", m.Salespeople)
				fmt.Fprintf(tw, "Unread messages:\t%d\n", g.UnreadCount())
				fmt.Fprintln(tw, "\nLast 7 days:\t")
				for _, d := range m.LastSevenDays {
					fmt.Fprintf(tw, "  %s\t%s\n", d.Day.Format("02/01"), d.Total.StringFixed(2))
				}
				if actor.IsManager() && len(m.TopSellers) > 0 {
					fmt.Fprintln(tw, "\nTop sellers:\t")
					for i, s := range m.TopSellers {
						fmt.Fprintf(tw, "  %d. %s\t%s (%d sales)\n", i+1, s.Name, s.Total.StringFixed(2), s.Count)
					}
				}
				return tw.Flush()
			})
		},
	}
}

func auditCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: "Audit trail of your company's data changes"}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent changes (managers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			actor, err := a.resolve(ctx)
			if err != nil {
				return err
			}
			if err := rbac.RequireManager(ctx, a.Backend.Policy, actor, rbac.ManageMembers); err != nil {
				return err
			}
			if a.Backend.AuditLog == nil {
				return fmt.Errorf("audit log is not available for the %s store", a.Backend.Driver)
			}
			logs, err := a.Backend.AuditLog.ListByTenant(ctx, actor.TenantID, limit)
			if err != nil {
				return err
			}
			tw := a.table()
			fmt.Fprintln(tw, "WHEN\tUSER\tACTION\tTABLE\tRECORD")
			for _, l := range logs {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\n",
					l.CreatedAt.Local().Format("02/01/2006 15:04"), l.UserID, l.Action, l.Table, l.RecordID)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "number of entries")
	cmd.AddCommand(list)
	return cmd
}

func healthCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the store connection and the access policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var policy health.PolicyChecker
			if a.Backend.Policy != nil {
				policy = a.Backend.Policy
			}
			r := health.Check(cmd.Context(), a.Backend.Pinger, policy, 5*time.Second)
			tw := a.table()
			for _, res := range r.Results {
				switch {
				case res.Skipped:
					fmt.Fprintf(tw, "%s:\tskipped\n", res.Name)
				case res.Err != "":
					fmt.Fprintf(tw, "%s:\tfailing\t%s\n", res.Name, res.Err)
				default:
					fmt.Fprintf(tw, "%s:\tok\n", res.Name)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if r.Status != health.StatusServing {
				return fmt.Errorf("store is %s", r.Status)
			}
			fmt.Fprintln(a.Out, string(r.Status))
			return nil
		},
	}
}
