package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/gateway"
	saledomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

func salesCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{Use: "sales", Short: "List and record sales"}
	cmd.AddCommand(salesListCmd(a), salesAddCmd(a), salesDeleteCmd(a))
	return cmd
}

func salesListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your sales (every sale of the company for managers)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGateway(cmd.Context(), func(_ context.Context, g *gateway.Gateway) error {
				tw := a.table()
				fmt.Fprintln(tw, "ID\tDATE\tPRODUCT\tCUSTOMER\tSELLER\tVALUE\tCOMMISSION\tSTATUS")
				for _, s := range g.Sales() {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						s.ID, date(s.SaleDate), s.ProductName, orDash(s.CustomerName), orDash(s.SellerName),
						s.Value.StringFixed(2), s.CommissionValue.StringFixed(2), s.Status)
				}
				return tw.Flush()
			})
		},
	}
}

func salesAddCmd(a *App) *cobra.Command {
	var (
		n                 saledomain.NewSale
		value, commission string
		status            string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a sale in your name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := decimal.NewFromString(value)
			if err != nil {
				return fmt.Errorf("invalid --value %q", value)
			}
			rate, err := decimal.NewFromString(commission)
			if err != nil {
				return fmt.Errorf("invalid --commission %q", commission)
			}
			n.Value, n.CommissionRate, n.Status = v, rate, saledomain.Status(status)

			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				s, err := g.CreateSale(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Sale %d recorded: %s, %s (commission %s)\n",
					s.ID, s.ProductName, s.Value.StringFixed(2), s.CommissionValue.StringFixed(2))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&n.ProductName, "product", "", "product name")
	f.StringVar(&n.ProductCategory, "category", "", "product category")
	f.StringVar(&value, "value", "", "sale value, e.g. 1500.00")
	f.StringVar(&commission, "commission", "0", "commission rate in percent")
	f.StringVar(&n.CustomerName, "customer", "", "customer name")
	f.StringVar(&n.CustomerEmail, "customer-email", "", "customer email")
	f.StringVar(&n.CustomerPhone, "customer-phone", "", "customer phone")
	f.StringVar(&n.Notes, "notes", "", "notes")
	f.StringVar(&status, "status", "", "pending, confirmed or cancelled (default confirmed)")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func salesDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				if err := g.DeleteSale(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Sale %d deleted\n", id)
				return nil
			})
		},
	}
}
