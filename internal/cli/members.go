package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/gateway"
	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
)

func membersCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{Use: "members", Short: "Company roster"}
	cmd.AddCommand(membersListCmd(a), membersAddCmd(a), membersUpdateCmd(a), membersDeleteCmd(a))
	return cmd
}

func membersListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the members of your company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGateway(cmd.Context(), func(_ context.Context, g *gateway.Gateway) error {
				tw := a.table()
				fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tPHONE\tACTIVE")
				for _, m := range g.Members() {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\n", m.ID, m.Name, m.Email, m.Role, orDash(m.Phone), m.IsActive)
				}
				return tw.Flush()
			})
		},
	}
}

func membersAddCmd(a *App) *cobra.Command {
	var (
		n    identitydomain.NewMember
		role string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member to your company (managers only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n.Role = identitydomain.Role(role)
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				m, err := g.CreateMember(ctx, n)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Member %d added: %s <%s> (%s)\n", m.ID, m.Name, m.Email, m.Role)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&n.Name, "name", "", "full name")
	f.StringVar(&n.Email, "email", "", "email")
	f.StringVar(&role, "role", string(identitydomain.RoleSalesperson), "gestor or vendedor")
	f.StringVar(&n.Phone, "phone", "", "phone")
	f.StringVar(&n.BirthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	f.StringVar(&n.Password, "password", "", "initial password (self-hosted store only)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// updateFlags binds the member fields a MemberUpdate can carry. Only flags the user set end up in the update.
type updateFlags struct {
	name, email, phone, birthDate, picture, role string

	active    bool
	withAdmin bool
}

func (u *updateFlags) register(f *pflag.FlagSet) {
	f.StringVar(&u.name, "name", "", "full name")
	f.StringVar(&u.email, "email", "", "email")
	f.StringVar(&u.phone, "phone", "", "phone (empty clears it)")
	f.StringVar(&u.birthDate, "birth-date", "", "birth date (YYYY-MM-DD, empty clears it)")
	f.StringVar(&u.picture, "picture", "", "profile picture URL")
	if u.withAdmin {
		f.StringVar(&u.role, "role", "", "gestor or vendedor")
		f.BoolVar(&u.active, "active", true, "whether the member may sign in")
	}
}

func (u *updateFlags) build(f *pflag.FlagSet) identitydomain.MemberUpdate {
	var out identitydomain.MemberUpdate
	if f.Changed("name") {
		out.Name = &u.name
	}
	if f.Changed("email") {
		out.Email = &u.email
	}
	if f.Changed("phone") {
		out.Phone = &u.phone
	}
	if f.Changed("birth-date") {
		out.BirthDate = &u.birthDate
	}
	if f.Changed("picture") {
		out.ProfilePicture = &u.picture
	}
	if u.withAdmin && f.Changed("role") {
		r := identitydomain.Role(u.role)
		out.Role = &r
	}
	if u.withAdmin && f.Changed("active") {
		out.IsActive = &u.active
	}
	return out
}

func membersUpdateCmd(a *App) *cobra.Command {
	flags := &updateFlags{withAdmin: true}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a member (managers: anyone; others: only their own display fields)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u := flags.build(cmd.Flags())
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				m, err := g.UpdateMember(ctx, id, u)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Member %d updated: %s <%s> (%s)\n", m.ID, m.Name, m.Email, m.Role)
				return nil
			})
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func membersDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a member from your company (managers only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				if err := g.DeleteMember(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Member %d removed\n", id)
				return nil
			})
		},
	}
}

func profileCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Your own member profile"}
	flags := &updateFlags{}
	update := &cobra.Command{
		Use:   "update",
		Short: "Update your name, contact details or picture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u := flags.build(cmd.Flags())
			return a.withGateway(cmd.Context(), func(ctx context.Context, g *gateway.Gateway) error {
				m, err := g.UpdateMember(ctx, g.Scope().Actor.ID, u)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Profile updated: %s <%s>\n", m.Name, m.Email)
				return nil
			})
		},
	}
	flags.register(update.Flags())
	cmd.AddCommand(update)
	return cmd
}
