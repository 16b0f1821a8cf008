package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
)

// NewRootCommand builds the salesctl command tree around a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "salesctl",
		Short:         "Sales team hub: sales, posts, chat and members of your company",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.Out == nil {
				a.Out = cmd.OutOrStdout()
			}
			return a.setup(cmd.Context())
		},
	}
	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		salesCmd(a),
		postsCmd(a),
		chatCmd(a),
		membersCmd(a),
		profileCmd(a),
		dashboardCmd(a),
		auditCmd(a),
		healthCmd(a),
	)
	return root
}

// resolve restores the current identity and fails when nobody is signed in.
func (a *App) resolve(ctx context.Context) (*identitydomain.Identity, error) {
	a.Session.Start(ctx)
	st := a.Session.State()
	if !st.Authenticated {
		return nil, errNotSignedIn
	}
	return st.Identity, nil
}

func loginCmd(a *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in with email and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a.Session.Start(ctx)
			if !a.Session.Login(ctx, args[0], password) {
				return errors.New("login failed: check email and password")
			}
			id := a.Session.State().Identity
			fmt.Fprintf(a.Out, "Signed in as %s (%s)%s\n", id.Name, id.Role, tenantSuffix(id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.Session.Logout(cmd.Context())
			fmt.Fprintln(a.Out, "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			tw := a.table()
			fmt.Fprintf(tw, "Name:\t%s\n", id.Name)
			fmt.Fprintf(tw, "Email:\t%s\n", id.Email)
			fmt.Fprintf(tw, "Role:\t%s\n", id.Role)
			if id.Tenant != nil {
				fmt.Fprintf(tw, "Company:\t%s\n", id.Tenant.Name)
			}
			return tw.Flush()
		},
	}
}

func tenantSuffix(id *identitydomain.Identity) string {
	if id.Tenant == nil || id.Tenant.Name == "" {
		return ""
	}
	return " at " + id.Tenant.Name
}
