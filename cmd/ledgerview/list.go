package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ledgerview/internal/cli"
	"ledgerview/internal/core"
	"ledgerview/internal/listview"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/session"
)

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "Print one list as a table",
	Long: `Load a list once and print it.

Kinds are expenses, invoices, purchase-orders and sale-receipts.
Expenses need --identity; the other kinds need --tenant.`,
	Example: `  ledgerview list invoices --tenant acme
  ledgerview list expenses --identity u1`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().String("tenant", "", "company ID to list documents for")
	listCmd.Flags().String("identity", "", "user ID whose expenses to list")
}

func runList(cmd *cobra.Command, args []string) error {
	kind, err := core.ParseKind(args[0])
	if err != nil {
		return err
	}
	def, _ := listview.DefinitionFor(kind)
	tenantID, _ := cmd.Flags().GetString("tenant")
	identityID, _ := cmd.Flags().GetString("identity")

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(cfg)
	if err != nil {
		return fmt.Errorf("create currency formatter: %w", err)
	}

	ctx := context.Background()
	res, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	sess := session.New()
	if identityID != "" {
		sess.SignIn(core.Identity{ID: identityID})
	}
	tenants := session.NewTenantContext()
	if tenantID != "" {
		t, err := findTenant(ctx, res.Store, tenantID)
		if err != nil {
			return err
		}
		tenants.Select(t)
	}

	c := listview.New(def, listview.Options{
		Repository:   res.Store,
		Identity:     sess,
		Tenants:      tenants,
		Notifier:     notify.NewLog(logger.WithComponent(log.ComponentListView).Logger),
		Logger:       logger,
		FetchTimeout: cfg.FetchTimeout,
	})
	st, _ := c.Refresh(ctx)
	if err := listview.RenderText(cmd.OutOrStdout(), c.View(formatter)); err != nil {
		return fmt.Errorf("render list: %w", err)
	}
	if st.Phase == listview.PhaseFailed {
		return fmt.Errorf("%s", st.Reason)
	}
	return nil
}

type tenantLister interface {
	ListTenants(ctx context.Context) ([]core.Tenant, error)
}

func findTenant(ctx context.Context, store tenantLister, id string) (core.Tenant, error) {
	tenants, err := store.ListTenants(ctx)
	if err != nil {
		return core.Tenant{}, fmt.Errorf("list companies: %w", err)
	}
	for _, t := range tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Tenant{}, fmt.Errorf("unknown company %q", id)
}
