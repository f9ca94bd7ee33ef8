package tenantcmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	tenantsrepo "github.com/trimly-app/trimly-saas/domains/tenants/be/repo"
	tenantsservice "github.com/trimly-app/trimly-saas/domains/tenants/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// Command groups tenant registry helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant registry utilities (create, list, set-plan, set-status)",
	}

	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	_ = cmd.MarkPersistentFlagRequired("database-url")

	cmd.AddCommand(createCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(setPlanCommand())
	cmd.AddCommand(setStatusCommand())
	return cmd
}

func newTenantService(ctx context.Context, cmd *cobra.Command) (*tenantsservice.Service, func(), error) {
	databaseURL, err := cmd.Flags().GetString("database-url")
	if err != nil {
		return nil, nil, err
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("init pool: %w", err)
	}

	svc := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool))
	cleanup := func() { persistence.ClosePool(pool) }
	return svc, cleanup, nil
}

func createCommand() *cobra.Command {
	var (
		slug        string
		displayName string
		planType    string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := newTenantService(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := svc.Create(ctx, tenantsservice.CreateInput{
				Slug:        slug,
				DisplayName: strPtrOrNil(displayName),
				PlanType:    plan.PlanType(planType),
				CreatedBy:   uuid.Nil,
			})
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created tenant %s (%s) on plan %s\n", rec.Slug, rec.ID, rec.PlanType)
			return nil
		},
	}

	c.Flags().StringVar(&slug, "slug", "", "URL-safe tenant slug")
	c.Flags().StringVar(&displayName, "name", "", "Display name")
	c.Flags().StringVar(&planType, "plan", "free", "Plan type (free, pro)")
	_ = c.MarkFlagRequired("slug")

	return c
}

func listCommand() *cobra.Command {
	var (
		page     int
		pageSize int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, cleanup, err := newTenantService(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.List(ctx, tenantsservice.ListOptions{Page: page, PageSize: pageSize})
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			if len(result.Tenants) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tenants found.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tSTATUS\tPLAN\tCREATED_AT")
			for _, t := range result.Tenants {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.Slug, t.Status, t.PlanType, t.CreatedAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	c.Flags().IntVar(&page, "page", 1, "Page number")
	c.Flags().IntVar(&pageSize, "page-size", 50, "Page size")

	return c
}

func setPlanCommand() *cobra.Command {
	var planType string

	c := &cobra.Command{
		Use:   "set-plan <tenant-id>",
		Short: "Change a tenant's plan type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}

			svc, cleanup, err := newTenantService(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			pt := plan.PlanType(planType)
			rec, err := svc.Update(ctx, id, tenantsservice.UpdateInput{PlanType: &pt})
			if err != nil {
				return fmt.Errorf("update tenant plan: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s is now on plan %s\n", rec.Slug, rec.PlanType)
			return nil
		},
	}

	c.Flags().StringVar(&planType, "plan", "", "Plan type (free, pro)")
	_ = c.MarkFlagRequired("plan")

	return c
}

func setStatusCommand() *cobra.Command {
	var status string

	c := &cobra.Command{
		Use:   "set-status <tenant-id>",
		Short: "Change a tenant's status (active, disabled, pending)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}

			svc, cleanup, err := newTenantService(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			st := tenantsservice.StatusFromString(status)
			rec, err := svc.Update(ctx, id, tenantsservice.UpdateInput{Status: &st})
			if err != nil {
				return fmt.Errorf("update tenant status: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s is now %s\n", rec.Slug, rec.Status)
			return nil
		},
	}

	c.Flags().StringVar(&status, "status", "", "New status")
	_ = c.MarkFlagRequired("status")

	return c
}

func strPtrOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
