package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	sqlassets "github.com/trimly-app/trimly-saas/database"
	tenantsrepo "github.com/trimly-app/trimly-saas/domains/tenants/be/repo"
	tenantsservice "github.com/trimly-app/trimly-saas/domains/tenants/be/service"
	usersrepo "github.com/trimly-app/trimly-saas/domains/users/be/repo"
	usersservice "github.com/trimly-app/trimly-saas/domains/users/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources (schema, first tenant, owner user)",
	}

	cmd.AddCommand(schemaCommand())
	cmd.AddCommand(platformCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "schema",
		Short: "Apply the embedded schema DDL (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.Bootstrap(ctx, pool, sqlassets.All()...); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Schema applied.")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}

func platformCommand() *cobra.Command {
	var (
		databaseURL   string
		tenantSlug    string
		tenantName    string
		ownerEmail    string
		ownerFullName string
	)

	c := &cobra.Command{
		Use:   "platform",
		Short: "Bootstrap the first tenant and its owner user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.Bootstrap(ctx, pool, sqlassets.All()...); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}

			tenantSvc := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool))

			rec, err := tenantSvc.FindBySlug(ctx, tenantSlug)
			if errors.Is(err, tenantsservice.ErrNotFound) {
				rec, err = tenantSvc.Create(ctx, tenantsservice.CreateInput{
					Slug:        tenantSlug,
					DisplayName: strPtrOrNil(tenantName),
					CreatedBy:   uuid.Nil,
				})
			}
			if err != nil {
				return fmt.Errorf("ensure tenant: %w", err)
			}

			space, err := tenantSvc.ResolveSpace(ctx, rec.ID)
			if err != nil {
				return fmt.Errorf("resolve tenant space: %w", err)
			}

			userSvc := usersservice.New(usersrepo.NewPostgresRepository(pool))
			tenantCtx := tenant.WithSpace(ctx, space)

			owner, err := ensureOwnerUser(tenantCtx, userSvc, ownerEmail, ownerFullName)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Bootstrap complete. Tenant: %s (%s) | Owner: %s (%s)\n",
				rec.Slug, rec.ID, owner.Email, owner.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&tenantSlug, "tenant-slug", "demo", "Slug for the first tenant")
	c.Flags().StringVar(&tenantName, "tenant-name", "Demo Shop", "Display name for the first tenant")
	c.Flags().StringVar(&ownerEmail, "owner-email", "", "Owner user email")
	c.Flags().StringVar(&ownerFullName, "owner-full-name", "", "Owner user full name")

	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("owner-email")
	_ = c.MarkFlagRequired("owner-full-name")

	return c
}

// ensureOwnerUser performs a check-or-create for the owner inside the tenant
// space.
func ensureOwnerUser(ctx context.Context, userSvc *usersservice.Service, email, fullName string) (usersservice.User, error) {
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" {
		return usersservice.User{}, fmt.Errorf("owner email and full name are required")
	}

	user, err := userSvc.Create(ctx, usersservice.CreateInput{
		Email:    email,
		FullName: fullName,
		Role:     usersservice.RoleOwner,
	})
	if errors.Is(err, usersservice.ErrConflict) {
		existing, findErr := userSvc.FindByEmail(ctx, email)
		if findErr != nil {
			return usersservice.User{}, fmt.Errorf("lookup owner user: %w", findErr)
		}
		return existing, nil
	}
	if err != nil {
		return usersservice.User{}, fmt.Errorf("create owner user: %w", err)
	}
	return user, nil
}

func strPtrOrNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
