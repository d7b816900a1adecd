package system

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/hairai_backend/pkg/authorize"
	"github.com/Alijeyrad/hairai_backend/pkg/database"
	"github.com/Alijeyrad/hairai_backend/pkg/logs"
)

func NewMigrateCommand() *cobra.Command {
	var skipPolicies bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the analysis schema and seed RBAC policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, flush, err := logs.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer flush()

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			if timeout <= 0 {
				timeout = time.Minute
			}
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			// application db
			fmt.Println("Running Migrations For Application DB.")
			db, err := database.NewSQLX(cfg.Database)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if err := database.Migrate(ctx, db, logger); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			if skipPolicies {
				fmt.Println("Migrations executed successfully.")
				return nil
			}

			// casbin db
			fmt.Println("Seeding Policies In Casbin DB.")
			enforcer, cleanup, err := authorize.NewEnforcer(ctx, cfg.Authorization.CasbinModelPath, database.NewDSN(cfg.CasbinDatabase), logger)
			if err != nil {
				return fmt.Errorf("failed to create enforcer: %w", err)
			}
			defer cleanup(context.Background())

			auth, err := authorize.NewAuthorization(enforcer)
			if err != nil {
				return fmt.Errorf("failed to create authorization: %w", err)
			}

			if err := authorize.SeedDefaultPolicies(ctx, auth, logger); err != nil {
				return fmt.Errorf("failed to seed policies: %w", err)
			}

			fmt.Println("Migrations executed successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPolicies, "skip-policies", false, "Only apply the schema, do not touch casbin policies")

	return cmd
}
