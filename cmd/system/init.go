package system

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/hairai_backend/pkg/database"
	"github.com/Alijeyrad/hairai_backend/pkg/logs"
)

func NewInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the application and Casbin databases if missing",
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

			if err := database.EnsureDatabases(cmd.Context(), cfg, logger); err != nil {
				return fmt.Errorf("failed to initialize databases: %w", err)
			}
			fmt.Println("Databases ready.")
			return nil
		},
	}
}
