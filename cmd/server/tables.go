package main

import (
	"fmt"

	"github.com/dennisdiepolder/monti/supportdesk/internal/config"
	"github.com/dennisdiepolder/monti/supportdesk/internal/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Create the DynamoDB history tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			setupLogger(cfg)

			dynamoCfg := storage.LoadDynamoConfig()
			if dynamoCfg.Mode != storage.DynamoModeLocal && dynamoCfg.Mode != storage.DynamoModeAWS {
				return fmt.Errorf("DYNAMO_MODE must be local or aws, got %s", dynamoCfg.Mode)
			}

			client, err := storage.NewDynamoClient(cmd.Context(), dynamoCfg)
			if err != nil {
				return err
			}
			return storage.CreateTablesIfNotExist(cmd.Context(), client, dynamoCfg, log.Logger)
		},
	}
}
