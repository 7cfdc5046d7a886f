package main

import (
	"errors"
	"fmt"

	"github.com/alexbotov/slotsrv/internal/database"
	"github.com/alexbotov/slotsrv/internal/slotconfig"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load machine definitions from YAML into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled {
				return errors.New("seed needs database.enabled")
			}
			if file == "" {
				file = cfg.Machines.File
			}
			log := newLogger(cfg)
			defer log.Sync()

			fs, err := slotconfig.LoadFile(file)
			if err != nil {
				return err
			}
			db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			repo := slotconfig.NewRepository(db.DB)
			for _, def := range fs.Definitions() {
				id, err := repo.Save(cmd.Context(), def)
				if err != nil {
					return fmt.Errorf("machine %q: %w", def.Config.Name, err)
				}
				log.Info("machine seeded",
					zap.String("name", def.Config.Name),
					zap.Int64("file_id", def.Config.ID),
					zap.Int64("id", id))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Machines YAML (default machines.file from config)")
	return cmd
}
