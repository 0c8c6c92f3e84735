package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperdesk/paperdesk/config"
	srv "github.com/paperdesk/paperdesk/internal/server"
)

func main() {
	var root = &cobra.Command{Use: "paperdesk"}

	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serveAddr == "" {
				serveAddr = os.Getenv("PAPERDESK_HTTP_ADDR")
			}
			return srv.Run(serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadConfig("")
			return srv.Migrate(migDir, "", direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	var reindex = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full-text index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := srv.Reindex(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d documents\n", n)
			return nil
		},
	}

	var memoID string
	var rebuild = &cobra.Command{
		Use:   "rebuild-relations",
		Short: "Recompute memo relations (all memos, or one with --memo)",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := srv.RebuildRelations(context.Background(), memoID)
			if err != nil {
				return err
			}
			if memoID != "" {
				fmt.Printf("wrote %d relations for memo %s\n", n, memoID)
			} else {
				fmt.Printf("rebuilt relations for %d memos\n", n)
			}
			return nil
		},
	}
	rebuild.Flags().StringVar(&memoID, "memo", "", "rebuild a single memo's relations")

	root.AddCommand(serve, migrate, reindex, rebuild)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
