package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/prompt-lab/plab/internal/client"
	"github.com/prompt-lab/plab/internal/config"
	"github.com/prompt-lab/plab/internal/logging"
	"github.com/prompt-lab/plab/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, server reachability, and session store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log := logging.New(verbose)

			fmt.Println("=== Config ===")
			fmt.Printf("  Server:  %s\n", cfg.ServerURL)
			fmt.Printf("  DB:      %s\n", cfg.DBPath)
			fmt.Printf("  Preview: %s\n", cfg.PreviewAddr)

			fmt.Println("\n=== Server ===")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.New(cfg.ServerURL, log).Health(ctx); err != nil {
				fmt.Printf("  Status: UNREACHABLE (%v)\n", err)
			} else {
				fmt.Println("  Status: OK")
			}

			fmt.Println("\n=== Session store ===")
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created on first save)")
				return nil
			}

			db, err := store.Open(cfg.DBPath, log)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			count, err := db.Count()
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			fmt.Printf("  Sessions: %d\n", count)

			if info, err := os.Stat(cfg.DBPath); err == nil {
				fmt.Printf("  Size: %.1f MB\n", float64(info.Size())/1024/1024)
			}
			fmt.Println("  Status: OK")
			return nil
		},
	}
}
