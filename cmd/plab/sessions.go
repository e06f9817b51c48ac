package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/prompt-lab/plab/internal/config"
	"github.com/prompt-lab/plab/internal/logging"
	"github.com/prompt-lab/plab/internal/store"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, inspect, and delete saved sessions",
	}
	cmd.AddCommand(sessionsListCmd())
	cmd.AddCommand(sessionsShowCmd())
	cmd.AddCommand(sessionsDeleteCmd())
	return cmd
}

func openStore() (*store.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return store.Open(cfg.DBPath, logging.New(verbose))
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			recs, err := db.List()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(os.Stderr, "No saved sessions.")
				return nil
			}

			fmt.Printf("%-14s %-24s %-9s %-7s %s\n", "ID", "NAME", "VERSIONS", "ASSETS", "SAVED")
			for _, r := range recs {
				name := r.Name
				if name == "" {
					name = "-"
				}
				fmt.Printf("%-14d %-24s %-9d %-7d %s\n",
					r.ID,
					runewidth.Truncate(name, 24, "..."),
					len(r.History),
					len(r.Assets),
					r.SavedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			return nil
		},
	}
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the version history of a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			rec, err := db.Get(id)
			if err != nil {
				return err
			}

			name := rec.Name
			if name == "" {
				name = "-"
			}
			fmt.Printf("Session %d (%s), saved %s\n", rec.ID, name,
				rec.SavedAt.Local().Format("2006-01-02 15:04"))

			for i, v := range rec.History {
				fmt.Printf("\n[%d] %s\n", i, oneLine(v.Prompt))
				if v.Changes != "" {
					fmt.Printf("    changes: %s\n", oneLine(v.Changes))
				}
				fmt.Printf("    document: %d bytes\n", len(v.Document))
			}

			if len(rec.Assets) > 0 {
				fmt.Println("\nAssets:")
				for _, a := range rec.Assets {
					fmt.Printf("  %s (%s, %d bytes)\n", a.FileName, a.MimeType, len(a.Data))
				}
			}
			return nil
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Delete(id); err != nil {
				return err
			}
			fmt.Printf("Deleted session %d\n", id)
			return nil
		},
	}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return runewidth.Truncate(s, 72, "...")
}
