package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var out string
	var versionIdx int

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a saved session as a zip archive",
		Long: `Ask the server to bundle the session's document and assets into a zip
archive (index.html plus an assets/ directory) and write it to disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session ID: %s", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.restoreSession(id); err != nil {
				return err
			}

			var doc string
			if versionIdx >= 0 {
				v, err := a.sess.SelectVersion(versionIdx)
				if err != nil {
					return err
				}
				doc = v.Document
			} else {
				v, ok := a.sess.Latest()
				if !ok {
					return fmt.Errorf("session %d has no versions", id)
				}
				doc = v.Document
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := a.api.Export(context.Background(), doc, a.uploadsFromAssets(), f); err != nil {
				os.Remove(out)
				return fmt.Errorf("export: %w", err)
			}
			fmt.Printf("Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "visualization.zip", "output zip path")
	cmd.Flags().IntVar(&versionIdx, "version", -1, "export this version instead of the latest")
	return cmd
}
