package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/prompt-lab/plab/internal/preview"
)

func previewCmd() *cobra.Command {
	var versionIdx int

	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Serve a saved session's document on a local preview server",
		Long: `Serve the document of a saved session over loopback HTTP. Asset
references inside the document resolve against the session's stored files.
Runs until interrupted.`,
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

			srv := preview.New(a.reg, a.log)
			srv.SetDocument(doc)
			url, err := srv.Start(a.cfg.PreviewAddr)
			if err != nil {
				return err
			}
			defer srv.Close()

			if err := clipboard.WriteAll(url); err == nil {
				fmt.Printf("Serving %s (copied to clipboard), Ctrl-C to stop\n", url)
			} else {
				fmt.Printf("Serving %s, Ctrl-C to stop\n", url)
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}

	cmd.Flags().IntVar(&versionIdx, "version", -1, "serve this version instead of the latest")
	return cmd
}
