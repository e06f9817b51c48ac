package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prompt-lab/plab/internal/tui"
)

func explainCmd() *cobra.Command {
	var sessionID int64
	var versionIdx int

	cmd := &cobra.Command{
		Use:   "explain <question>",
		Short: "Ask a question about a saved session's document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.restoreSession(sessionID); err != nil {
				return err
			}
			if versionIdx >= 0 {
				if _, err := a.sess.SelectVersion(versionIdx); err != nil {
					return err
				}
			}

			// Answers stream as free text; print them as they arrive.
			sink := &tui.PlainSink{Out: os.Stdout}
			if err := a.ctrl.Explain(context.Background(), args[0], sink); err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Int64VarP(&sessionID, "session", "s", 0, "saved session ID (required)")
	cmd.Flags().IntVar(&versionIdx, "version", -1, "ask about this version instead of the latest")
	cmd.MarkFlagRequired("session")
	return cmd
}
