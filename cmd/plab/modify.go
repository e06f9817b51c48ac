package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prompt-lab/plab/internal/stream"
)

func modifyCmd() *cobra.Command {
	var sessionID int64
	var versionIdx int
	var files []string
	var logs string
	var save string
	var plain, docOnly, noSave bool

	cmd := &cobra.Command{
		Use:   "modify <prompt>",
		Short: "Modify a saved session's document with a follow-up prompt",
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

			uploads, err := a.loadUploads(files)
			if err != nil {
				return err
			}

			prompt := args[0]
			runStream := func(ctx context.Context, sink stream.Sink) error {
				return a.ctrl.Modify(ctx, prompt, logs, uploads, sink)
			}
			if err := runWithUI(a, prompt, plain, docOnly, runStream); err != nil {
				return err
			}

			if !noSave {
				id, err := a.saveSession(save)
				if err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				fmt.Fprintf(os.Stderr, "saved session %d (%s)\n", id, a.sess.Name())
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&sessionID, "session", "s", 0, "saved session ID (required)")
	cmd.Flags().IntVar(&versionIdx, "version", -1, "rewind to this version before modifying")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "attach a file (repeatable)")
	cmd.Flags().StringVar(&logs, "console-logs", "", "browser console output to include as context")
	cmd.Flags().StringVar(&save, "save", "", "rename the session on save")
	cmd.Flags().BoolVar(&plain, "plain", false, "plain output instead of the TUI")
	cmd.Flags().BoolVar(&docOnly, "document-only", false, "print only the document (implies --plain)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the result back to the session store")
	cmd.MarkFlagRequired("session")
	return cmd
}
