package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/prompt-lab/plab/internal/preview"
	"github.com/prompt-lab/plab/internal/stream"
	"github.com/prompt-lab/plab/internal/tui"
)

func generateCmd() *cobra.Command {
	var files []string
	var save string
	var plain, docOnly bool

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a new HTML visualization from a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			uploads, err := a.loadUploads(files)
			if err != nil {
				return err
			}

			prompt := args[0]
			runStream := func(ctx context.Context, sink stream.Sink) error {
				return a.ctrl.Generate(ctx, prompt, uploads, sink)
			}
			if err := runWithUI(a, prompt, plain, docOnly, runStream); err != nil {
				return err
			}

			if save != "" {
				id, err := a.saveSession(save)
				if err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				fmt.Fprintf(os.Stderr, "saved session %d (%s)\n", id, save)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "attach a file (repeatable)")
	cmd.Flags().StringVar(&save, "save", "", "save the session under this name")
	cmd.Flags().BoolVar(&plain, "plain", false, "plain output instead of the TUI")
	cmd.Flags().BoolVar(&docOnly, "document-only", false, "print only the document (implies --plain)")
	return cmd
}

// runWithUI runs one multi-section stream behind either the TUI or a plain
// sink, picking the TUI only on a real terminal. The TUI path also serves a
// live preview of the finished document.
func runWithUI(a *app, title string, plain, docOnly bool, start func(context.Context, stream.Sink) error) error {
	ctx := context.Background()

	if plain || docOnly || !term.IsTerminal(int(os.Stdout.Fd())) {
		sink := &tui.PlainSink{Out: os.Stdout, DocumentOnly: docOnly}
		return start(ctx, sink)
	}

	srv := preview.New(a.reg, a.log)
	url, err := srv.Start(a.cfg.PreviewAddr)
	if err != nil {
		a.log.Warnw("preview server unavailable", "err", err)
		url = ""
	} else {
		defer srv.Close()
	}

	return tui.Run(tui.Options{
		Title:      title,
		PreviewURL: url,
		Cancel:     a.ctrl.Cancel,
		Start: func(sink stream.Sink) error {
			err := start(ctx, sink)
			if err == nil && url != "" {
				if latest, ok := a.sess.Latest(); ok {
					srv.SetDocument(latest.Document)
				}
			}
			return err
		},
	})
}
