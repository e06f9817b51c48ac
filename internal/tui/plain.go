package tui

import (
	"fmt"
	"io"

	"github.com/prompt-lab/plab/internal/protocol"
)

// PlainSink renders a stream to a plain writer for non-TTY use. Region
// updates carry cumulative text, so sections are held back and printed once
// from the final snapshot; explain chunks stream through verbatim.
type PlainSink struct {
	Out io.Writer
	// DocumentOnly suppresses the prose sections, leaving only the document
	// on stdout so it can be piped into a file.
	DocumentOnly bool
}

func (s *PlainSink) Region(protocol.Section, string) {}

func (s *PlainSink) Document(string) {}

func (s *PlainSink) Append(text string) {
	fmt.Fprint(s.Out, text)
}

func (s *PlainSink) Restart() {
	if !s.DocumentOnly {
		fmt.Fprintln(s.Out, "-- fallback model restarting response --")
	}
}

func (s *PlainSink) Done(snap protocol.Snapshot) {
	if s.DocumentOnly {
		if snap.Document != "" {
			fmt.Fprintln(s.Out, snap.Document)
		}
		return
	}
	for _, part := range []struct {
		name string
		text string
	}{
		{"ANALYSIS", snap.Analysis},
		{"CHANGES", snap.Changes},
		{"INSTRUCTIONS", snap.Instructions},
	} {
		if part.text == "" {
			continue
		}
		fmt.Fprintf(s.Out, "== %s ==\n%s\n\n", part.name, part.text)
	}
	if snap.Document != "" {
		fmt.Fprintln(s.Out, snap.Document)
	}
}

func (s *PlainSink) StreamError(err error) {
	fmt.Fprintf(s.Out, "stream error: %v\n", err)
}
