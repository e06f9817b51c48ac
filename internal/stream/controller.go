// Package stream drives one logical request against the generation service:
// it owns the in-flight transport, feeds chunks through a fresh parser,
// handles the mid-stream restart sentinel, and publishes snapshots to a UI
// sink after every chunk. Only one multi-section stream runs per controller;
// starting another cancels the one in flight.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/prompt-lab/plab/internal/client"
	"github.com/prompt-lab/plab/internal/protocol"
	"github.com/prompt-lab/plab/internal/session"
)

// Sink receives UI projection updates from a running stream. Calls are made
// synchronously from the stream loop, strictly in chunk order; the last call
// before Done always reflects the finalized snapshot.
type Sink interface {
	// Region carries the current content of one non-empty section after a
	// chunk. Called again on every chunk while the section keeps growing.
	Region(sec protocol.Section, text string)
	// Document carries the code surface content, published only when it
	// actually changed so the editor caret is not clobbered by no-ops.
	Document(text string)
	// Append carries raw single-field chunks (explain mode), verbatim.
	Append(text string)
	// Restart signals the primary model failed and a fallback is starting
	// over: everything rendered so far must be discarded.
	Restart()
	// Done signals a clean end of stream with the finalized snapshot.
	Done(snap protocol.Snapshot)
	// StreamError reports a transport failure; rendered in place of content.
	StreamError(err error)
}

// Transport produces the chunk streams the controller consumes. *client.Client
// implements it; tests substitute their own.
type Transport interface {
	Generate(ctx context.Context, prompt string, files []client.Upload) (<-chan client.Chunk, error)
	Modify(ctx context.Context, prompt, currentCode, consoleLogs string, promptHistory []string, files []client.Upload) (<-chan client.Chunk, error)
	Explain(ctx context.Context, question, currentCode string) (<-chan client.Chunk, error)
}

var _ Transport = (*client.Client)(nil)

// Controller runs streams for one session. Construct one per application
// instance; it holds no ambient global state.
type Controller struct {
	client  Transport
	session *session.Session
	log     *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewController(c Transport, sess *session.Session, log *zap.SugaredLogger) *Controller {
	return &Controller{client: c, session: sess, log: log}
}

// Generate streams a brand-new document for prompt and, on clean
// completion, appends the result to the session history. Blocks until the
// stream ends, errors, or is cancelled.
func (c *Controller) Generate(ctx context.Context, prompt string, files []client.Upload, sink Sink) error {
	ctx = c.begin(ctx)
	chunks, err := c.client.Generate(ctx, prompt, files)
	if err != nil {
		sink.StreamError(err)
		return err
	}
	return c.runMultiSection(prompt, chunks, sink)
}

// Modify streams a modification of the session's latest document, carrying
// the prompt-history projection as conversational context.
func (c *Controller) Modify(ctx context.Context, prompt, consoleLogs string, files []client.Upload, sink Sink) error {
	current, ok := c.session.Latest()
	if !ok {
		err := errors.New("nothing to modify: session has no versions")
		sink.StreamError(err)
		return err
	}

	ctx = c.begin(ctx)
	chunks, err := c.client.Modify(ctx, prompt, current.Document, consoleLogs, c.session.PromptHistory(), files)
	if err != nil {
		sink.StreamError(err)
		return err
	}
	return c.runMultiSection(prompt, chunks, sink)
}

// Explain streams a free-form answer about the latest document. Chunks are
// appended verbatim to the sink; no version record is produced, and a
// restart sentinel, should one occur, renders as literal text.
func (c *Controller) Explain(ctx context.Context, question string, sink Sink) error {
	current, ok := c.session.Latest()
	if !ok {
		err := errors.New("nothing to explain: session has no versions")
		sink.StreamError(err)
		return err
	}

	ctx = c.begin(ctx)
	chunks, err := c.client.Explain(ctx, question, current.Document)
	if err != nil {
		sink.StreamError(err)
		return err
	}

	for ch := range chunks {
		if ch.Err != nil {
			return c.finishErr(ch.Err, sink)
		}
		sink.Append(ch.Text)
	}
	sink.Done(protocol.Snapshot{})
	return nil
}

// Cancel aborts the in-flight stream, if any. Silent by contract: a
// superseded or user-cancelled stream is not an error.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// begin cancels any prior stream and installs a fresh cancellation token.
// The token is replaced, never reused, so late chunks of a cancelled stream
// are simply never read.
func (c *Controller) begin(ctx context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, c.cancel = context.WithCancel(ctx)
	return ctx
}

func (c *Controller) runMultiSection(prompt string, chunks <-chan client.Chunk, sink Sink) error {
	parser := protocol.NewParser()
	lastDocument := ""

	for ch := range chunks {
		if ch.Err != nil {
			return c.finishErr(ch.Err, sink)
		}

		text := ch.Text
		// The sentinel may arrive mid-chunk, and more than once: each
		// occurrence throws away everything accumulated so far and the
		// remainder of the chunk starts the new attempt.
		for {
			idx := strings.Index(text, protocol.RestartSentinel)
			if idx < 0 {
				break
			}
			c.log.Warnw("primary model failed, fallback model restarting response")
			parser = protocol.NewParser()
			lastDocument = ""
			sink.Restart()
			text = strings.TrimPrefix(text[idx+len(protocol.RestartSentinel):], "\n")
		}

		parser.ProcessChunk(text)
		lastDocument = publish(parser.Peek(), lastDocument, sink)
	}

	snap := parser.Finalize()
	publish(snap, lastDocument, sink)

	c.session.AppendVersion(session.VersionRecord{
		Prompt:       prompt,
		Analysis:     snap.Analysis,
		Changes:      snap.Changes,
		Instructions: snap.Instructions,
		Document:     snap.Document,
	})
	sink.Done(snap)
	return nil
}

// publish pushes every non-empty region and, when it changed, the document
// code surface. Returns the document text last pushed.
func publish(snap protocol.Snapshot, lastDocument string, sink Sink) string {
	if snap.Analysis != "" {
		sink.Region(protocol.SectionAnalysis, snap.Analysis)
	}
	if snap.Changes != "" {
		sink.Region(protocol.SectionChanges, snap.Changes)
	}
	if snap.Instructions != "" {
		sink.Region(protocol.SectionInstructions, snap.Instructions)
	}
	if snap.Document != "" {
		sink.Region(protocol.SectionDocument, snap.Document)
	}
	if snap.Document != lastDocument {
		sink.Document(snap.Document)
		return snap.Document
	}
	return lastDocument
}

// finishErr routes a terminal transport error. Cancellation stays silent.
func (c *Controller) finishErr(err error, sink Sink) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	sink.StreamError(err)
	return err
}
