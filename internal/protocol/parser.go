// Package protocol decodes the sectioned text stream produced by the
// generation endpoints. Responses carry four logical regions delimited by
// literal marker lines:
//
//	[ANALYSIS] ... [END_ANALYSIS]
//	[CHANGES] ... [END_CHANGES]
//	[INSTRUCTIONS] ... [END_INSTRUCTIONS]
//	<document text, no closing marker, runs to end of stream>
//
// Chunks arrive at arbitrary byte boundaries, so a marker literal may be
// split across chunks. The parser therefore only acts on complete lines and
// buffers the unterminated suffix of its input until the next newline.
package protocol

import "strings"

// Section identifies which response region is currently receiving content.
type Section int

const (
	SectionNone Section = iota
	SectionAnalysis
	SectionChanges
	SectionInstructions
	SectionDocument
)

// String returns the display name of the section.
func (s Section) String() string {
	switch s {
	case SectionAnalysis:
		return "analysis"
	case SectionChanges:
		return "changes"
	case SectionInstructions:
		return "instructions"
	case SectionDocument:
		return "document"
	}
	return "none"
}

// RestartSentinel is emitted mid-stream by the server when the primary model
// failed and a fallback model is restarting the response from scratch. It is
// handled above the parser (see the stream package): the parser itself never
// sees it.
const RestartSentinel = "[STREAM_RESTART]"

// docPrologue marks the start of document content for responses that skip
// the section markers entirely.
const docPrologue = "<!DOCTYPE"

// markerTransitions maps a marker line to the section it opens. There is no
// explicit document-opening marker: [END_INSTRUCTIONS] transitions straight
// into the document, and it does so regardless of the prior state, matching
// the server's observed output even when [INSTRUCTIONS] never appeared.
var markerTransitions = map[string]Section{
	"[ANALYSIS]":         SectionAnalysis,
	"[END_ANALYSIS]":     SectionNone,
	"[CHANGES]":          SectionChanges,
	"[END_CHANGES]":      SectionNone,
	"[INSTRUCTIONS]":     SectionInstructions,
	"[END_INSTRUCTIONS]": SectionDocument,
}

// Snapshot is a read-only view of the four region buffers. Each field is
// whitespace-trimmed; Document additionally has a ```html fence wrapper
// stripped if the model emitted one.
type Snapshot struct {
	Analysis     string
	Changes      string
	Instructions string
	Document     string
}

// Parser is the incremental section decoder. One instance serves one stream
// attempt; a restart allocates a fresh one.
type Parser struct {
	section Section
	opened  bool // any section entered at least once

	// pendingTail is the input suffix not yet terminated by a newline.
	pendingTail string

	// held collects lines seen before any section opened, so that a
	// marker-free response can still become the document at Finalize.
	held strings.Builder

	analysis     strings.Builder
	changes      strings.Builder
	instructions strings.Builder
	document     strings.Builder
}

func NewParser() *Parser {
	return &Parser{}
}

// ProcessChunk feeds one transport chunk into the parser. Every complete
// line is consumed immediately; the trailing fragment (if the chunk did not
// end in a newline) is carried over to the next call.
func (p *Parser) ProcessChunk(chunk string) {
	p.pendingTail += chunk
	lines := strings.Split(p.pendingTail, "\n")
	p.pendingTail = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		p.consumeLine(line)
	}
}

func (p *Parser) consumeLine(line string) {
	trimmed := strings.TrimSpace(line)

	if next, ok := markerTransitions[trimmed]; ok {
		p.section = next
		if next != SectionNone {
			p.opened = true
		}
		return // markers are control tokens, never body text
	}

	if p.section == SectionNone {
		if strings.HasPrefix(trimmed, docPrologue) {
			// Response began directly with document content.
			p.section = SectionDocument
			p.opened = true
			p.document.WriteString(line)
			p.document.WriteByte('\n')
			return
		}
		p.held.WriteString(line)
		p.held.WriteByte('\n')
		return
	}

	buf := p.buffer(p.section)
	buf.WriteString(line)
	buf.WriteByte('\n')
}

func (p *Parser) buffer(s Section) *strings.Builder {
	switch s {
	case SectionAnalysis:
		return &p.analysis
	case SectionChanges:
		return &p.changes
	case SectionInstructions:
		return &p.instructions
	default:
		return &p.document
	}
}

// Peek returns a snapshot of everything parsed so far. It is idempotent and
// never consumes the pending tail, so it is safe to call after every chunk.
func (p *Parser) Peek() Snapshot {
	return p.snapshot()
}

// Finalize flushes the pending tail after end-of-stream and returns the
// final snapshot. The tail goes into the currently open section; if no
// section was ever opened the whole accumulation becomes the document, so a
// plain response with no markers degrades to "the response is the document".
// Call it once per stream.
func (p *Parser) Finalize() Snapshot {
	switch {
	case p.section != SectionNone:
		p.buffer(p.section).WriteString(p.pendingTail)
	case !p.opened:
		p.document.WriteString(p.held.String())
		p.document.WriteString(p.pendingTail)
	}
	p.pendingTail = ""
	return p.snapshot()
}

// Reset returns the parser to its initial empty state.
func (p *Parser) Reset() {
	*p = Parser{}
}

func (p *Parser) snapshot() Snapshot {
	return Snapshot{
		Analysis:     strings.TrimSpace(p.analysis.String()),
		Changes:      strings.TrimSpace(p.changes.String()),
		Instructions: strings.TrimSpace(p.instructions.String()),
		Document:     cleanDocument(p.document.String()),
	}
}

// cleanDocument trims the document and unwraps a fenced code block if the
// model wrapped its output in one.
func cleanDocument(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```html") {
		s = strings.TrimPrefix(s, "```html")
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}
