package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = "[ANALYSIS]\n" +
	"The user wants a red square. I will use a styled div.\n" +
	"[END_ANALYSIS]\n" +
	"[CHANGES]\n" +
	"Initial generation.\n" +
	"[END_CHANGES]\n" +
	"[INSTRUCTIONS]\n" +
	"There is no interaction.\n" +
	"[END_INSTRUCTIONS]\n" +
	"<!DOCTYPE html>\n" +
	"<html><body><div class=\"square\"></div></body></html>\n"

func parseAll(t *testing.T, chunks ...string) Snapshot {
	t.Helper()
	p := NewParser()
	for _, c := range chunks {
		p.ProcessChunk(c)
	}
	return p.Finalize()
}

func TestParseWellFormedResponse(t *testing.T) {
	snap := parseAll(t, sampleResponse)

	assert.Equal(t, "The user wants a red square. I will use a styled div.", snap.Analysis)
	assert.Equal(t, "Initial generation.", snap.Changes)
	assert.Equal(t, "There is no interaction.", snap.Instructions)
	assert.Equal(t, "<!DOCTYPE html>\n<html><body><div class=\"square\"></div></body></html>", snap.Document)
}

func TestChunkBoundaryInvariance(t *testing.T) {
	want := parseAll(t, sampleResponse)

	// Two-way splits at every byte offset.
	for i := 0; i <= len(sampleResponse); i++ {
		got := parseAll(t, sampleResponse[:i], sampleResponse[i:])
		require.Equal(t, want, got, "split at offset %d", i)
	}

	// N-way split, one byte at a time: the worst case the transport can do.
	p := NewParser()
	for i := 0; i < len(sampleResponse); i++ {
		p.ProcessChunk(sampleResponse[i : i+1])
	}
	assert.Equal(t, want, p.Finalize())
}

func TestPeekIsIdempotent(t *testing.T) {
	p := NewParser()
	p.ProcessChunk("[ANALYSIS]\npartial thought")

	first := p.Peek()
	second := p.Peek()
	assert.Equal(t, first, second)

	// The pending tail "partial thought" has no newline yet, so it must not
	// appear in the peeked snapshot.
	assert.Equal(t, "", first.Analysis)

	// Peeking must not change what the rest of the stream produces.
	p.ProcessChunk(" finished\n[END_ANALYSIS]\n")
	snap := p.Finalize()
	assert.Equal(t, "partial thought finished", snap.Analysis)
}

func TestFallbackToDocument(t *testing.T) {
	input := "hello\nthis response has no markers at all\nworld"
	snap := parseAll(t, input)

	assert.Equal(t, input, snap.Document)
	assert.Empty(t, snap.Analysis)
	assert.Empty(t, snap.Changes)
	assert.Empty(t, snap.Instructions)
}

func TestDoctypeLineOpensDocument(t *testing.T) {
	snap := parseAll(t, "<!DOCTYPE html>\n<html></html>\n")
	assert.Equal(t, "<!DOCTYPE html>\n<html></html>", snap.Document)
}

func TestMarkerSplitAcrossChunks(t *testing.T) {
	snap := parseAll(t, "[ANAL", "YSIS]\nfoo\n[END_ANALY", "SIS]\n")
	assert.Equal(t, "foo", snap.Analysis)
	assert.Empty(t, snap.Document)
}

func TestEndInstructionsWithoutOpening(t *testing.T) {
	// The server may skip [INSTRUCTIONS] entirely; the close marker still
	// transitions into the document.
	snap := parseAll(t, "[END_INSTRUCTIONS]\n<!DOCTYPE html>\n<p>hi</p>\n")
	assert.Equal(t, "<!DOCTYPE html>\n<p>hi</p>", snap.Document)
	assert.Empty(t, snap.Instructions)
}

func TestMarkerMustBeWholeLine(t *testing.T) {
	snap := parseAll(t, "[ANALYSIS]\nsee [END_ANALYSIS] for details\n[END_ANALYSIS]\n")
	assert.Equal(t, "see [END_ANALYSIS] for details", snap.Analysis)
}

func TestIndentedMarkerStillMatches(t *testing.T) {
	snap := parseAll(t, "  [ANALYSIS]  \nfoo\n\t[END_ANALYSIS]\n")
	assert.Equal(t, "foo", snap.Analysis)
}

func TestFencedDocumentUnwrapped(t *testing.T) {
	snap := parseAll(t, "[END_INSTRUCTIONS]\n```html\n<!DOCTYPE html>\n<html></html>\n```\n")
	assert.Equal(t, "<!DOCTYPE html>\n<html></html>", snap.Document)
}

func TestTailAfterClosedSectionIsDropped(t *testing.T) {
	// A dangling unterminated fragment after [END_ANALYSIS] belongs to no
	// open section and is not misattributed anywhere.
	snap := parseAll(t, "[ANALYSIS]\nfoo\n[END_ANALYSIS]\ndangling")
	assert.Equal(t, "foo", snap.Analysis)
	assert.Empty(t, snap.Document)
}

func TestReset(t *testing.T) {
	p := NewParser()
	p.ProcessChunk("[ANALYSIS]\nfoo\n")
	p.Reset()
	snap := p.Finalize()
	assert.Equal(t, Snapshot{}, snap)
}

func TestFinalizeFlushesTailIntoOpenSection(t *testing.T) {
	snap := parseAll(t, "[END_INSTRUCTIONS]\n<!DOCTYPE html>\n<p>no trailing newline</p>")
	assert.Equal(t, "<!DOCTYPE html>\n<p>no trailing newline</p>", snap.Document)
}
