// Package session holds the in-memory state of one working session: the
// ordered version history produced by completed streams, the prompt-history
// projection sent back to the server on modification requests, and the
// binary asset set. Ordinary generation and modification only mutate this
// memory; nothing is durable until an explicit save.
package session

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prompt-lab/plab/internal/assets"
)

// VersionRecord is one completed generation or modification. It is never
// mutated after being appended to the history. The JSON tags fix the durable
// record shape.
type VersionRecord struct {
	Prompt       string `json:"prompt"`
	Analysis     string `json:"analysis"`
	Changes      string `json:"changes"`
	Instructions string `json:"instructions"`
	Document     string `json:"document"`
}

// Session is the active working session. It is constructed once per
// application instance and passed by reference to whatever drives the UI;
// there is no ambient shared state.
type Session struct {
	id      int64
	name    string
	history []VersionRecord
	prompts []string
	assets  *assets.Registry
	log     *zap.SugaredLogger
}

func New(reg *assets.Registry, log *zap.SugaredLogger) *Session {
	return &Session{assets: reg, log: log}
}

// AppendVersion pushes a completed record onto the history and extends the
// prompt projection with its prompt. Never fails.
func (s *Session) AppendVersion(rec VersionRecord) {
	s.history = append(s.history, rec)
	s.prompts = append(s.prompts, rec.Prompt)
}

// SelectVersion returns the record at index (0-based) and rewinds the prompt
// projection to [0, index]: continuing to modify from version k must not
// reference prompts from later versions.
func (s *Session) SelectVersion(index int) (VersionRecord, error) {
	if index < 0 || index >= len(s.history) {
		return VersionRecord{}, fmt.Errorf("version %d out of range (history has %d)", index+1, len(s.history))
	}
	if index+1 <= len(s.prompts) {
		s.prompts = s.prompts[:index+1]
	}
	return s.history[index], nil
}

// Latest returns the most recent version, if any.
func (s *Session) Latest() (VersionRecord, bool) {
	if len(s.history) == 0 {
		return VersionRecord{}, false
	}
	return s.history[len(s.history)-1], true
}

// History returns a copy of the ordered version history.
func (s *Session) History() []VersionRecord {
	out := make([]VersionRecord, len(s.history))
	copy(out, s.history)
	return out
}

// PromptHistory returns a copy of the prompt projection, the conversational
// context passed to the server on the next modification.
func (s *Session) PromptHistory() []string {
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

func (s *Session) Len() int                 { return len(s.history) }
func (s *Session) ID() int64                { return s.id }
func (s *Session) Name() string             { return s.name }
func (s *Session) Assets() *assets.Registry { return s.assets }

// EnsureID mints a fresh session id on the first save of a brand-new
// session; subsequent saves reuse it, making save an upsert by id.
func (s *Session) EnsureID(now time.Time) int64 {
	if s.id == 0 {
		s.id = now.UnixMilli()
	}
	return s.id
}

// SetName records the name the session was last saved under.
func (s *Session) SetName(name string) { s.name = name }

// Restore replaces the in-memory state with a loaded record's contents. All
// previous ephemeral asset references are released first, then a fresh
// reference is derived for each restored asset. An asset that fails to
// reconstruct is skipped with a warning; one bad asset must not block
// restoring the history.
func (s *Session) Restore(id int64, name string, history []VersionRecord, restored []assets.Asset) {
	s.assets.Clear()
	s.id = id
	s.name = name
	s.history = make([]VersionRecord, len(history))
	copy(s.history, history)
	s.prompts = s.prompts[:0]
	for _, rec := range s.history {
		s.prompts = append(s.prompts, rec.Prompt)
	}

	for _, a := range restored {
		if _, err := s.assets.Add(a); err != nil {
			s.log.Warnw("skipping asset that failed to restore", "fileName", a.FileName, "error", err)
		}
	}
}

// ResetNew clears the session back to brand-new: empty history, empty prompt
// projection, no id, all asset references released. Idempotent.
func (s *Session) ResetNew() {
	s.id = 0
	s.name = ""
	s.history = nil
	s.prompts = nil
	s.assets.Clear()
}

// HandleDeleted resets the session if the deleted durable id is the one it
// was loaded from, so the UI is never left pointing at a deleted record.
func (s *Session) HandleDeleted(id int64) {
	if id != 0 && id == s.id {
		s.ResetNew()
	}
}
