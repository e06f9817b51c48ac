// Package assets holds the binary assets of the active session and hands out
// ephemeral references for them: locally resolvable, revocable URL paths that
// generated documents can point at without a network round trip.
package assets

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// RefPrefix is the URL path prefix under which the preview server resolves
// ephemeral references.
const RefPrefix = "/assets/ref/"

// Asset is one named binary payload belonging to a session. FileName is the
// unique key; generated documents reference it as "assets/<FileName>".
type Asset struct {
	FileName string `json:"fileName"`
	Data     []byte `json:"data"`
	MimeType string `json:"type"`
}

// Registry owns the active session's asset set and the ephemeral-reference
// map derived from it. Every reference issued is revoked exactly once: on
// asset removal, on Clear, or by being replaced when the same file name is
// added again. The preview server reads from its own goroutine, hence the
// lock.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Asset
	refs   map[string]string // token -> fileName
	tokens map[string]string // fileName -> token
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Asset),
		refs:   make(map[string]string),
		tokens: make(map[string]string),
	}
}

// Add registers an asset and returns its ephemeral reference path. Adding a
// file name that already exists replaces the payload and revokes the old
// reference. An empty MimeType is sniffed from the extension, then from the
// payload bytes.
func (r *Registry) Add(a Asset) (string, error) {
	if a.FileName == "" {
		return "", fmt.Errorf("asset has no file name")
	}
	if a.MimeType == "" {
		a.MimeType = detectMime(a.FileName, a.Data)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.tokens[a.FileName]; ok {
		delete(r.refs, old)
	} else {
		r.order = append(r.order, a.FileName)
	}

	token := uuid.NewString()
	r.byName[a.FileName] = a
	r.refs[token] = a.FileName
	r.tokens[a.FileName] = token
	return RefPrefix + token, nil
}

// Remove drops an asset and revokes its reference. Removing an unknown name
// is a no-op, so a reference is never released twice.
func (r *Registry) Remove(fileName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[fileName]
	if !ok {
		return
	}
	delete(r.tokens, fileName)
	delete(r.refs, token)
	delete(r.byName, fileName)
	for i, n := range r.order {
		if n == fileName {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Clear drops every asset and revokes every reference. Used on session
// switch and new-session.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.byName = make(map[string]Asset)
	r.refs = make(map[string]string)
	r.tokens = make(map[string]string)
}

// Resolve looks up the asset behind an ephemeral reference token. A revoked
// token resolves to nothing.
func (r *Registry) Resolve(token string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.refs[token]
	if !ok {
		return Asset{}, false
	}
	a, ok := r.byName[name]
	return a, ok
}

// RefPath returns the current ephemeral reference path for a file name.
func (r *Registry) RefPath(fileName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[fileName]
	if !ok {
		return "", false
	}
	return RefPrefix + token, true
}

// Export returns the asset set in insertion order, for persistence.
func (r *Registry) Export() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Asset, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Len reports the number of registered assets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func detectMime(fileName string, data []byte) string {
	if mt := mime.TypeByExtension(filepath.Ext(fileName)); mt != "" {
		return mt
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "application/octet-stream"
}
