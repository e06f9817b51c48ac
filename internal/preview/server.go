// Package preview serves the active document over loopback HTTP so a
// browser can render it. Asset paths inside the document are rewritten to
// their ephemeral references, which the same server resolves back to the
// in-memory payloads; nothing touches the network or the disk.
package preview

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/prompt-lab/plab/internal/assets"
)

type Server struct {
	reg *assets.Registry
	log *zap.SugaredLogger

	mu  sync.RWMutex
	doc string

	srv *http.Server
	ln  net.Listener
}

func New(reg *assets.Registry, log *zap.SugaredLogger) *Server {
	return &Server{reg: reg, log: log}
}

// SetDocument swaps the document being served. Safe to call while serving.
func (s *Server) SetDocument(doc string) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
}

// Start begins serving on addr ("127.0.0.1:0" picks an ephemeral port) and
// returns the base URL. Serving runs on its own goroutine until Close.
func (s *Server) Start(addr string) (string, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("preview listen: %w", err)
	}
	s.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDocument)
	mux.HandleFunc(assets.RefPrefix, s.handleAsset)
	s.srv = &http.Server{Handler: mux}

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Warnw("preview server stopped", "error", err)
		}
	}()

	return "http://" + ln.Addr().String(), nil
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	if s.ln == nil {
		return ""
	}
	return "http://" + s.ln.Addr().String()
}

func (s *Server) Close() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, s.reg.Rewrite(doc))
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, assets.RefPrefix)
	a, ok := s.reg.Resolve(token)
	if !ok {
		// Revoked or never issued.
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.MimeType)
	w.Write(a.Data)
}
