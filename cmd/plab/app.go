package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/prompt-lab/plab/internal/assets"
	"github.com/prompt-lab/plab/internal/client"
	"github.com/prompt-lab/plab/internal/config"
	"github.com/prompt-lab/plab/internal/logging"
	"github.com/prompt-lab/plab/internal/session"
	"github.com/prompt-lab/plab/internal/store"
	"github.com/prompt-lab/plab/internal/stream"
)

// app wires the per-invocation object graph: one registry, one session, one
// controller against the configured server.
type app struct {
	cfg  *config.Config
	log  *zap.SugaredLogger
	reg  *assets.Registry
	sess *session.Session
	api  *client.Client
	ctrl *stream.Controller
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(verbose)
	reg := assets.NewRegistry()
	sess := session.New(reg, log)
	api := client.New(cfg.ServerURL, log)

	return &app{
		cfg:  cfg,
		log:  log,
		reg:  reg,
		sess: sess,
		api:  api,
		ctrl: stream.NewController(api, sess, log),
	}, nil
}

// loadUploads reads the given files from disk, registers each as a session
// asset, and returns them as upload parts for the request.
func (a *app) loadUploads(paths []string) ([]client.Upload, error) {
	var uploads []client.Upload
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		name := filepath.Base(p)
		if _, err := a.reg.Add(assets.Asset{FileName: name, Data: data}); err != nil {
			return nil, fmt.Errorf("register attachment %s: %w", name, err)
		}
		uploads = append(uploads, client.Upload{FileName: name, Data: data})
	}
	return uploads, nil
}

// saveSession persists the current session under name, minting an ID on
// first save and overwriting the existing row on later ones.
func (a *app) saveSession(name string) (int64, error) {
	if a.sess.Len() == 0 {
		return 0, fmt.Errorf("nothing to save: session has no versions")
	}
	if name == "" && a.sess.Name() == "" {
		return 0, fmt.Errorf("session needs a name: pass --save <name>")
	}

	db, err := store.Open(a.cfg.DBPath, a.log)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	now := time.Now()
	id := a.sess.EnsureID(now)
	if name != "" {
		a.sess.SetName(name)
	}
	err = db.Save(store.Record{
		ID:      id,
		Name:    a.sess.Name(),
		History: a.sess.History(),
		Assets:  a.reg.Export(),
		SavedAt: now,
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// restoreSession loads a saved session into the live one, replacing any
// in-memory state.
func (a *app) restoreSession(id int64) error {
	db, err := store.Open(a.cfg.DBPath, a.log)
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := db.Get(id)
	if err != nil {
		return err
	}
	a.sess.Restore(rec.ID, rec.Name, rec.History, rec.Assets)
	return nil
}

// uploadsFromAssets mirrors the registered assets as upload parts, used when
// re-sending a restored session's files.
func (a *app) uploadsFromAssets() []client.Upload {
	var uploads []client.Upload
	for _, as := range a.reg.Export() {
		uploads = append(uploads, client.Upload{FileName: as.FileName, Data: as.Data})
	}
	return uploads
}
