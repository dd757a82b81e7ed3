// Package workspace owns the request-scoped directory tree a mashup run
// writes its intermediate files into.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is a private directory with a download area and an audio area.
// It belongs to exactly one run and is removed when that run ends.
type Workspace struct {
	ID       string
	Root     string
	Download string
	Audio    string
}

// New creates a fresh workspace below parent. The directory name carries a
// random id so concurrent runs never collide.
func New(parent string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	id := uuid.New().String()
	root := filepath.Join(parent, "mashup-"+id)

	ws := &Workspace{
		ID:       id,
		Root:     root,
		Download: filepath.Join(root, "download"),
		Audio:    filepath.Join(root, "audio"),
	}
	for _, dir := range []string{ws.Download, ws.Audio} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("create workspace %s: %w", dir, err)
		}
	}
	return ws, nil
}

// DownloadPath is where item index's fetched container lands.
func (w *Workspace) DownloadPath(index int) string {
	return filepath.Join(w.Download, fmt.Sprintf("video%d.webm", index))
}

// AudioPath is the normalized WAV for item index.
func (w *Workspace) AudioPath(index int) string {
	return filepath.Join(w.Audio, fmt.Sprintf("audio%d.wav", index))
}

// TrimmedPath is the trimmed WAV for item index.
func (w *Workspace) TrimmedPath(index int) string {
	return filepath.Join(w.Audio, fmt.Sprintf("cut_audio%d.wav", index))
}

func (w *Workspace) OutputPath(name string) string {
	return filepath.Join(w.Root, name)
}

// Remove deletes the whole tree. Safe to call more than once.
func (w *Workspace) Remove() error {
	if w == nil || w.Root == "" {
		return nil
	}
	return os.RemoveAll(w.Root)
}
