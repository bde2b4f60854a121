// Package dataset writes a converted table set and its point-cloud
// payloads to the nuScenes directory layout.
package dataset

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/nuscenes"
	"github.com/banshee-data/nusconv/internal/security"
)

// Skeleton lists the directories created below the output root.
var Skeleton = []string{
	"maps",
	"samples",
	filepath.Join("samples", nuscenes.ChannelLidar),
	filepath.Join("samples", nuscenes.ChannelRadar),
	"sweeps",
}

// Writer writes tables to <Root>/<Version>/ and payloads below Root.
type Writer struct {
	FS      fsutil.FileSystem
	Root    string
	Version string
}

// NewWriter returns a Writer for the dataset at root.
func NewWriter(fsys fsutil.FileSystem, root, version string) *Writer {
	return &Writer{FS: fsys, Root: root, Version: version}
}

// TableDir returns the directory holding the table files.
func (w *Writer) TableDir() string {
	return filepath.Join(w.Root, w.Version)
}

// Prepare creates the output directory skeleton.
func (w *Writer) Prepare() error {
	dirs := append([]string{w.Version}, Skeleton...)
	for _, d := range dirs {
		path, err := security.SafeJoin(w.Root, d)
		if err != nil {
			return err
		}
		if err := w.FS.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
	}
	return nil
}

// WriteTables writes every table as a 2-space indented JSON array.
func (w *Writer) WriteTables(t *nuscenes.Tables) error {
	dir := w.TableDir()
	if err := w.FS.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, table := range t.Named() {
		data, err := json.MarshalIndent(table.Rows, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", table.Name, err)
		}
		path := filepath.Join(dir, table.Name+".json")
		if err := w.FS.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

// WritePayload writes data to rel below the output root. Paths that would
// leave the root are rejected.
func (w *Writer) WritePayload(rel string, data []byte) error {
	path, err := security.SafeJoin(w.Root, rel)
	if err != nil {
		return fmt.Errorf("payload %q: %w", rel, err)
	}
	if err := w.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := w.FS.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadTable decodes one table file into rows.
func (w *Writer) ReadTable(name string, rows any) error {
	path := filepath.Join(w.TableDir(), name+".json")
	data, err := w.FS.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, rows); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
