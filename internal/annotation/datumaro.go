package annotation

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/monitoring"
)

// Source produces the detections to convert.
type Source interface {
	Load() (Detections, error)
}

type datumaroExport struct {
	Items []datumaroItem `json:"items"`
}

type datumaroItem struct {
	ID          string               `json:"id"`
	Annotations []datumaroAnnotation `json:"annotations"`
}

type datumaroAnnotation struct {
	ID         int64          `json:"id"`
	Position   []float64      `json:"position"`
	Scale      []float64      `json:"scale"`
	Rotation   []float64      `json:"rotation"`
	Attributes map[string]any `json:"attributes"`
}

// DatumaroLoader reads <Root>/<session>/<team>/<scene>.json exports.
type DatumaroLoader struct {
	FS   fsutil.FileSystem
	Root string
}

// NewDatumaroLoader returns a loader over root.
func NewDatumaroLoader(fsys fsutil.FileSystem, root string) *DatumaroLoader {
	return &DatumaroLoader{FS: fsys, Root: root}
}

// Load implements Source.
func (l *DatumaroLoader) Load() (Detections, error) {
	det := make(Detections)

	sessions, err := l.FS.ReadDir(l.Root)
	if err != nil {
		return nil, fmt.Errorf("list annotations root: %w", err)
	}
	for _, session := range sessions {
		if !session.IsDir() {
			continue
		}
		sessionDir := filepath.Join(l.Root, session.Name())
		teams, err := l.FS.ReadDir(sessionDir)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", sessionDir, err)
		}
		for _, team := range teams {
			if !team.IsDir() {
				continue
			}
			teamDir := filepath.Join(sessionDir, team.Name())
			files, err := l.FS.ReadDir(teamDir)
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", teamDir, err)
			}
			for _, f := range files {
				if f.IsDir() || !strings.EqualFold(filepath.Ext(f.Name()), ".json") {
					continue
				}
				path := filepath.Join(teamDir, f.Name())
				scene := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
				if err := l.loadScene(det, path, session.Name(), team.Name(), scene); err != nil {
					return nil, err
				}
			}
		}
	}
	return det, nil
}

// LoadFile reads one export, taking session, team and scene from the path.
func (l *DatumaroLoader) LoadFile(det Detections, path string) error {
	team := filepath.Base(filepath.Dir(path))
	session := filepath.Base(filepath.Dir(filepath.Dir(path)))
	scene := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return l.loadScene(det, path, session, team, scene)
}

func (l *DatumaroLoader) loadScene(det Detections, path, session, team, scene string) error {
	data, err := l.FS.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var export datumaroExport
	if err := json.Unmarshal(data, &export); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for _, item := range export.Items {
		anns := make([]Annotation, 0, len(item.Annotations))
		for i, a := range item.Annotations {
			ann, err := a.toAnnotation()
			if err != nil {
				return fmt.Errorf("%s item %s annotation %d: %w", path, item.ID, i, err)
			}
			anns = append(anns, ann)
		}
		det.Add(session, team, scene, item.ID, anns)
	}
	monitoring.Logf("[annotation] loaded %s/%s/%s: %d frames", session, team, scene, len(export.Items))
	return nil
}

func (a datumaroAnnotation) toAnnotation() (Annotation, error) {
	if len(a.Position) != 3 || len(a.Scale) != 3 {
		return Annotation{}, fmt.Errorf("position and scale need 3 values, got %d and %d", len(a.Position), len(a.Scale))
	}
	if len(a.Rotation) != 3 {
		return Annotation{}, fmt.Errorf("rotation needs 3 values, got %d", len(a.Rotation))
	}
	occluded, _ := a.Attributes["occluded"].(bool)
	return Annotation{
		ID:       a.ID,
		Position: [3]float64{a.Position[0], a.Position[1], a.Position[2]},
		Size:     [3]float64{a.Scale[0], a.Scale[1], a.Scale[2]},
		Yaw:      a.Rotation[2],
		Visible:  !occluded,
	}, nil
}
