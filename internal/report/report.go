package report

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/nusconv/internal/convert"
	"github.com/banshee-data/nusconv/internal/fsutil"
	"github.com/banshee-data/nusconv/internal/security"
)

// Files names the artifacts written by Write.
type Files struct {
	HTML string
	PNG  string
}

// Write renders both artifacts for a run into dir. name is sanitised and
// used as the file stem.
func Write(fsys fsutil.FileSystem, dir, name string, sum *convert.Summary, threshold int64) (Files, error) {
	stem := security.SanitizeFilename(name)
	files := Files{
		HTML: filepath.Join(dir, stem+".html"),
		PNG:  filepath.Join(dir, stem+"_gaps.png"),
	}

	html, err := RenderHTML(sum, "Conversion report "+name)
	if err != nil {
		return files, err
	}
	png, err := RenderGapPlot(sum, threshold)
	if err != nil {
		return files, err
	}

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return files, fmt.Errorf("create %s: %w", dir, err)
	}
	if err := fsys.WriteFile(files.HTML, html, 0644); err != nil {
		return files, fmt.Errorf("write %s: %w", files.HTML, err)
	}
	if err := fsys.WriteFile(files.PNG, png, 0644); err != nil {
		return files, fmt.Errorf("write %s: %w", files.PNG, err)
	}
	return files, nil
}
