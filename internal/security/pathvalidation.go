// Package security holds path checks for files written on behalf of input
// data the converter does not control (team and scene names end up in
// output file names).
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SafeJoin joins rel onto root and rejects results that leave root.
// The check is lexical so it works for in-memory filesystems too; rel must be
// relative and must not climb out of root through ".." components.
func SafeJoin(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %q must be relative to %s", rel, root)
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(cleanRoot, rel)

	relPath, err := filepath.Rel(cleanRoot, joined)
	if err != nil {
		return "", fmt.Errorf("path is outside output root: %w", err)
	}
	if relPath == "." || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s attempts to escape %s", rel, root)
	}

	return joined, nil
}

// SanitizeFilename makes a safe filename from an arbitrary string. Characters
// other than ASCII letters, digits, dot, underscore or dash become a single
// underscore; the result is capped at 128 bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
