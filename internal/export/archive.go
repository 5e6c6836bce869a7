// Package export packages generated project files into downloadable
// zip archives. It is a pure packaging step: file contents pass
// through untouched.
package export

import (
	"archive/zip"
	"bytes"
	"path"
	"strings"
	"time"

	"github.com/stackcanvas/engine/internal/generator"
	appErr "github.com/stackcanvas/engine/pkg/errors"
)

// archiveEpoch is the fixed timestamp stamped on every entry so the
// same file set always produces the same archive bytes.
var archiveEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SanitizeProjectName lowercases the human-supplied project name and
// collapses anything outside [a-z0-9] into single dashes. An empty or
// fully invalid name falls back to "project".
func SanitizeProjectName(name string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "project"
	}
	return out
}

// Filename builds the download name for an archive: the sanitized
// project name suffixed with the target and, for Pulumi, the language.
func Filename(projectName, target string, language generator.Language) string {
	name := SanitizeProjectName(projectName) + "-" + target
	if target == "pulumi" {
		if language == generator.LangPython {
			name += "-py"
		} else {
			name += "-ts"
		}
	}
	return name + ".zip"
}

// Archive zips the generated files, preserving nested paths. The
// caller decides whether an empty graph should be exported; the
// archiver only refuses a file set with nothing in it.
func Archive(files generator.FileSet) ([]byte, error) {
	if len(files) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "nothing to archive")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		name, err := entryName(f.Path)
		if err != nil {
			return nil, err
		}
		hdr := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: archiveEpoch,
		}
		hdr.SetMode(0o644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "create archive entry").WithMeta("path", name)
		}
		if _, err := w.Write(f.Content); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "write archive entry").WithMeta("path", name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "finalize archive")
	}
	return buf.Bytes(), nil
}

// entryName normalizes a generated path for the archive and rejects
// anything escaping the project root.
func entryName(p string) (string, error) {
	name := path.Clean(strings.TrimPrefix(strings.ReplaceAll(p, "\\", "/"), "/"))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", appErr.Newf(appErr.CodeInvalid, "unsafe archive path %q", p)
	}
	return name, nil
}
