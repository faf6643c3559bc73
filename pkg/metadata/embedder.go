// Package metadata embeds descriptive XMP metadata into downloaded media.
//
// Embedding is best effort with a two-stage strategy: JPEG files get the XMP
// packet written in place (APP1 segment); every other format, and any JPEG
// whose rewrite fails, gets a sidecar file named <originalFileName>.xmp next
// to the media. A successful call produces exactly one of the two; a failure
// at every stage leaves the media file untouched.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trimmer.io/go-xmp/models/exif"
	xmpbase "trimmer.io/go-xmp/models/xmp_base"
	"trimmer.io/go-xmp/xmp"

	"gparchiver/pkg/logger"
)

// Mode reports how a successful embed was persisted.
type Mode string

const (
	// ModeEmbedded means the XMP packet was written into the media file.
	ModeEmbedded Mode = "embedded"

	// ModeSidecar means the packet was written to a sidecar .xmp file.
	ModeSidecar Mode = "sidecar"
)

// Embedder writes XMP metadata for downloaded media files.
type Embedder struct {
	logger logger.Logger
}

// NewEmbedder creates an Embedder.
func NewEmbedder(log logger.Logger) *Embedder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Embedder{logger: log}
}

// Embed sets a comment from description and capture dates from creationTime
// (RFC 3339) on the file at path. Either argument may be empty; with both
// empty the call is a no-op. Returns the persistence mode on success.
func (e *Embedder) Embed(path, description, creationTime string) (Mode, error) {
	if description == "" && creationTime == "" {
		return "", nil
	}

	doc := e.openDocument(path)
	defer doc.Close()

	if err := applyProperties(doc, description, creationTime); err != nil {
		return "", fmt.Errorf("failed to set metadata properties: %w", err)
	}

	packet, err := xmp.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize metadata: %w", err)
	}

	if isJPEG(path) {
		if err := embedJPEG(path, packet); err == nil {
			e.logger.DebugWithFields("metadata embedded in place", map[string]interface{}{
				"path": path,
			})
			return ModeEmbedded, nil
		} else {
			e.logger.WarnWithFields("in-place metadata write failed, falling back to sidecar", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	sidecarPath := path + ".xmp"
	if err := os.WriteFile(sidecarPath, packet, 0644); err != nil {
		return "", fmt.Errorf("failed to write sidecar file: %w", err)
	}

	e.logger.DebugWithFields("metadata written to sidecar", map[string]interface{}{
		"path":    path,
		"sidecar": sidecarPath,
	})
	return ModeSidecar, nil
}

// openDocument loads the file's existing XMP container when one is parseable,
// otherwise starts fresh. Starting fresh is expected for most downloads and
// is not an error.
func (e *Embedder) openDocument(path string) *xmp.Document {
	if isJPEG(path) {
		if data, err := os.ReadFile(path); err == nil {
			if packet := extractJPEGXMP(data); packet != nil {
				doc := &xmp.Document{}
				if err := xmp.Unmarshal(packet, doc); err == nil {
					return doc
				}
			}
		}
	}
	e.logger.DebugWithFields("no parseable metadata container, creating from scratch", map[string]interface{}{
		"path": path,
	})
	return xmp.NewDocument()
}

// applyProperties writes the comment and capture-date fields. The capture
// date goes into both the exif and the xmp namespaces, matching what photo
// tools expect.
func applyProperties(doc *xmp.Document, description, creationTime string) error {
	ex, err := exif.MakeModel(doc)
	if err != nil {
		return fmt.Errorf("failed to create exif model: %w", err)
	}

	if description != "" {
		ex.UserComment = xmp.NewStringArray(description)
	}

	if creationTime != "" {
		t, err := time.Parse(time.RFC3339, creationTime)
		if err != nil {
			return fmt.Errorf("failed to parse creation time %q: %w", creationTime, err)
		}
		ex.DateTimeOriginal = exif.Date(t)

		base, err := xmpbase.MakeModel(doc)
		if err != nil {
			return fmt.Errorf("failed to create xmp base model: %w", err)
		}
		base.CreateDate = xmp.NewDate(t)
	}

	return nil
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
