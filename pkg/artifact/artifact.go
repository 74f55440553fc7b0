// Package artifact stores the audio files that sentences reference by path.
package artifact

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Remover deletes a stored artifact by the reference Save returned.
type Remover interface {
	Remove(ctx context.Context, ref string) error
}

// Store persists and removes audio artifacts.
type Store interface {
	Remover
	// Save stores r under a fresh unique name derived from filename and
	// returns the reference to record in a sentence's audioPath.
	Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error)
}

// objectName builds "<uuid>-<slug><ext>", falling back to "<uuid><ext>" when
// the base name has nothing sluggable.
func objectName(filename string) string {
	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		return uuid.NewString() + ext
	}
	return uuid.NewString() + "-" + stem + ext
}
