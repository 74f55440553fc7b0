package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DiskStore keeps artifacts in a local directory and references them as
// URLPrefix + "/" + name.
type DiskStore struct {
	Dir       string
	URLPrefix string
}

var _ Store = (*DiskStore)(nil)

// NewDiskStore ensures dir exists.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &DiskStore{Dir: dir, URLPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Save writes r to a new file.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := objectName(filename)
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating artifact: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing artifact: %w", err)
	}
	return path.Join(s.URLPrefix, name), nil
}

// Remove deletes the file behind ref. References outside URLPrefix are
// rejected; an already missing file is not an error.
func (s *DiskStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

func (s *DiskStore) resolve(ref string) (string, error) {
	clean := path.Clean("/" + strings.TrimPrefix(ref, "/"))
	dir, name := path.Split(clean)
	if path.Clean(dir) != s.URLPrefix || name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("artifact reference %q is outside %s", ref, s.URLPrefix)
	}
	return name, nil
}
