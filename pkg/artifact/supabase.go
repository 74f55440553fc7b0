package artifact

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

const publicObjectPath = "/storage/v1/object/public/"

// SupabaseStore keeps artifacts in a Supabase Storage bucket under audio/ and
// references them by public URL.
type SupabaseStore struct {
	client  *storage.Client
	baseURL string
	bucket  string
}

var _ Store = (*SupabaseStore)(nil)

// NewSupabaseStore creates a storage client for the project at baseURL.
func NewSupabaseStore(baseURL, key, bucket string) *SupabaseStore {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SupabaseStore{
		client:  storage.NewClient(baseURL+"/storage/v1", key, nil),
		baseURL: baseURL,
		bucket:  bucket,
	}
}

// Save uploads r and returns its public URL.
func (s *SupabaseStore) Save(ctx context.Context, filename string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectPath := "audio/" + objectName(filename)
	opts := storage.FileOptions{}
	if contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, objectPath, r, opts); err != nil {
		return "", fmt.Errorf("uploading artifact: %w", err)
	}
	return s.baseURL + publicObjectPath + s.bucket + "/" + objectPath, nil
}

// Remove deletes the object behind a public URL returned by Save.
func (s *SupabaseStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bucket, object, err := parsePublicURL(ref)
	if err != nil {
		return err
	}
	if bucket != s.bucket {
		return fmt.Errorf("artifact %q is not in bucket %s", ref, s.bucket)
	}
	if _, err := s.client.RemoveFile(bucket, []string{object}); err != nil {
		return fmt.Errorf("removing artifact: %w", err)
	}
	return nil
}

// parsePublicURL splits ".../storage/v1/object/public/<bucket>/<object>" into
// bucket and unescaped object path.
func parsePublicURL(ref string) (string, string, error) {
	idx := strings.Index(ref, publicObjectPath)
	if idx == -1 {
		return "", "", fmt.Errorf("not a storage object URL: %s", ref)
	}
	rest := ref[idx+len(publicObjectPath):]
	if q := strings.IndexAny(rest, "?#"); q != -1 {
		rest = rest[:q]
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("cannot parse bucket and object from %s", ref)
	}
	if u, err := url.PathUnescape(object); err == nil {
		object = u
	}
	return bucket, object, nil
}
