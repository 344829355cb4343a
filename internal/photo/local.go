package photo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const prefix = "visitors"

// LocalStore keeps photos under Dir and serves them below BaseURL
// (typically PUBLIC_BASE_URL + "/uploads").
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewLocalStore(dir, baseURL string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, prefix), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL, maxBytes: maxBytes}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(_ context.Context, u Upload) (string, error) {
	ext, err := Validate(u, s.maxBytes)
	if err != nil {
		return "", err
	}

	ref := path.Join(prefix, uuid.NewString()+ext)
	if err := os.WriteFile(s.abs(ref), u.Data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return ref, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	if !validRef(ref) {
		return fmt.Errorf("delete photo: bad reference %q", ref)
	}
	err := os.Remove(s.abs(ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete photo: %w", err)
	}
	return nil
}

func (s *LocalStore) URL(ref string) string {
	return joinURL(s.baseURL, ref)
}

func (s *LocalStore) abs(ref string) string {
	return filepath.Join(s.dir, filepath.FromSlash(ref))
}

// validRef accepts only references Save could have produced.
func validRef(ref string) bool {
	clean := path.Clean(ref)
	return clean == ref && strings.HasPrefix(clean, prefix+"/") && !strings.Contains(clean, "..")
}
