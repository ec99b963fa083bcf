// Package document persists uploaded syllabus PDFs on local disk.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extension is appended to every stored document name.
const Extension = ".pdf"

var ErrInvalidID = errors.New("invalid document id")

// Store keeps raw upload bytes under dir/<id>.pdf. Files are written once and
// never modified.
type Store struct {
	dir string
}

// NewStore creates the upload directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns where the document with the given id lives.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+Extension)
}

// Save streams r to dir/<id>.pdf and returns the final path. The write goes to a
// temp file first so a failed copy never leaves a truncated document behind.
func (s *Store) Save(id string, r io.Reader) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, id+"-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}

	path := s.Path(id)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return path, nil
}

// Remove deletes the stored document. Removing a missing document is not an error.
func (s *Store) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove document: %w", err)
	}
	return nil
}

func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
