package ingest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
)

// StoredFile describes an upload written to the store.
type StoredFile struct {
	Path    string
	Size    int64
	HashHex string
}

// Store keeps uploaded PDFs on local disk as <dir>/<job id>.pdf until the
// job that owns them finishes.
type Store struct {
	dir      string
	maxBytes int64
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, common.InvalidInputErrorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string { return s.dir }

// PathFor is where the upload of jobID lives.
func (s *Store) PathFor(jobID string) string {
	return filepath.Join(s.dir, jobID+".pdf")
}

// Save streams r into the store. The content must start with the PDF magic
// and stay within the configured size; otherwise nothing is kept.
func (s *Store) Save(jobID string, r io.Reader) (StoredFile, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(constants.PDFMagic))
	if err != nil || string(head) != constants.PDFMagic {
		return StoredFile{}, common.InvalidInputErrorf("file is not a PDF document")
	}

	path := s.PathFor(jobID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return StoredFile{}, common.NewAppError(common.CodeConflict, "upload already stored for job "+jobID, common.ErrAlreadyExists)
		}
		return StoredFile{}, fmt.Errorf("create upload: %w", err)
	}

	h := sha256.New()
	src := io.Reader(br)
	if s.maxBytes > 0 {
		src = io.LimitReader(br, s.maxBytes+1)
	}
	n, copyErr := io.Copy(io.MultiWriter(f, h), src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("write upload: %w", copyErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		_ = os.Remove(path)
		return StoredFile{}, common.NewAppError(common.CodeInput, fmt.Sprintf("file exceeds %d bytes", s.maxBytes), common.ErrTooLarge)
	case closeErr != nil:
		_ = os.Remove(path)
		return StoredFile{}, fmt.Errorf("close upload: %w", closeErr)
	}
	return StoredFile{Path: path, Size: n, HashHex: hex.EncodeToString(h.Sum(nil))}, nil
}

// SaveFile copies an existing file on disk into the store.
func (s *Store) SaveFile(jobID, src string) (StoredFile, error) {
	f, err := os.Open(src)
	if err != nil {
		return StoredFile{}, err
	}
	defer func() { _ = f.Close() }()
	return s.Save(jobID, f)
}

// Remove deletes the upload of jobID. A missing file is not an error.
func (s *Store) Remove(jobID string) error {
	if err := os.Remove(s.PathFor(jobID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
