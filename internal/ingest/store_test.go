package ingest

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/joseph-ayodele/convenio-extractor/internal/common"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF\n"

func TestStoreSave(t *testing.T) {
	s, err := NewStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	got, err := s.Save("job-1", strings.NewReader(samplePDF))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got.Path != s.PathFor("job-1") || got.Size != int64(len(samplePDF)) || len(got.HashHex) != 64 {
		t.Fatalf("Save() = %+v", got)
	}
	data, err := os.ReadFile(got.Path)
	if err != nil || string(data) != samplePDF {
		t.Fatalf("stored content = %q, %v", data, err)
	}

	if _, err := s.Save("job-1", strings.NewReader(samplePDF)); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("second Save() error = %v, want ErrAlreadyExists", err)
	}

	if err := s.Remove("job-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove("job-1"); err != nil {
		t.Fatalf("Remove() of missing file error = %v", err)
	}
}

func TestStoreRejectsNonPDF(t *testing.T) {
	s, _ := NewStore(t.TempDir(), 0)
	for _, body := range []string{"", "%PD", "PK\x03\x04 zip"} {
		_, err := s.Save("x", strings.NewReader(body))
		if !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("Save(%q) error = %v, want ErrInvalidInput", body, err)
		}
	}
	if _, err := os.Stat(s.PathFor("x")); !os.IsNotExist(err) {
		t.Fatalf("rejected upload left on disk: %v", err)
	}
}

func TestStoreRejectsOversize(t *testing.T) {
	s, _ := NewStore(t.TempDir(), 16)
	body := samplePDF + string(bytes.Repeat([]byte("x"), 64))
	_, err := s.Save("big", strings.NewReader(body))
	if !errors.Is(err, common.ErrTooLarge) {
		t.Fatalf("Save() error = %v, want ErrTooLarge", err)
	}
	if _, err := os.Stat(s.PathFor("big")); !os.IsNotExist(err) {
		t.Fatalf("oversize upload left on disk: %v", err)
	}
}

func TestIsHidden(t *testing.T) {
	cases := map[string]bool{
		"/in/.ingested":   true,
		"/in/~$draft.pdf": true,
		"/in/extrato.pdf": false,
	}
	for p, want := range cases {
		if got := IsHidden(p); got != want {
			t.Errorf("IsHidden(%q) = %v, want %v", p, got, want)
		}
	}
}
