package filestorage

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// uploadHeader builds a multipart file header the way gin receives it.
func uploadHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("ParseMultipartForm: %v", err)
	}
	return req.MultipartForm.File["file"][0]
}

func TestSaveAndDeleteFile(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	ref, err := ls.SaveFile(uploadHeader(t, "Receipt.PDF", []byte("%PDF-1.4")), "proofs/12")
	if err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	if !strings.HasPrefix(ref, "proofs/12/") || !strings.HasSuffix(ref, ".pdf") {
		t.Fatalf("ref = %q", ref)
	}
	path, err := ls.GetFullPath(ref)
	if err != nil {
		t.Fatalf("GetFullPath: %v", err)
	}
	if data, err := os.ReadFile(path); err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("stored content = %q, %v", data, err)
	}

	if err := ls.DeleteFile(ref); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if err := ls.DeleteFile(ref); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSaveFileRejects(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if _, err := ls.SaveFile(uploadHeader(t, "script.sh", []byte("x")), ""); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("shell script: %v", err)
	}
	if _, err := ls.SaveFile(uploadHeader(t, "big.png", []byte("0123456789")), ""); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("oversized: %v", err)
	}
	if _, err := ls.GetFullPath("../../etc/passwd"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("path escape: %v", err)
	}
}
