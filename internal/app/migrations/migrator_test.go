package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVersionOf(t *testing.T) {
	cases := map[string]string{
		"001_init.sql":                  "001",
		"/srv/migrations/002_add_x.sql": "002",
		"003.sql":                       "003.sql",
	}
	for in, want := range cases {
		if got := versionOf(in); got != want {
			t.Fatalf("versionOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSQLFilesAreOrderedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_late.sql", "002_mid.sql", "001_init.sql", "README.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "000_dir.sql"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := sqlFiles(dir)
	if err != nil {
		t.Fatalf("sqlFiles: %v", err)
	}
	want := []string{"001_init.sql", "002_mid.sql", "010_late.sql"}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}

	if _, err := sqlFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("missing directory accepted")
	}
}
