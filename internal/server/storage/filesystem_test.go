package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManagedDirSave(t *testing.T) {
	md := NewManagedDir(t.TempDir())

	path, err := md.Save("report.zip", strings.NewReader("archive bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(path, "_report.zip") {
		t.Errorf("expected timestamped name ending in _report.zip, got %s", path)
	}
	if !md.Contains(path) {
		t.Errorf("saved file should be inside the managed area: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(data) != "archive bytes" {
		t.Errorf("stored content mismatch: %q", data)
	}
}

func TestManagedDirContains(t *testing.T) {
	dir := t.TempDir()
	md := NewManagedDir(dir)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"inside", filepath.Join(dir, "file.zip"), true},
		{"nested", filepath.Join(dir, "sub", "file.zip"), true},
		{"outside", filepath.Join(t.TempDir(), "file.zip"), false},
		{"the area itself", dir, false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := md.Contains(tt.path); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestManagedDirDelete(t *testing.T) {
	md := NewManagedDir(t.TempDir())

	t.Run("deletes stored file", func(t *testing.T) {
		path, err := md.Save("a.zip", strings.NewReader("x"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := md.Delete(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("file should be gone: %v", err)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		if err := md.Delete(md.PathFor("never-existed.zip")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("refuses path outside the area", func(t *testing.T) {
		outside := filepath.Join(t.TempDir(), "keep.zip")
		if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if err := md.Delete(outside); err == nil {
			t.Error("expected error for path outside managed area")
		}
		if _, err := os.Stat(outside); err != nil {
			t.Errorf("outside file must be untouched: %v", err)
		}
	})
}

func TestManagedDirList(t *testing.T) {
	md := NewManagedDir(t.TempDir())

	if _, err := md.Save("a.zip", strings.NewReader("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := md.Save("b.zip", strings.NewReader("b")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, err := md.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 files, got %d (%v)", len(names), names)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "file.zip", "file.zip"},
		{"strips directory", "/path/to/file.zip", "file.zip"},
		{"strips windows directory", `C:\Users\me\file.zip`, "file.zip"},
		{"empty", "", "upload.bin"},
		{"dot", ".", "upload.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	t.Run("limits length", func(t *testing.T) {
		long := strings.Repeat("a", 300) + ".zip"
		got := SanitizeFilename(long)
		if len(got) > 255 {
			t.Errorf("expected at most 255 chars, got %d", len(got))
		}
		if !strings.HasSuffix(got, ".zip") {
			t.Errorf("extension should be preserved, got %q", got)
		}
	})
}
