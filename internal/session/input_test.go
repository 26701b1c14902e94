package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/convx/internal/shared"
)

// writeZip writes size bytes beginning with the ZIP local-file signature.
func writeZip(t *testing.T, name string, size int) string {
	t.Helper()

	data := make([]byte, size)
	copy(data, []byte{0x50, 0x4B, 0x03, 0x04})

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestInput(t *testing.T) {
	t.Run("Mutual Exclusion", func(t *testing.T) {
		var in Input
		in.SetFile("/tmp/app.zip")
		in.SetRepo("https://github.com/a/b")

		if in.Kind != InputRepo {
			t.Errorf("expected repo kind, got %s", in.Kind)
		}
		if in.FilePath != "" {
			t.Errorf("expected file path cleared, got %q", in.FilePath)
		}

		in.SetFile("/tmp/app.zip")
		if in.Kind != InputFile {
			t.Errorf("expected file kind, got %s", in.Kind)
		}
		if in.RepoURL != "" {
			t.Errorf("expected repo url cleared, got %q", in.RepoURL)
		}
	})

	t.Run("Ref", func(t *testing.T) {
		if got := FileInput("/tmp/app.zip").Ref(); got != "/tmp/app.zip" {
			t.Errorf("expected file path, got %q", got)
		}
		if got := RepoInput("https://github.com/a/b").Ref(); got != "https://github.com/a/b" {
			t.Errorf("expected repo url, got %q", got)
		}
	})
}

func TestInputValidate(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		t.Run("accepts small zip", func(t *testing.T) {
			in := FileInput(writeZip(t, "project.zip", 1024))
			if err := in.Validate(0); err != nil {
				t.Errorf("expected valid, got %v", err)
			}
		})

		t.Run("accepts uppercase extension", func(t *testing.T) {
			in := FileInput(writeZip(t, "PROJECT.ZIP", 1024))
			if err := in.Validate(0); err != nil {
				t.Errorf("expected valid, got %v", err)
			}
		})

		t.Run("rejects missing file", func(t *testing.T) {
			in := FileInput(filepath.Join(t.TempDir(), "missing.zip"))
			if err := in.Validate(0); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("rejects directory", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "project.zip")
			if err := os.Mkdir(dir, 0755); err != nil {
				t.Fatal(err)
			}

			in := FileInput(dir)
			if err := in.Validate(0); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("rejects non-zip extension", func(t *testing.T) {
			in := FileInput(writeZip(t, "project.tar", 1024))
			if err := in.Validate(0); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("rejects zip extension without zip signature", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "project.zip")
			if err := os.WriteFile(path, []byte("<html>not an archive</html>"), 0644); err != nil {
				t.Fatal(err)
			}

			in := FileInput(path)
			if err := in.Validate(0); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})

		t.Run("rejects oversized file", func(t *testing.T) {
			in := FileInput(writeZip(t, "project.zip", 2048))
			if err := in.Validate(1024); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	})

	t.Run("Repo", func(t *testing.T) {
		valid := []string{
			"https://github.com/desertthunder/convx",
			"http://github.com/a/b",
			"https://www.github.com/a/b/",
			"https://github.com/a-b/c.d",
		}
		for _, url := range valid {
			if err := RepoInput(url).Validate(0); err != nil {
				t.Errorf("expected %q valid, got %v", url, err)
			}
		}

		invalid := []string{
			"github.com/a/b",
			"https://gitlab.com/a/b",
			"https://github.com/only-owner",
			"https://github.com/a/b/tree/main",
			"",
		}
		for _, url := range invalid {
			if err := RepoInput(url).Validate(0); !errors.Is(err, shared.ErrValidation) {
				t.Errorf("expected %q rejected, got %v", url, err)
			}
		}
	})

	t.Run("None", func(t *testing.T) {
		var in Input
		if err := in.Validate(0); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation for empty input, got %v", err)
		}
	})
}
