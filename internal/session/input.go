package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/desertthunder/convx/internal/services"
	"github.com/desertthunder/convx/internal/shared"
)

// DefaultMaxUploadBytes is the upload ceiling applied when no limit is
// configured. Matches the backend's 50 MB cap.
const DefaultMaxUploadBytes int64 = 50 << 20

var githubURLPattern = regexp.MustCompile(`^https?://(www\.)?github\.com/[\w.-]+/[\w.-]+/?$`)

// zipMagics are the local-file, empty-archive, and spanned-archive
// signatures a ZIP file may start with.
var zipMagics = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
	{0x50, 0x4B, 0x05, 0x06},
	{0x50, 0x4B, 0x07, 0x08},
}

// InputKind discriminates the two submission sources.
type InputKind int

const (
	InputNone InputKind = iota
	InputFile
	InputRepo
)

func (k InputKind) String() string {
	switch k {
	case InputFile:
		return "file"
	case InputRepo:
		return "repo"
	default:
		return "none"
	}
}

// Input is the user's submission selection. Exactly one of FilePath or
// RepoURL is set; the setters enforce mutual exclusion.
type Input struct {
	Kind     InputKind
	FilePath string
	RepoURL  string
}

// FileInput selects a ZIP file for upload.
func FileInput(path string) Input {
	var in Input
	in.SetFile(path)
	return in
}

// RepoInput selects a GitHub repository link.
func RepoInput(url string) Input {
	var in Input
	in.SetRepo(url)
	return in
}

// SetFile selects a ZIP file, clearing any repository selection.
func (in *Input) SetFile(path string) {
	in.Kind = InputFile
	in.FilePath = path
	in.RepoURL = ""
}

// SetRepo selects a repository URL, clearing any file selection.
func (in *Input) SetRepo(url string) {
	in.Kind = InputRepo
	in.RepoURL = url
	in.FilePath = ""
}

// Validate checks the selection before any transport call is made.
//
// Files must exist, carry a .zip extension and signature, and fit within maxUploadBytes
// (pass 0 for [DefaultMaxUploadBytes]). Repository URLs must point at a
// GitHub repository. Failures wrap [shared.ErrValidation].
func (in Input) Validate(maxUploadBytes int64) error {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	switch in.Kind {
	case InputFile:
		info, err := os.Stat(in.FilePath)
		if err != nil {
			return fmt.Errorf("%w: cannot read file %s: %v", shared.ErrValidation, in.FilePath, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: %s is a directory", shared.ErrValidation, in.FilePath)
		}
		if !strings.EqualFold(filepath.Ext(in.FilePath), ".zip") {
			return fmt.Errorf("%w: %s is not a ZIP archive", shared.ErrValidation, in.FilePath)
		}
		if info.Size() > maxUploadBytes {
			return fmt.Errorf("%w: %s exceeds the %d MB upload limit", shared.ErrValidation, in.FilePath, maxUploadBytes>>20)
		}
		return in.checkZipMagic()
	case InputRepo:
		if !githubURLPattern.MatchString(strings.TrimSpace(in.RepoURL)) {
			return fmt.Errorf("%w: %q is not a GitHub repository URL", shared.ErrValidation, in.RepoURL)
		}
		return nil
	default:
		return fmt.Errorf("%w: provide a ZIP file or a GitHub repository link", shared.ErrValidation)
	}
}

// checkZipMagic sniffs the file's leading bytes; the extension alone does
// not prove the upload is an archive the backend can unpack.
func (in Input) checkZipMagic() error {
	f, err := os.Open(in.FilePath)
	if err != nil {
		return fmt.Errorf("%w: cannot read file %s: %v", shared.ErrValidation, in.FilePath, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return fmt.Errorf("%w: %s is not a ZIP archive", shared.ErrValidation, in.FilePath)
	}
	for _, sig := range zipMagics {
		if bytes.Equal(magic[:], sig) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not a ZIP archive", shared.ErrValidation, in.FilePath)
}

// conversionInput maps the selection onto the transport payload.
func (in Input) conversionInput() services.ConversionInput {
	switch in.Kind {
	case InputFile:
		return services.ConversionInput{ZipPath: in.FilePath}
	case InputRepo:
		return services.ConversionInput{GitHubLink: in.RepoURL}
	default:
		return services.ConversionInput{}
	}
}

// Ref returns the file path or URL for display and history.
func (in Input) Ref() string {
	if in.Kind == InputRepo {
		return in.RepoURL
	}
	return in.FilePath
}
