package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// StagingPrefix marks in-flight uploads inside the store directory. Such
// files are never listed and cannot be addressed by clients.
const StagingPrefix = ".partial-"

const MaxFilenameLength = 255

// ValidateFilename rejects anything that is not a single plain file name
// inside the store root.
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty filename", ErrValidation)
	case len(name) > MaxFilenameLength:
		return fmt.Errorf("%w: filename longer than %d bytes", ErrValidation, MaxFilenameLength)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: filename is not valid UTF-8", ErrValidation)
	case name == "." || name == "..":
		return fmt.Errorf("%w: invalid filename %q", ErrValidation, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: filename %q contains a path separator", ErrValidation, name)
	case strings.HasPrefix(name, StagingPrefix):
		return fmt.Errorf("%w: filename %q uses a reserved prefix", ErrValidation, name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: filename %q contains a control character", ErrValidation, name)
		}
	}

	if filepath.Base(name) != name || !filepath.IsLocal(name) {
		return fmt.Errorf("%w: filename %q escapes the store", ErrValidation, name)
	}

	return nil
}
