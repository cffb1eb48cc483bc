// Package validation checks user-supplied paths and files before they reach a
// history source, the cache, or the merge staging area.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on user input.
const (
	// MaxDocumentSize bounds the document a walk will be started for (64 MB).
	MaxDocumentSize = 64 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal    = errors.New("path traversal detected")
	ErrInvalidFilename  = errors.New("invalid filename")
	ErrPathTooLong      = errors.New("path too long")
	ErrFilenameTooLong  = errors.New("filename too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrTypeMismatch     = errors.New("file type mismatch")
)

// SanitizePath resolves a path supplied relative to baseDir, rejecting anything
// that would leave it. It returns the cleaned relative path.
func SanitizePath(baseDir, userPath string) (string, error) {
	if err := ValidatePath(userPath); err != nil {
		return "", err
	}

	cleanPath := filepath.Clean(filepath.FromSlash(userPath))
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}
	for _, part := range strings.Split(cleanPath, string(filepath.Separator)) {
		if part == ".." {
			return "", ErrPathTraversal
		}
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidatePath checks length and character limits without reference to a base
// directory.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateDocument checks that path names a regular file of acceptable size.
func ValidateDocument(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > MaxDocumentSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, path, info.Size())
	}
	return nil
}

// ValidateFilename checks that filename is a single safe path element.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// SanitizeFilename turns an arbitrary base name into one ValidateFilename
// accepts.
func SanitizeFilename(filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	filename = strings.NewReplacer("/", "_", "\\", "_").Replace(filename)

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// FileType is a file format recognised by its leading bytes.
type FileType string

const (
	FileTypeTarXZ   FileType = "tar.xz"
	FileTypeTarGZ   FileType = "tar.gz"
	FileTypeXZ      FileType = "xz"
	FileTypeGzip    FileType = "gzip"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeText    FileType = "text"
	FileTypeUnknown FileType = "unknown"
)

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// ValidateFileType reads the header of r and checks that it agrees with the
// extension of filename. History archives must really be xz or gzip streams, a
// cache must really be a SQLite database, and a document must look like text.
func ValidateFileType(r io.Reader, filename string) (FileType, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]

	detected := detectFileTypeFromMagic(buf)
	expected := detectFileTypeFromExtension(filename)

	switch expected {
	case FileTypeTarXZ:
		if detected == FileTypeXZ {
			return expected, nil
		}
	case FileTypeTarGZ:
		if detected == FileTypeGzip {
			return expected, nil
		}
	case FileTypeSQLite:
		// A fresh cache file is empty until the schema is written.
		if detected == FileTypeSQLite || n == 0 {
			return expected, nil
		}
	case FileTypeText:
		if n == 0 || (detected == FileTypeUnknown && isLikelyText(buf)) {
			return expected, nil
		}
	case FileTypeUnknown:
		return detected, nil
	default:
		if detected == expected {
			return expected, nil
		}
	}
	return FileTypeUnknown, fmt.Errorf("%w: %s has extension for %s but content is %s", ErrTypeMismatch, filename, expected, detected)
}

func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

func detectFileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.xz"):
		return FileTypeTarXZ
	case strings.HasSuffix(lower, ".tar.gz"):
		return FileTypeTarGZ
	}

	switch filepath.Ext(lower) {
	case ".xz":
		return FileTypeXZ
	case ".gz":
		return FileTypeGzip
	case ".db", ".sqlite", ".sqlite3":
		return FileTypeSQLite
	case ".usfm", ".sfm", ".txt":
		return FileTypeText
	default:
		return FileTypeUnknown
	}
}

// isLikelyText reports whether buf is mostly printable. Bytes at or above 0x80
// are neutral so UTF-8 and Windows-1252 pass; UTF-16 is accepted on its BOM.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}
	if bytes.HasPrefix(buf, []byte{0xFE, 0xFF}) || bytes.HasPrefix(buf, []byte{0xFF, 0xFE}) {
		return true
	}

	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b <= 0x7e):
			printable++
		case b < 0x20:
			control++
		}
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
